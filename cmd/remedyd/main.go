// Package main provides the entry point for the remediation daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/remedyops/remedy/internal/analyze"
	"github.com/remedyops/remedy/internal/api"
	"github.com/remedyops/remedy/internal/classify"
	"github.com/remedyops/remedy/internal/ledger"
	"github.com/remedyops/remedy/internal/monitor"
	"github.com/remedyops/remedy/internal/orchestrator"
	"github.com/remedyops/remedy/internal/patch"
	"github.com/remedyops/remedy/internal/platform"
	"github.com/remedyops/remedy/internal/redeploy"
	"github.com/remedyops/remedy/internal/registry"
	"github.com/remedyops/remedy/internal/review"
	"github.com/remedyops/remedy/internal/scm"
	"github.com/remedyops/remedy/internal/workflow"
	"github.com/remedyops/remedy/pkg/config"
	"github.com/remedyops/remedy/pkg/logger"
)

func main() {
	log := logger.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Watch list is optional; without it only explicitly tracked
	// deployments are monitored.
	var watchList []config.WatchedProject
	if cfg.WatchListPath != "" {
		wl, err := config.LoadWatchList(cfg.WatchListPath)
		if err != nil {
			log.Error("failed to load watch list", "path", cfg.WatchListPath, "error", err)
			os.Exit(1)
		}
		watchList = wl.Projects
	}

	reg := registry.New(log.Logger)

	var ledgerOpts []ledger.Option
	if cfg.DatabaseDSN != "" {
		archive, err := ledger.NewPostgresArchive(ledger.DefaultPostgresConfig(cfg.DatabaseDSN), log.Logger)
		if err != nil {
			log.Error("failed to open action archive", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithArchive(archive))
	}
	actionLedger := ledger.New(log.Logger, ledgerOpts...)

	platformClient := platform.NewClient(cfg.PlatformURL, cfg.PlatformToken)
	scmClient := scm.NewClient(cfg.SCMBaseURL, cfg.SCMToken, cfg.RepoOwner, cfg.RepoName)
	reviewClient := scm.NewReviewClient(cfg.SCMBaseURL, cfg.SCMToken)
	engineClient := workflow.NewClient(cfg.EngineURL, cfg.EngineAPIKey)
	provider := analyze.NewHTTPProvider(cfg.ProviderURL, cfg.ProviderToken, cfg.ProviderModel)

	poller := monitor.NewPoller(reg, platformClient, cfg.Monitor.PollInterval, cfg.Monitor.Window, log.Logger)
	detector := classify.NewDetector(reg, log.Logger)
	analyzer := analyze.NewAnalyzer(provider, scmClient, &cfg.Analyzer, log.Logger)
	dispatcher := workflow.NewDispatcher(engineClient, cfg.EngineFlowID, log.Logger)
	patcher := patch.NewBuilder(scmClient, log.Logger)
	reviewer := review.NewTrigger(reviewClient, cfg.RepoOwner, cfg.RepoName, log.Logger)
	supervisor := review.NewSupervisor(scmClient, cfg.Merge.CheckInterval, cfg.Merge.Deadline, log.Logger)
	redeployer := redeploy.NewTrigger(platformClient, poller, log.Logger)

	orch := orchestrator.New(orchestrator.Deps{
		Registry:   reg,
		Ledger:     actionLedger,
		Poller:     poller,
		Detector:   detector,
		Analyzer:   analyzer,
		Dispatcher: dispatcher,
		Patcher:    patcher,
		Reviewer:   reviewer,
		Supervisor: supervisor,
		Redeployer: redeployer,
		Discoverer: platformClient,
		WatchList:  watchList,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.StartMonitoring(ctx); err != nil {
		log.Error("failed to start monitoring", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, orch, log.Logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("remediation daemon started",
		"projects", len(watchList),
		"poll_interval", cfg.Monitor.PollInterval.String(),
	)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("api server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err)
	}
	orch.StopMonitoring()

	log.Info("remediation daemon shutdown complete")
}
