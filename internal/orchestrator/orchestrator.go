// Package orchestrator drives the remediation loop: detect, analyze,
// fix, verify, merge, redeploy. It owns the per-deployment work queues
// and the automated-action lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/remedyops/remedy/internal/analyze"
	"github.com/remedyops/remedy/internal/classify"
	"github.com/remedyops/remedy/internal/ledger"
	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/monitor"
	"github.com/remedyops/remedy/internal/patch"
	"github.com/remedyops/remedy/internal/platform"
	"github.com/remedyops/remedy/internal/redeploy"
	"github.com/remedyops/remedy/internal/registry"
	"github.com/remedyops/remedy/internal/review"
	"github.com/remedyops/remedy/internal/workflow"
	"github.com/remedyops/remedy/pkg/config"
)

// queueCapacity bounds the per-deployment error queue. Errors beyond the
// capacity are dropped with a failed error status; a backlog this deep
// means the deployment needs manual attention anyway.
const queueCapacity = 16

// Discoverer lists a project's recent deployments so new ones enter the
// watch set.
type Discoverer interface {
	ListDeployments(ctx context.Context, project string) ([]platform.DeploymentInfo, error)
}

// Orchestrator wires every pipeline component together and exposes the
// surface consumed by the presentation layer.
type Orchestrator struct {
	registry   *registry.Registry
	ledger     *ledger.Ledger
	poller     *monitor.Poller
	detector   *classify.Detector
	analyzer   *analyze.Analyzer
	dispatcher *workflow.Dispatcher
	patcher    *patch.Builder
	reviewer   *review.Trigger
	supervisor *review.Supervisor
	redeployer *redeploy.Trigger
	discoverer Discoverer
	watchList  []config.WatchedProject
	logger     *slog.Logger

	automation atomic.Bool

	mu      sync.Mutex
	queues  map[string]chan models.DeploymentError
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Poller     *monitor.Poller
	Detector   *classify.Detector
	Analyzer   *analyze.Analyzer
	Dispatcher *workflow.Dispatcher
	Patcher    *patch.Builder
	Reviewer   *review.Trigger
	Supervisor *review.Supervisor
	Redeployer *redeploy.Trigger
	Discoverer Discoverer
	WatchList  []config.WatchedProject
}

// New creates a new Orchestrator. Automation starts enabled.
func New(deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		registry:   deps.Registry,
		ledger:     deps.Ledger,
		poller:     deps.Poller,
		detector:   deps.Detector,
		analyzer:   deps.Analyzer,
		dispatcher: deps.Dispatcher,
		patcher:    deps.Patcher,
		reviewer:   deps.Reviewer,
		supervisor: deps.Supervisor,
		redeployer: deps.Redeployer,
		discoverer: deps.Discoverer,
		watchList:  deps.WatchList,
		logger:     logger,
		queues:     make(map[string]chan models.DeploymentError),
	}
	o.automation.Store(true)
	o.poller.OnLogs = o.handleLogs
	return o
}

// StartMonitoring starts the poller and the deployment discovery loop.
func (o *Orchestrator) StartMonitoring(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.runCtx = runCtx
	o.cancel = cancel
	o.started = true
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.poller.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("poller exited", "error", err)
		}
	}()

	if o.discoverer != nil && len(o.watchList) > 0 {
		o.discover(runCtx)
		o.wg.Add(1)
		go o.discoverLoop(runCtx)
	}

	o.logger.Info("monitoring started", "projects", len(o.watchList))
	return nil
}

// StopMonitoring stops the poller and discovery loop and waits for the
// in-flight remediation workers to finish their current step.
func (o *Orchestrator) StopMonitoring() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	cancel := o.cancel
	queues := o.queues
	o.queues = make(map[string]chan models.DeploymentError)
	o.mu.Unlock()

	cancel()
	o.poller.Stop()
	for _, q := range queues {
		close(q)
	}
	o.wg.Wait()
	o.logger.Info("monitoring stopped")
}

// SetAutomationEnabled toggles autonomous remediation. Detection keeps
// running while disabled; new errors stay in detected status.
func (o *Orchestrator) SetAutomationEnabled(enabled bool) {
	o.automation.Store(enabled)
	o.logger.Info("automation toggled", "enabled", enabled)
}

// AutomationEnabled reports the automation toggle.
func (o *Orchestrator) AutomationEnabled() bool {
	return o.automation.Load()
}

// OnAction registers an observer for action transitions and returns the
// listener ID for removal.
func (o *Orchestrator) OnAction(fn ledger.Observer) string {
	return o.ledger.Subscribe(fn)
}

// RemoveListener removes a previously registered action observer.
func (o *Orchestrator) RemoveListener(id string) {
	o.ledger.Unsubscribe(id)
}

// ListDeployments returns all tracked deployments.
func (o *Orchestrator) ListDeployments() []models.Deployment {
	return o.registry.List()
}

// GetDeployment returns a single tracked deployment.
func (o *Orchestrator) GetDeployment(deploymentID string) (models.Deployment, error) {
	d, err := o.registry.Get(deploymentID)
	if err != nil {
		return models.Deployment{}, err
	}
	return *d, nil
}

// GetLogsFor returns the buffered log entries for a deployment.
func (o *Orchestrator) GetLogsFor(deploymentID string) ([]models.LogEntry, error) {
	return o.registry.Logs(deploymentID)
}

// GetErrorsFor returns the recorded errors for a deployment.
func (o *Orchestrator) GetErrorsFor(deploymentID string) ([]models.DeploymentError, error) {
	return o.registry.Errors(deploymentID)
}

// GetActionsFor returns the audit trail for a deployment.
func (o *Orchestrator) GetActionsFor(deploymentID string) []models.AutomatedAction {
	return o.ledger.ForDeployment(deploymentID)
}

// Track adds a deployment to the watch set.
func (o *Orchestrator) Track(d models.Deployment) {
	o.poller.Track(d)
}

// handleLogs is the poller's log callback: classify, detect, enqueue.
func (o *Orchestrator) handleLogs(deploymentID string, appended []models.LogEntry) {
	de := o.detector.Detect(deploymentID, appended)
	if de == nil {
		return
	}

	if !o.automation.Load() {
		o.logger.Info("automation disabled, error left for manual handling",
			"deployment_id", deploymentID,
			"error_id", de.ID,
		)
		return
	}

	o.enqueue(*de)
}

// enqueue hands the error to the deployment's worker, starting one if
// needed. Per-deployment FIFO ordering gives the invariant that at most
// one remediation attempt is in flight per deployment.
func (o *Orchestrator) enqueue(de models.DeploymentError) {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	q, ok := o.queues[de.DeploymentID]
	if !ok {
		q = make(chan models.DeploymentError, queueCapacity)
		o.queues[de.DeploymentID] = q
		o.wg.Add(1)
		go o.worker(q)
	}

	// The send stays under the lock: StopMonitoring clears started and
	// swaps the queue map under the same lock before closing the old
	// channels, so a channel obtained here is never closed before the
	// send. The default arm keeps the send from blocking.
	var full bool
	select {
	case q <- de:
	default:
		full = true
	}
	o.mu.Unlock()

	if full {
		o.logger.Error("remediation queue full, dropping error",
			"deployment_id", de.DeploymentID,
			"error_id", de.ID,
		)
		o.failError(de.DeploymentID, de.ID, "remediation queue full")
	}
}

// worker drains one deployment's error queue, one attempt at a time.
func (o *Orchestrator) worker(q chan models.DeploymentError) {
	defer o.wg.Done()
	for de := range q {
		o.remediate(de)
	}
}

// discoverLoop periodically pulls each watched project's recent
// deployments into the watch set.
func (o *Orchestrator) discoverLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.discover(ctx)
		}
	}
}

func (o *Orchestrator) discover(ctx context.Context) {
	for _, wp := range o.watchList {
		infos, err := o.discoverer.ListDeployments(ctx, wp.Project)
		if err != nil {
			o.logger.Debug("deployment discovery failed, will retry",
				"project", wp.Project,
				"error", err,
			)
			continue
		}

		for i := range infos {
			d := monitor.ToDeployment(&infos[i])
			if wp.Branch != "" && d.Branch != "" && d.Branch != wp.Branch {
				continue
			}
			if wp.Environment != "" && string(d.Environment) != wp.Environment {
				continue
			}
			if d.Status.IsTerminal() && d.Status != models.DeploymentStatusError {
				continue
			}
			o.poller.Track(d)
		}
	}
}

// failError moves a deployment error to failed, logging if the registry
// rejects the transition.
func (o *Orchestrator) failError(deploymentID, errorID, reason string) {
	err := o.registry.UpdateError(deploymentID, errorID, func(de *models.DeploymentError) {
		de.Status = models.ErrorStatusFailed
		de.Analysis = appendNote(de.Analysis, reason)
	})
	if err != nil {
		o.logger.Error("failed to mark error failed",
			"deployment_id", deploymentID,
			"error_id", errorID,
			"error", err,
		)
	}
}

// beginAction records a pending action and immediately moves it to
// in_progress, returning its ID.
func (o *Orchestrator) beginAction(deploymentID string, t models.ActionType, description string) string {
	action := models.AutomatedAction{
		ID:           uuid.NewString(),
		DeploymentID: deploymentID,
		Type:         t,
		Status:       models.ActionStatusPending,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	}
	o.ledger.Append(action)
	if err := o.ledger.Transition(action.ID, models.ActionStatusInProgress, ""); err != nil {
		o.logger.Error("failed to start action", "action_id", action.ID, "error", err)
	}
	return action.ID
}

func (o *Orchestrator) completeAction(actionID, result string) {
	if err := o.ledger.Transition(actionID, models.ActionStatusCompleted, result); err != nil {
		o.logger.Error("failed to complete action", "action_id", actionID, "error", err)
	}
}

func (o *Orchestrator) failAction(actionID, result string) {
	if err := o.ledger.Transition(actionID, models.ActionStatusFailed, result); err != nil {
		o.logger.Error("failed to fail action", "action_id", actionID, "error", err)
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return fmt.Sprintf("%s\n%s", existing, note)
}
