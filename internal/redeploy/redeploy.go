// Package redeploy requests a fresh deployment after a merged fix,
// closing the remediation loop.
package redeploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/monitor"
	"github.com/remedyops/remedy/internal/platform"
)

// Platform is the deployment platform contract the trigger needs.
type Platform interface {
	TriggerDeployment(ctx context.Context, project, environment, branch string) (*platform.DeploymentInfo, error)
}

// Tracker re-enters new deployments into the poller's watch set.
type Tracker interface {
	Track(d models.Deployment)
}

// Trigger requests new deployments after successful merges.
type Trigger struct {
	platform Platform
	tracker  Tracker
	logger   *slog.Logger
}

// NewTrigger creates a new redeploy Trigger.
func NewTrigger(pf Platform, tracker Tracker, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		platform: pf,
		tracker:  tracker,
		logger:   logger,
	}
}

// Redeploy requests a new deployment of the failed deployment's project
// and branch and re-enters it into the watch set.
func (t *Trigger) Redeploy(ctx context.Context, dep *models.Deployment) (*models.Deployment, error) {
	info, err := t.platform.TriggerDeployment(ctx, dep.Name, string(dep.Environment), dep.Branch)
	if err != nil {
		return nil, fmt.Errorf("triggering redeployment of %s: %w", dep.Name, err)
	}

	next := monitor.ToDeployment(info)
	t.tracker.Track(next)

	t.logger.Info("redeployment triggered",
		"deployment_id", dep.ID,
		"new_deployment_id", next.ID,
		"project", dep.Name,
		"branch", dep.Branch,
	)

	return &next, nil
}
