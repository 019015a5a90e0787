package redeploy

import (
	"context"
	"errors"
	"testing"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/platform"
)

type fakePlatform struct {
	project     string
	environment string
	branch      string
	info        *platform.DeploymentInfo
	err         error
}

func (p *fakePlatform) TriggerDeployment(ctx context.Context, project, environment, branch string) (*platform.DeploymentInfo, error) {
	p.project, p.environment, p.branch = project, environment, branch
	return p.info, p.err
}

type fakeTracker struct {
	tracked []models.Deployment
}

func (t *fakeTracker) Track(d models.Deployment) {
	t.tracked = append(t.tracked, d)
}

func TestRedeployTriggersAndTracks(t *testing.T) {
	pf := &fakePlatform{info: &platform.DeploymentInfo{
		ID:         "dep-new",
		Name:       "web-app",
		ReadyState: "QUEUED",
		Target:     "production",
		GitBranch:  "main",
	}}
	tracker := &fakeTracker{}

	trigger := NewTrigger(pf, tracker, nil)
	failed := &models.Deployment{
		ID:          "dep-old",
		Name:        "web-app",
		Environment: models.EnvironmentProduction,
		Branch:      "main",
		Status:      models.DeploymentStatusError,
	}

	next, err := trigger.Redeploy(context.Background(), failed)
	if err != nil {
		t.Fatalf("Redeploy: %v", err)
	}

	if pf.project != "web-app" || pf.environment != "production" || pf.branch != "main" {
		t.Errorf("trigger args = (%q, %q, %q)", pf.project, pf.environment, pf.branch)
	}
	if next.ID != "dep-new" {
		t.Errorf("next.ID = %q", next.ID)
	}
	if next.Status != models.DeploymentStatusQueued {
		t.Errorf("next.Status = %s, want queued", next.Status)
	}

	if len(tracker.tracked) != 1 || tracker.tracked[0].ID != "dep-new" {
		t.Errorf("tracked = %+v, want only dep-new", tracker.tracked)
	}
}

func TestRedeployPlatformFailure(t *testing.T) {
	pf := &fakePlatform{err: errors.New("quota exceeded")}
	tracker := &fakeTracker{}

	trigger := NewTrigger(pf, tracker, nil)
	_, err := trigger.Redeploy(context.Background(), &models.Deployment{Name: "web-app", Branch: "main"})
	if err == nil {
		t.Fatal("expected error from platform failure")
	}
	if len(tracker.tracked) != 0 {
		t.Errorf("tracked %d deployments after a failed trigger, want 0", len(tracker.tracked))
	}
}
