// Package review requests automated code review on a change and
// supervises its checks until merge or deadline.
package review

import (
	"context"
	"log/slog"
)

// Service is the code-review collaborator contract.
type Service interface {
	IsInstalled(ctx context.Context, owner, repo string) (bool, error)
	RequestReview(ctx context.Context, owner, repo string, number int) error
}

// Trigger asks the review service to analyze a change. All failures are
// best effort: a missing or unreachable service skips the step.
type Trigger struct {
	service Service
	owner   string
	repo    string
	logger  *slog.Logger
}

// NewTrigger creates a new review Trigger.
func NewTrigger(service Service, owner, repo string, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		service: service,
		owner:   owner,
		repo:    repo,
		logger:  logger,
	}
}

// Request asks for a review of the change. It reports whether a review
// was actually requested; it never fails the pipeline.
func (t *Trigger) Request(ctx context.Context, number int) bool {
	installed, err := t.service.IsInstalled(ctx, t.owner, t.repo)
	if err != nil {
		t.logger.Warn("review service unreachable, skipping review",
			"change", number,
			"error", err,
		)
		return false
	}
	if !installed {
		t.logger.Info("review service not installed on repository, skipping review",
			"change", number,
		)
		return false
	}

	if err := t.service.RequestReview(ctx, t.owner, t.repo, number); err != nil {
		t.logger.Warn("review request failed, continuing without review",
			"change", number,
			"error", err,
		)
		return false
	}

	t.logger.Info("automated review requested", "change", number)
	return true
}
