// Package patch turns a fix strategy into a reviewable change request.
package patch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/scm"
)

// Host is the source-control contract the builder needs.
type Host interface {
	CreateBranch(ctx context.Context, base, branch string) error
	UpdateFile(ctx context.Context, path, content, message, branch string) error
	DeleteFile(ctx context.Context, path, message, branch string) error
	CreateChangeRequest(ctx context.Context, title, body, base, head string) (*scm.ChangeRequest, error)
}

// Builder creates the fix branch, writes the file changes, and opens the
// change request. Any failure aborts the whole step: a completed build
// always refers to an opened change.
type Builder struct {
	host   Host
	logger *slog.Logger
}

// NewBuilder creates a new Builder.
func NewBuilder(host Host, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		host:   host,
		logger: logger,
	}
}

// Result describes the opened change.
type Result struct {
	Change *scm.ChangeRequest
	Branch string
}

// Build applies the strategy on a fresh branch and opens a change request.
func (b *Builder) Build(ctx context.Context, dep *models.Deployment, strategy models.FixStrategy, analysis *models.AnalysisResult) (*Result, error) {
	branch := branchName(strategy.Type)
	base := dep.Branch
	if base == "" {
		base = "main"
	}

	b.logger.Info("creating fix branch",
		"deployment_id", dep.ID,
		"branch", branch,
		"base", base,
	)

	if err := b.host.CreateBranch(ctx, base, branch); err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}

	for _, change := range strategy.Changes {
		var err error
		switch change.Action {
		case models.FileActionDelete:
			err = b.host.DeleteFile(ctx, change.Path, strategy.CommitMessage, branch)
		default:
			err = b.host.UpdateFile(ctx, change.Path, change.Content, strategy.CommitMessage, branch)
		}
		if err != nil {
			return nil, fmt.Errorf("applying change to %s: %w", change.Path, err)
		}
	}

	title := fmt.Sprintf("fix(%s): %s", strategy.Type, strategy.Description)
	body := changeBody(dep, strategy, analysis)

	cr, err := b.host.CreateChangeRequest(ctx, title, body, base, branch)
	if err != nil {
		return nil, fmt.Errorf("opening change request: %w", err)
	}

	b.logger.Info("change request opened",
		"deployment_id", dep.ID,
		"number", cr.Number,
		"url", cr.URL,
	)

	return &Result{Change: cr, Branch: branch}, nil
}

func branchName(fixType models.FixType) string {
	return fmt.Sprintf("remedy/fix-%s-%s", fixType, uuid.NewString()[:8])
}

// changeBody renders the change request description template.
func changeBody(dep *models.Deployment, strategy models.FixStrategy, analysis *models.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString("## Automated deployment fix\n\n")
	fmt.Fprintf(&sb, "- **Deployment**: %s\n", dep.Name)
	fmt.Fprintf(&sb, "- **Environment**: %s\n", dep.Environment)
	fmt.Fprintf(&sb, "- **Branch**: %s\n", dep.Branch)
	fmt.Fprintf(&sb, "- **Fix type**: %s\n\n", strategy.Type)

	if analysis != nil && analysis.RootCause != "" {
		sb.WriteString("### Root cause\n\n")
		sb.WriteString(analysis.RootCause)
		sb.WriteString("\n\n")
	}

	sb.WriteString("### Files changed\n\n")
	for _, change := range strategy.Changes {
		fmt.Fprintf(&sb, "- `%s` (%s)\n", change.Path, change.Action)
	}

	sb.WriteString("\n---\n")
	sb.WriteString("This change was opened automatically after a failed deployment. ")
	sb.WriteString("It merges only once checks pass; close it to keep the failure for manual handling.\n")

	return sb.String()
}
