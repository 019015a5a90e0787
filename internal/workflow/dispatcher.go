package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/remedyops/remedy/internal/models"
)

// DispatchResult reports how a remediation request was handed off.
type DispatchResult struct {
	// ExecutionID is the engine's execution ID, empty on fallback.
	ExecutionID string
	// FellBack is true when the engine was unreachable and the
	// remaining steps must run in process.
	FellBack bool
}

// Dispatcher submits remediation requests to the engine. External
// orchestration is an optimization: when the engine is unreachable the
// dispatcher reports fallback and the caller performs the remaining
// steps synchronously.
type Dispatcher struct {
	engine       Engine
	flowID       string
	pollInterval time.Duration
	pollDeadline time.Duration
	logger       *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(engine Engine, flowID string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		engine:       engine,
		flowID:       flowID,
		pollInterval: 15 * time.Second,
		pollDeadline: 15 * time.Minute,
		logger:       logger,
	}
}

// Dispatch submits the remediation request for one deployment error.
// The returned result distinguishes an accepted engine execution from
// the in-process fallback; it never fails the pipeline over an
// unreachable engine.
func (d *Dispatcher) Dispatch(ctx context.Context, dep *models.Deployment, de *models.DeploymentError) (*DispatchResult, error) {
	if !d.engine.Available(ctx) {
		d.logger.Warn("workflow engine unreachable, falling back to in-process remediation",
			"deployment_id", dep.ID,
		)
		return &DispatchResult{FellBack: true}, nil
	}

	inputs := map[string]any{
		"deploymentId": dep.ID,
		"projectName":  dep.Name,
		"branch":       dep.Branch,
		"errorText":    de.ErrorText,
		"logLines":     logMessages(de.LogEntries),
	}

	executionID, err := d.engine.TriggerExecution(ctx, d.flowID, inputs)
	if err != nil {
		d.logger.Warn("workflow trigger failed, falling back to in-process remediation",
			"deployment_id", dep.ID,
			"error", err,
		)
		return &DispatchResult{FellBack: true}, nil
	}

	d.logger.Info("workflow execution triggered",
		"deployment_id", dep.ID,
		"execution_id", executionID,
	)

	return &DispatchResult{ExecutionID: executionID}, nil
}

// WatchExecution polls an execution until it reaches a terminal state or
// the deadline passes, then invokes done exactly once with the outcome.
// It runs in its own goroutine so the rest of the pipeline is not
// blocked while the engine works.
func (d *Dispatcher) WatchExecution(ctx context.Context, executionID string, done func(ExecutionState, error)) {
	go func() {
		deadline := time.Now().Add(d.pollDeadline)
		ticker := time.NewTicker(d.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				done("", ctx.Err())
				return
			case <-ticker.C:
				if time.Now().After(deadline) {
					done("", fmt.Errorf("execution %s did not finish within %s", executionID, d.pollDeadline))
					return
				}

				state, err := d.engine.GetExecution(ctx, executionID)
				if err != nil {
					// Transient: try again on the next tick.
					d.logger.Debug("execution poll failed",
						"execution_id", executionID,
						"error", err,
					)
					continue
				}

				if state.IsTerminal() {
					done(state, nil)
					return
				}
			}
		}
	}()
}

func logMessages(entries []models.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}
