package classify

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/registry"
)

// Detector raises DeploymentErrors from newly classified log entries.
// Detection is idempotent: while a non-terminal error is outstanding for
// a deployment, further error-level lines belong to the same failure
// episode and do not create duplicates.
type Detector struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewDetector creates a new Detector.
func NewDetector(reg *registry.Registry, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		registry: reg,
		logger:   logger,
	}
}

// Detect inspects newly appended entries for a deployment and returns the
// resulting DeploymentError, or nil when no new failure episode started.
// The error references every error-level entry seen so far for the
// deployment and is recorded in the registry with status detected.
func (d *Detector) Detect(deploymentID string, appended []models.LogEntry) *models.DeploymentError {
	var trigger *models.LogEntry
	for i := range appended {
		if appended[i].Level == models.LogLevelError {
			trigger = &appended[i]
			break
		}
	}
	if trigger == nil {
		return nil
	}

	if d.registry.HasOpenError(deploymentID) {
		d.logger.Debug("error line folded into outstanding failure episode",
			"deployment_id", deploymentID,
			"message", trigger.Message,
		)
		return nil
	}

	logs, err := d.registry.Logs(deploymentID)
	if err != nil {
		d.logger.Error("failed to read logs for error detection",
			"deployment_id", deploymentID,
			"error", err,
		)
		return nil
	}

	var errorLines []models.LogEntry
	for _, le := range logs {
		if le.Level == models.LogLevelError {
			errorLines = append(errorLines, le)
		}
	}

	de := models.DeploymentError{
		ID:           uuid.NewString(),
		DeploymentID: deploymentID,
		ErrorText:    trigger.Message,
		LogEntries:   errorLines,
		Timestamp:    time.Now().UTC(),
		Status:       models.ErrorStatusDetected,
	}

	if err := d.registry.AppendError(deploymentID, de); err != nil {
		d.logger.Error("failed to record deployment error",
			"deployment_id", deploymentID,
			"error", err,
		)
		return nil
	}

	d.logger.Info("deployment error detected",
		"deployment_id", deploymentID,
		"error_id", de.ID,
		"error_text", de.ErrorText,
	)

	return &de
}
