package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/registry"
)

// LogSource exposes the buffered logs of a deployment.
type LogSource interface {
	GetLogsFor(deploymentID string) ([]models.LogEntry, error)
}

// LogsHandler serves buffered deployment logs.
type LogsHandler struct {
	source LogSource
	logger *slog.Logger
}

// NewLogsHandler creates a logs handler.
func NewLogsHandler(source LogSource, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{
		source: source,
		logger: logger.With("component", "api"),
	}
}

// List handles GET /v1/deployments/{id}/logs.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	logs, err := h.source.GetLogsFor(id)
	if err != nil {
		if err == registry.ErrNotFound {
			WriteError(w, http.StatusNotFound, "deployment not found")
			return
		}
		h.logger.Error("getting logs", "deployment_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}
