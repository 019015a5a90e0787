package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/registry"
)

// Remediator is the orchestrator surface the API exposes.
type Remediator interface {
	ListDeployments() []models.Deployment
	GetDeployment(id string) (models.Deployment, error)
	GetErrorsFor(id string) ([]models.DeploymentError, error)
	GetActionsFor(id string) []models.AutomatedAction
	SetAutomationEnabled(enabled bool)
	AutomationEnabled() bool
}

// DeploymentHandler serves deployment, error and action queries.
type DeploymentHandler struct {
	remediator Remediator
	logger     *slog.Logger
}

// NewDeploymentHandler creates a deployment handler.
func NewDeploymentHandler(remediator Remediator, logger *slog.Logger) *DeploymentHandler {
	return &DeploymentHandler{
		remediator: remediator,
		logger:     logger.With("component", "api"),
	}
}

// List handles GET /v1/deployments.
func (h *DeploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	deployments := h.remediator.ListDeployments()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deployments": deployments,
		"count":       len(deployments),
	})
}

// Get handles GET /v1/deployments/{id}.
func (h *DeploymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dep, err := h.remediator.GetDeployment(id)
	if err != nil {
		if err == registry.ErrNotFound {
			WriteError(w, http.StatusNotFound, "deployment not found")
			return
		}
		h.logger.Error("getting deployment", "deployment_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, dep)
}

// Errors handles GET /v1/deployments/{id}/errors.
func (h *DeploymentHandler) Errors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	errs, err := h.remediator.GetErrorsFor(id)
	if err != nil {
		if err == registry.ErrNotFound {
			WriteError(w, http.StatusNotFound, "deployment not found")
			return
		}
		h.logger.Error("getting errors", "deployment_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"errors": errs,
		"count":  len(errs),
	})
}

// Actions handles GET /v1/deployments/{id}/actions.
func (h *DeploymentHandler) Actions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	actions := h.remediator.GetActionsFor(id)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}
