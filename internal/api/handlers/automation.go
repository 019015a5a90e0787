package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// AutomationHandler toggles and reports the automation switch.
type AutomationHandler struct {
	remediator Remediator
	logger     *slog.Logger
}

// NewAutomationHandler creates an automation handler.
func NewAutomationHandler(remediator Remediator, logger *slog.Logger) *AutomationHandler {
	return &AutomationHandler{
		remediator: remediator,
		logger:     logger.With("component", "api"),
	}
}

type automationState struct {
	Enabled bool `json:"enabled"`
}

// Get handles GET /v1/automation.
func (h *AutomationHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, automationState{Enabled: h.remediator.AutomationEnabled()})
}

// Set handles PUT /v1/automation.
func (h *AutomationHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req automationState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.remediator.SetAutomationEnabled(req.Enabled)
	h.logger.Info("automation toggled", "enabled", req.Enabled)

	WriteJSON(w, http.StatusOK, automationState{Enabled: req.Enabled})
}
