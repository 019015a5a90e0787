package models

import "time"

// ActionType identifies the orchestration step an automated action records.
type ActionType string

const (
	ActionTypeAnalyzeCode     ActionType = "analyze_code"
	ActionTypeTriggerWorkflow ActionType = "trigger_workflow"
	ActionTypeCreatePR        ActionType = "create_pr"
	ActionTypeFixIssue        ActionType = "fix_issue"
	ActionTypeRetryDeployment ActionType = "retry_deployment"
)

// ActionStatus tracks an automated action's lifecycle.
// Transitions move strictly forward: pending -> in_progress -> completed
// or failed. Terminal actions are immutable.
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusCompleted  ActionStatus = "completed"
	ActionStatusFailed     ActionStatus = "failed"
)

// IsTerminal reports whether the action status is final.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusCompleted || s == ActionStatusFailed
}

var actionStatusRank = map[ActionStatus]int{
	ActionStatusPending:    0,
	ActionStatusInProgress: 1,
	ActionStatusCompleted:  2,
	ActionStatusFailed:     2,
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only state machine.
func (s ActionStatus) CanTransitionTo(next ActionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := actionStatusRank[s]
	if !ok {
		return false
	}
	to, ok := actionStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// AutomatedAction records one orchestration step for the audit trail.
// Actions are never deleted; the full set, keyed by deployment ID, forms
// the action ledger.
type AutomatedAction struct {
	ID           string       `json:"id"`
	DeploymentID string       `json:"deployment_id"`
	Type         ActionType   `json:"type"`
	Status       ActionStatus `json:"status"`
	Description  string       `json:"description"`
	Result       string       `json:"result,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
