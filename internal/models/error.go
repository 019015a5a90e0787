package models

import "time"

// ErrorStatus tracks a deployment error through the remediation loop.
// Transitions move strictly forward: detected -> analyzing -> fixing ->
// resolved or failed. The terminal states are immutable.
type ErrorStatus string

const (
	ErrorStatusDetected  ErrorStatus = "detected"
	ErrorStatusAnalyzing ErrorStatus = "analyzing"
	ErrorStatusFixing    ErrorStatus = "fixing"
	ErrorStatusResolved  ErrorStatus = "resolved"
	ErrorStatusFailed    ErrorStatus = "failed"
)

// IsTerminal reports whether the error status is final.
func (s ErrorStatus) IsTerminal() bool {
	return s == ErrorStatusResolved || s == ErrorStatusFailed
}

// errorStatusRank orders statuses along the forward-only path.
var errorStatusRank = map[ErrorStatus]int{
	ErrorStatusDetected:  0,
	ErrorStatusAnalyzing: 1,
	ErrorStatusFixing:    2,
	ErrorStatusResolved:  3,
	ErrorStatusFailed:    3,
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only state machine.
func (s ErrorStatus) CanTransitionTo(next ErrorStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := errorStatusRank[s]
	if !ok {
		return false
	}
	to, ok := errorStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// DeploymentError represents one failure episode detected in a
// deployment's logs, together with its remediation state.
type DeploymentError struct {
	ID           string      `json:"id"`
	DeploymentID string      `json:"deployment_id"`
	ErrorText    string      `json:"error_text"`
	LogEntries   []LogEntry  `json:"log_entries,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Status       ErrorStatus `json:"status"`
	Analysis     string      `json:"analysis,omitempty"`
	SuggestedFix string      `json:"suggested_fix,omitempty"`
	FixApplied   bool        `json:"fix_applied"`
}
