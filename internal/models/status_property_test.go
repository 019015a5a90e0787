package models

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genErrorStatus generates a random ErrorStatus.
func genErrorStatus() gopter.Gen {
	return gen.OneConstOf(
		ErrorStatusDetected,
		ErrorStatusAnalyzing,
		ErrorStatusFixing,
		ErrorStatusResolved,
		ErrorStatusFailed,
	)
}

// genActionStatus generates a random ActionStatus.
func genActionStatus() gopter.Gen {
	return gen.OneConstOf(
		ActionStatusPending,
		ActionStatusInProgress,
		ActionStatusCompleted,
		ActionStatusFailed,
	)
}

// TestErrorStatusStateMachine verifies that error status transitions only
// move forward along detected -> analyzing -> fixing -> resolved/failed
// and that terminal statuses admit no further transitions.
func TestErrorStatusStateMachine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	rank := map[ErrorStatus]int{
		ErrorStatusDetected:  0,
		ErrorStatusAnalyzing: 1,
		ErrorStatusFixing:    2,
		ErrorStatusResolved:  3,
		ErrorStatusFailed:    3,
	}

	properties.Property("transitions never move backward or sideways", prop.ForAll(
		func(from, to ErrorStatus) bool {
			if from.CanTransitionTo(to) {
				return rank[to] > rank[from]
			}
			return true
		},
		genErrorStatus(),
		genErrorStatus(),
	))

	properties.Property("terminal statuses admit no transition", prop.ForAll(
		func(to ErrorStatus) bool {
			return !ErrorStatusResolved.CanTransitionTo(to) &&
				!ErrorStatusFailed.CanTransitionTo(to)
		},
		genErrorStatus(),
	))

	properties.Property("every non-terminal status can still fail", prop.ForAll(
		func(from ErrorStatus) bool {
			if from.IsTerminal() {
				return true
			}
			return from.CanTransitionTo(ErrorStatusFailed)
		},
		genErrorStatus(),
	))

	properties.TestingRun(t)
}

// TestActionStatusStateMachine verifies the same forward-only discipline
// for automated action statuses.
func TestActionStatusStateMachine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	rank := map[ActionStatus]int{
		ActionStatusPending:    0,
		ActionStatusInProgress: 1,
		ActionStatusCompleted:  2,
		ActionStatusFailed:     2,
	}

	properties.Property("transitions never move backward or sideways", prop.ForAll(
		func(from, to ActionStatus) bool {
			if from.CanTransitionTo(to) {
				return rank[to] > rank[from]
			}
			return true
		},
		genActionStatus(),
		genActionStatus(),
	))

	properties.Property("terminal statuses admit no transition", prop.ForAll(
		func(to ActionStatus) bool {
			return !ActionStatusCompleted.CanTransitionTo(to) &&
				!ActionStatusFailed.CanTransitionTo(to)
		},
		genActionStatus(),
	))

	properties.TestingRun(t)
}

func TestErrorStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   ErrorStatus
		terminal bool
	}{
		{ErrorStatusDetected, false},
		{ErrorStatusAnalyzing, false},
		{ErrorStatusFixing, false},
		{ErrorStatusResolved, true},
		{ErrorStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}
