package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/remedyops/remedy/internal/models"
)

type fakeEngine struct {
	available  bool
	triggerErr error
	execID     string
	states     []ExecutionState
	stateErr   error
	polls      int
	inputs     map[string]any
}

func (e *fakeEngine) Available(ctx context.Context) bool { return e.available }

func (e *fakeEngine) TriggerExecution(ctx context.Context, flowID string, inputs map[string]any) (string, error) {
	e.inputs = inputs
	if e.triggerErr != nil {
		return "", e.triggerErr
	}
	return e.execID, nil
}

func (e *fakeEngine) GetExecution(ctx context.Context, executionID string) (ExecutionState, error) {
	if e.stateErr != nil {
		return "", e.stateErr
	}
	i := e.polls
	e.polls++
	if i >= len(e.states) {
		i = len(e.states) - 1
	}
	return e.states[i], nil
}

func testDeployment() *models.Deployment {
	return &models.Deployment{
		ID:     "dep-1",
		Name:   "web-app",
		Branch: "main",
	}
}

func testError() *models.DeploymentError {
	return &models.DeploymentError{
		ID:        "err-1",
		ErrorText: "build failed",
		LogEntries: []models.LogEntry{
			{Message: "build failed"},
		},
	}
}

func TestDispatchFallsBackWhenEngineUnreachable(t *testing.T) {
	engine := &fakeEngine{available: false}
	d := NewDispatcher(engine, "remediation", nil)

	result, err := d.Dispatch(context.Background(), testDeployment(), testError())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.FellBack {
		t.Error("FellBack = false with an unreachable engine")
	}
	if result.ExecutionID != "" {
		t.Errorf("ExecutionID = %q on fallback, want empty", result.ExecutionID)
	}
}

func TestDispatchFallsBackWhenTriggerFails(t *testing.T) {
	engine := &fakeEngine{available: true, triggerErr: errors.New("status 500")}
	d := NewDispatcher(engine, "remediation", nil)

	result, err := d.Dispatch(context.Background(), testDeployment(), testError())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.FellBack {
		t.Error("FellBack = false after a failed trigger")
	}
}

func TestDispatchTriggersExecution(t *testing.T) {
	engine := &fakeEngine{available: true, execID: "exec-42"}
	d := NewDispatcher(engine, "remediation", nil)

	result, err := d.Dispatch(context.Background(), testDeployment(), testError())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.FellBack {
		t.Error("FellBack = true despite a healthy engine")
	}
	if result.ExecutionID != "exec-42" {
		t.Errorf("ExecutionID = %q, want exec-42", result.ExecutionID)
	}

	if engine.inputs["deploymentId"] != "dep-1" {
		t.Errorf("inputs missing deployment id: %v", engine.inputs)
	}
	if engine.inputs["errorText"] != "build failed" {
		t.Errorf("inputs missing error text: %v", engine.inputs)
	}
}

func TestWatchExecutionReportsTerminalState(t *testing.T) {
	engine := &fakeEngine{
		available: true,
		states:    []ExecutionState{ExecutionRunning, ExecutionRunning, ExecutionSuccess},
	}
	d := NewDispatcher(engine, "remediation", nil)
	d.pollInterval = 5 * time.Millisecond
	d.pollDeadline = time.Second

	done := make(chan struct{})
	var state ExecutionState
	var watchErr error
	d.WatchExecution(context.Background(), "exec-42", func(s ExecutionState, err error) {
		state, watchErr = s, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchExecution never reported")
	}

	if watchErr != nil {
		t.Fatalf("watch error: %v", watchErr)
	}
	if state != ExecutionSuccess {
		t.Errorf("state = %s, want SUCCESS", state)
	}
	if engine.polls < 3 {
		t.Errorf("engine polled %d times, want at least 3", engine.polls)
	}
}

func TestWatchExecutionDeadline(t *testing.T) {
	engine := &fakeEngine{
		available: true,
		states:    []ExecutionState{ExecutionRunning},
	}
	d := NewDispatcher(engine, "remediation", nil)
	d.pollInterval = 5 * time.Millisecond
	d.pollDeadline = 20 * time.Millisecond

	done := make(chan struct{})
	var watchErr error
	d.WatchExecution(context.Background(), "exec-42", func(s ExecutionState, err error) {
		watchErr = err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchExecution never reported")
	}

	if watchErr == nil {
		t.Error("watch error = nil after deadline, want timeout error")
	}
}

func TestExecutionStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    ExecutionState
		terminal bool
	}{
		{ExecutionCreated, false},
		{ExecutionRunning, false},
		{ExecutionSuccess, true},
		{ExecutionFailed, true},
		{ExecutionKilled, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}
