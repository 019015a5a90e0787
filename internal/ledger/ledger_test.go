package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/remedyops/remedy/internal/models"
)

func testAction(id string) models.AutomatedAction {
	return models.AutomatedAction{
		ID:           id,
		DeploymentID: "dep-1",
		Type:         models.ActionTypeAnalyzeCode,
		Status:       models.ActionStatusPending,
		Description:  "Analyze build failure",
	}
}

func TestAppendAndGet(t *testing.T) {
	l := New(nil)
	l.Append(testAction("act-1"))

	got, err := l.Get("act-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.ActionStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped on append")
	}

	if _, err := l.Get("missing"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrActionNotFound", err)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	l := New(nil)
	l.Append(testAction("act-1"))

	if err := l.Transition("act-1", models.ActionStatusInProgress, ""); err != nil {
		t.Fatalf("pending -> in_progress: %v", err)
	}
	if err := l.Transition("act-1", models.ActionStatusCompleted, "done"); err != nil {
		t.Fatalf("in_progress -> completed: %v", err)
	}

	got, err := l.Get("act-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Result != "done" {
		t.Errorf("result = %q, want %q", got.Result, "done")
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not stamped on terminal transition")
	}

	// Terminal actions are immutable.
	if err := l.Transition("act-1", models.ActionStatusFailed, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("terminal transition error = %v, want ErrInvalidTransition", err)
	}

	// Backward moves are rejected.
	l.Append(testAction("act-2"))
	if err := l.Transition("act-2", models.ActionStatusInProgress, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := l.Transition("act-2", models.ActionStatusPending, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("backward transition error = %v, want ErrInvalidTransition", err)
	}
}

func TestForDeploymentCreationOrder(t *testing.T) {
	l := New(nil)
	for _, id := range []string{"act-1", "act-2", "act-3"} {
		l.Append(testAction(id))
	}

	actions := l.ForDeployment("dep-1")
	if len(actions) != 3 {
		t.Fatalf("ForDeployment = %d actions, want 3", len(actions))
	}
	for i, want := range []string{"act-1", "act-2", "act-3"} {
		if actions[i].ID != want {
			t.Errorf("actions[%d].ID = %s, want %s", i, actions[i].ID, want)
		}
	}

	if got := l.ForDeployment("other"); len(got) != 0 {
		t.Errorf("ForDeployment(other) = %d actions, want 0", len(got))
	}
}

func TestObserversReceiveEveryTransition(t *testing.T) {
	l := New(nil)

	var seen []models.ActionStatus
	id := l.Subscribe(func(a models.AutomatedAction) {
		seen = append(seen, a.Status)
	})

	l.Append(testAction("act-1"))
	if err := l.Transition("act-1", models.ActionStatusInProgress, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := l.Transition("act-1", models.ActionStatusCompleted, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	want := []models.ActionStatus{
		models.ActionStatusPending,
		models.ActionStatusInProgress,
		models.ActionStatusCompleted,
	}
	if len(seen) != len(want) {
		t.Fatalf("observer saw %d transitions, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}

	l.Unsubscribe(id)
	l.Append(testAction("act-2"))
	if len(seen) != len(want) {
		t.Error("observer still notified after unsubscribe")
	}
	if l.ObserverCount() != 0 {
		t.Errorf("ObserverCount = %d after unsubscribe, want 0", l.ObserverCount())
	}
}

type failingArchive struct {
	calls int
}

func (f *failingArchive) Record(ctx context.Context, action models.AutomatedAction) error {
	f.calls++
	return errors.New("connection refused")
}

func TestArchiveFailureDoesNotFailLedger(t *testing.T) {
	archive := &failingArchive{}
	l := New(nil, WithArchive(archive))

	l.Append(testAction("act-1"))
	if err := l.Transition("act-1", models.ActionStatusInProgress, ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if archive.calls != 2 {
		t.Errorf("archive called %d times, want 2", archive.calls)
	}

	// The in-memory record stays authoritative.
	got, err := l.Get("act-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.ActionStatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}
