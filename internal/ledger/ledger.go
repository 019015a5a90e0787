// Package ledger provides the append-only record of every orchestration
// step, with synchronous fan-out to registered observers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/remedyops/remedy/internal/models"
)

// Common errors returned by ledger operations.
var (
	// ErrActionNotFound is returned when an action cannot be found.
	ErrActionNotFound = errors.New("action not found")
	// ErrInvalidTransition is returned when an action update would move
	// its state machine backward or mutate a terminal action.
	ErrInvalidTransition = errors.New("invalid action transition")
)

// Observer receives every action transition, synchronously, in
// registration order.
type Observer func(models.AutomatedAction)

// Archive persists action transitions outside the process. Archive
// failures never fail the ledger; the in-memory record stays
// authoritative.
type Archive interface {
	Record(ctx context.Context, action models.AutomatedAction) error
}

type observerReg struct {
	id string
	fn Observer
}

// Ledger is the in-memory audit trail of automated actions.
type Ledger struct {
	mu           sync.Mutex
	actions      map[string]models.AutomatedAction
	byDeployment map[string][]string
	observers    []observerReg
	nextObserver int

	notifyMu sync.Mutex

	archive Archive
	logger  *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithArchive attaches a durable archive for action transitions.
func WithArchive(a Archive) Option {
	return func(l *Ledger) {
		l.archive = a
	}
}

// New creates an empty Ledger.
func New(logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		actions:      make(map[string]models.AutomatedAction),
		byDeployment: make(map[string][]string),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a new action. The action's CreatedAt is stamped if zero.
func (l *Ledger) Append(action models.AutomatedAction) {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	l.actions[action.ID] = action
	l.byDeployment[action.DeploymentID] = append(l.byDeployment[action.DeploymentID], action.ID)
	l.mu.Unlock()

	l.fanOut(action)
}

// Transition moves an action to a new status, recording an optional
// result. Terminal actions are immutable; backward moves are rejected.
func (l *Ledger) Transition(actionID string, status models.ActionStatus, result string) error {
	l.mu.Lock()
	action, ok := l.actions[actionID]
	if !ok {
		l.mu.Unlock()
		return ErrActionNotFound
	}
	if !action.Status.CanTransitionTo(status) {
		l.mu.Unlock()
		return ErrInvalidTransition
	}

	action.Status = status
	if result != "" {
		action.Result = result
	}
	if status.IsTerminal() {
		now := time.Now().UTC()
		action.CompletedAt = &now
	}
	l.actions[actionID] = action
	l.mu.Unlock()

	l.fanOut(action)
	return nil
}

// Get returns a copy of the action with the given ID.
func (l *Ledger) Get(actionID string) (models.AutomatedAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	action, ok := l.actions[actionID]
	if !ok {
		return models.AutomatedAction{}, ErrActionNotFound
	}
	return action, nil
}

// ForDeployment returns all actions recorded for a deployment, in
// creation order.
func (l *Ledger) ForDeployment(deploymentID string) []models.AutomatedAction {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.byDeployment[deploymentID]
	out := make([]models.AutomatedAction, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.actions[id])
	}
	return out
}

// Subscribe registers an observer and returns its registration ID.
func (l *Ledger) Subscribe(fn Observer) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextObserver++
	id := subscriberID(l.nextObserver)
	l.observers = append(l.observers, observerReg{id: id, fn: fn})
	return id
}

// Unsubscribe removes a previously registered observer.
func (l *Ledger) Unsubscribe(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, reg := range l.observers {
		if reg.id == id {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of registered observers.
func (l *Ledger) ObserverCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.observers)
}

// fanOut delivers one transition to every observer, synchronously, in
// registration order, and records it to the archive when configured.
func (l *Ledger) fanOut(action models.AutomatedAction) {
	l.mu.Lock()
	observers := make([]observerReg, len(l.observers))
	copy(observers, l.observers)
	l.mu.Unlock()

	l.notifyMu.Lock()
	for _, reg := range observers {
		reg.fn(action)
	}
	l.notifyMu.Unlock()

	if l.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.archive.Record(ctx, action); err != nil {
			l.logger.Warn("failed to archive action",
				"action_id", action.ID,
				"deployment_id", action.DeploymentID,
				"error", err,
			)
		}
	}
}

func subscriberID(n int) string {
	return fmt.Sprintf("obs-%d", n)
}
