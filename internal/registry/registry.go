// Package registry provides the in-memory deployment registry, the single
// source of truth for deployment status queries.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/remedyops/remedy/internal/models"
)

// Common errors returned by registry operations.
var (
	// ErrNotFound is returned when a deployment is not tracked.
	ErrNotFound = errors.New("deployment not found")
	// ErrErrorNotFound is returned when a deployment error cannot be found.
	ErrErrorNotFound = errors.New("deployment error not found")
	// ErrInvalidTransition is returned when a status update would move a
	// state machine backward or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// maxLogEntries caps the stored log tail per deployment. Older entries are
// evicted; dedup bookkeeping is kept so evicted lines are not re-appended.
const maxLogEntries = 5000

// entry wraps one deployment with its own lock so that mutations for
// different deployments proceed in parallel.
type entry struct {
	mu   sync.Mutex
	d    models.Deployment
	seen map[string]struct{} // "position|message" keys of appended log lines
}

// Registry is the in-memory store of known deployments. It is constructed
// once per process and injected into every component that reads or writes
// deployment state.
type Registry struct {
	mu          sync.RWMutex
	deployments map[string]*entry
	order       []string // insertion order for List
	logger      *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		deployments: make(map[string]*entry),
		logger:      logger,
	}
}

// Upsert inserts or updates a deployment's descriptor fields. Log and
// error lists are owned by the registry and are not replaced on update.
func (r *Registry) Upsert(d models.Deployment) {
	r.mu.Lock()
	e, ok := r.deployments[d.ID]
	if !ok {
		e = &entry{seen: make(map[string]struct{})}
		r.deployments[d.ID] = e
		r.order = append(r.order, d.ID)
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	logs, errs := e.d.Logs, e.d.Errors
	e.d = d
	e.d.Logs, e.d.Errors = logs, errs
}

// Get returns a copy of the deployment with the given ID.
func (r *Registry) Get(id string) (*models.Deployment, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	d := copyDeployment(&e.d)
	return &d, nil
}

// List returns copies of all tracked deployments in insertion order.
func (r *Registry) List() []models.Deployment {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	out := make([]models.Deployment, 0, len(ids))
	for _, id := range ids {
		if d, err := r.Get(id); err == nil {
			out = append(out, *d)
		}
	}
	return out
}

// SetStatus updates a deployment's status.
func (r *Registry) SetStatus(id string, status models.DeploymentStatus) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.d.Status = status
	return nil
}

// AppendLogs appends the batch's log lines that are not already present,
// deduplicating by message and batch position, and returns the entries
// actually appended in order.
func (r *Registry) AppendLogs(id string, batch []models.LogEntry) ([]models.LogEntry, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var appended []models.LogEntry
	for i, le := range batch {
		key := fmt.Sprintf("%d|%s", i, le.Message)
		if _, dup := e.seen[key]; dup {
			continue
		}
		e.seen[key] = struct{}{}
		le.DeploymentID = id
		e.d.Logs = append(e.d.Logs, le)
		appended = append(appended, le)
	}

	if over := len(e.d.Logs) - maxLogEntries; over > 0 {
		e.d.Logs = append([]models.LogEntry(nil), e.d.Logs[over:]...)
	}

	return appended, nil
}

// Logs returns a copy of the stored log tail for a deployment.
func (r *Registry) Logs(id string) ([]models.LogEntry, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.LogEntry(nil), e.d.Logs...), nil
}

// AppendError records a new deployment error.
func (r *Registry) AppendError(id string, de models.DeploymentError) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	de.DeploymentID = id
	e.d.Errors = append(e.d.Errors, de)
	return nil
}

// Errors returns copies of all recorded errors for a deployment.
func (r *Registry) Errors(id string) ([]models.DeploymentError, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.DeploymentError(nil), e.d.Errors...), nil
}

// HasOpenError reports whether the deployment has an error that has not
// reached a terminal status. While one is outstanding, re-detection must
// not create a duplicate for the same failure episode.
func (r *Registry) HasOpenError(id string) bool {
	e, err := r.entry(id)
	if err != nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.d.Errors {
		if !e.d.Errors[i].Status.IsTerminal() {
			return true
		}
	}
	return false
}

// UpdateError applies mutate to the identified error under the
// deployment's lock. Status changes are validated against the
// forward-only state machine; an invalid transition leaves the error
// untouched and returns ErrInvalidTransition.
func (r *Registry) UpdateError(id, errorID string, mutate func(*models.DeploymentError)) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.d.Errors {
		if e.d.Errors[i].ID != errorID {
			continue
		}
		updated := e.d.Errors[i]
		mutate(&updated)
		if updated.Status != e.d.Errors[i].Status {
			if !e.d.Errors[i].Status.CanTransitionTo(updated.Status) {
				return ErrInvalidTransition
			}
		} else if e.d.Errors[i].Status.IsTerminal() {
			// Terminal errors are immutable.
			return ErrInvalidTransition
		}
		e.d.Errors[i] = updated
		return nil
	}
	return ErrErrorNotFound
}

func (r *Registry) entry(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.deployments[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func copyDeployment(d *models.Deployment) models.Deployment {
	out := *d
	out.Logs = append([]models.LogEntry(nil), d.Logs...)
	out.Errors = append([]models.DeploymentError(nil), d.Errors...)
	return out
}

// MapPlatformStatus translates the deployment platform's status vocabulary
// to the internal enum.
func MapPlatformStatus(s string) models.DeploymentStatus {
	switch s {
	case "READY", "ready":
		return models.DeploymentStatusReady
	case "ERROR", "error", "FAILED", "failed":
		return models.DeploymentStatusError
	case "BUILDING", "building", "INITIALIZING", "initializing":
		return models.DeploymentStatusBuilding
	case "CANCELED", "canceled", "CANCELLED", "cancelled":
		return models.DeploymentStatusCanceled
	default:
		return models.DeploymentStatusQueued
	}
}
