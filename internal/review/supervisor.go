package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remedyops/remedy/internal/scm"
)

// ErrManualMergeRequired is returned when the merge deadline passes
// without an observed passing check state.
var ErrManualMergeRequired = errors.New("manual merge required")

// Host is the source-control contract the supervisor needs.
type Host interface {
	GetChangeStatus(ctx context.Context, number int) (scm.CheckState, error)
	MergeChange(ctx context.Context, number int) error
}

// Supervisor polls a change's check status and merges it once a passing
// state is observed. It never merges a change whose checks have not been
// seen passing, and it stops polling at the deadline.
type Supervisor struct {
	host     Host
	interval time.Duration
	deadline time.Duration
	logger   *slog.Logger
}

// NewSupervisor creates a new merge Supervisor.
func NewSupervisor(host Host, interval, deadline time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		host:     host,
		interval: interval,
		deadline: deadline,
		logger:   logger,
	}
}

// Supervise polls the change until its checks pass, then merges it.
// It returns ErrManualMergeRequired when the deadline passes first.
func (s *Supervisor) Supervise(ctx context.Context, number int) error {
	s.logger.Info("supervising change checks",
		"change", number,
		"interval", s.interval,
		"deadline", s.deadline,
	)

	check := func() (scm.CheckState, error) {
		return s.host.GetChangeStatus(ctx, number)
	}
	merge := func() error {
		return s.host.MergeChange(ctx, number)
	}

	attempts, err := SuperviseWithConfig(ctx, check, merge, s.interval, s.deadline)
	if err != nil {
		s.logger.Warn("merge supervision ended without merge",
			"change", number,
			"attempts", attempts,
			"error", err,
		)
		return err
	}

	s.logger.Info("change merged",
		"change", number,
		"attempts", attempts,
	)
	return nil
}

// SuperviseWithConfig is the supervision loop with injectable check and
// merge functions, returning the number of poll attempts made. Merge is
// called only after check has returned a passing state.
func SuperviseWithConfig(
	ctx context.Context,
	check func() (scm.CheckState, error),
	merge func() error,
	interval time.Duration,
	deadline time.Duration,
) (int, error) {
	limit := time.Now().Add(deadline)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempts := 0
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-ticker.C:
			if time.Now().After(limit) {
				if lastErr != nil {
					return attempts, fmt.Errorf("%w (last status error: %v)", ErrManualMergeRequired, lastErr)
				}
				return attempts, ErrManualMergeRequired
			}

			attempts++
			state, err := check()
			if err != nil {
				// Transient: keep polling until the deadline.
				lastErr = err
				continue
			}

			if state == scm.CheckStateSuccess {
				if err := merge(); err != nil {
					return attempts, fmt.Errorf("merging change: %w", err)
				}
				return attempts, nil
			}
		}
	}
}
