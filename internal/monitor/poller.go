// Package monitor polls the deployment platform for status and logs on a
// fixed interval.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remedyops/remedy/internal/classify"
	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/platform"
	"github.com/remedyops/remedy/internal/registry"
)

// Platform is the deployment platform contract the poller needs.
type Platform interface {
	GetStatus(ctx context.Context, id string) (*platform.DeploymentInfo, error)
	GetLogEvents(ctx context.Context, id string) ([]platform.LogEvent, error)
}

// watch tracks how long one deployment has been monitored.
type watch struct {
	since time.Time
}

// Poller pulls deployment status and incremental logs for every tracked
// deployment on a fixed period. Monitoring of one deployment stops when
// it reaches a terminal status or its monitoring window elapses.
type Poller struct {
	registry *registry.Registry
	platform Platform
	interval time.Duration
	window   time.Duration
	logger   *slog.Logger

	// OnLogs receives newly appended entries after each poll. It is
	// invoked from the poll loop; implementations must not block.
	OnLogs func(deploymentID string, appended []models.LogEntry)

	mu       sync.Mutex
	watches  map[string]*watch
	running  bool
	stopChan chan struct{}
}

// NewPoller creates a new Poller.
func NewPoller(reg *registry.Registry, pf Platform, interval, window time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		registry: reg,
		platform: pf,
		interval: interval,
		window:   window,
		logger:   logger,
		watches:  make(map[string]*watch),
		stopChan: make(chan struct{}),
	}
}

// Track registers a deployment in the registry and adds it to the watch
// set. Tracking an already watched deployment resets nothing.
func (p *Poller) Track(d models.Deployment) {
	p.registry.Upsert(d)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.watches[d.ID]; !ok {
		p.watches[d.ID] = &watch{since: time.Now()}
		p.logger.Info("tracking deployment",
			"deployment_id", d.ID,
			"name", d.Name,
			"status", d.Status,
		)
	}
}

// Watching reports whether a deployment is still in the watch set.
func (p *Poller) Watching(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[id]
	return ok
}

// Start begins the poll loop. It blocks until Stop is called or the
// context ends.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.logger.Info("starting poller",
		"interval", p.interval,
		"window", p.window,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped by context")
			return ctx.Err()
		case <-p.stopChan:
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

// Stop stops the poll loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		close(p.stopChan)
		p.running = false
	}
}

// pollAll polls every watched deployment. A failure for one deployment
// never aborts the others.
func (p *Poller) pollAll(ctx context.Context) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.watches))
	for id := range p.watches {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.pollOne(ctx, id)
	}
}

// pollOne fetches status and logs for one deployment and decides whether
// to keep watching it.
func (p *Poller) pollOne(ctx context.Context, id string) {
	info, err := p.platform.GetStatus(ctx, id)
	if err != nil {
		// Transient: note it and poll again on the next tick.
		p.logger.Debug("fetching deployment status failed, will retry",
			"deployment_id", id,
			"error", err,
		)
		p.checkWindow(id)
		return
	}

	status := registry.MapPlatformStatus(info.ReadyState)
	if err := p.registry.SetStatus(id, status); err != nil {
		p.logger.Error("failed to update deployment status",
			"deployment_id", id,
			"error", err,
		)
		return
	}

	events, err := p.platform.GetLogEvents(ctx, id)
	if err != nil {
		p.logger.Debug("fetching deployment logs failed, will retry",
			"deployment_id", id,
			"error", err,
		)
	} else if len(events) > 0 {
		batch := make([]models.LogEntry, 0, len(events))
		for _, ev := range events {
			batch = append(batch, toLogEntry(id, ev))
		}

		appended, err := p.registry.AppendLogs(id, batch)
		if err != nil {
			p.logger.Error("failed to append logs",
				"deployment_id", id,
				"error", err,
			)
		} else if len(appended) > 0 && p.OnLogs != nil {
			p.OnLogs(id, appended)
		}
	}

	if status.IsTerminal() {
		p.unwatch(id, "terminal status: "+string(status))
		return
	}
	p.checkWindow(id)
}

// checkWindow drops a deployment from the watch set once its monitoring
// window has elapsed, preventing unbounded polling on stuck deployments.
func (p *Poller) checkWindow(id string) {
	p.mu.Lock()
	w, ok := p.watches[id]
	p.mu.Unlock()
	if !ok {
		return
	}
	if WindowExpired(w.since, p.window, time.Now()) {
		p.unwatch(id, "monitoring window elapsed")
	}
}

func (p *Poller) unwatch(id, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.watches[id]; ok {
		delete(p.watches, id)
		p.logger.Info("stopped monitoring deployment",
			"deployment_id", id,
			"reason", reason,
		)
	}
}

// WindowExpired reports whether a monitoring window that opened at since
// has elapsed at now.
func WindowExpired(since time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(since) > window
}

// toLogEntry converts a platform log event into a classified LogEntry.
func toLogEntry(deploymentID string, ev platform.LogEvent) models.LogEntry {
	tag := ev.Payload.Tag
	if tag == "" {
		tag = ev.Type
	}
	return models.LogEntry{
		ID:           uuid.NewString(),
		DeploymentID: deploymentID,
		Timestamp:    time.UnixMilli(ev.Created),
		Level:        classify.ClassifyLevel(tag, ev.Payload.Text),
		Message:      ev.Payload.Text,
		Source:       classify.ClassifySource(ev.Payload.Text),
	}
}
