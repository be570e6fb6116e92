// Package coordinator implements the optional periodic re-submission
// of workflow iterations (spec.md §3 Iteration, DESIGN.md's
// "Optional periodic re-submission" domain-stack entry), scheduled
// with github.com/robfig/cron/v3 (a teacher dependency). Grounded on
// the teacher's watermark-store + catch-up pattern
// (internal/service/scheduler/catchup_manager_test.go): a persisted
// watermark records the last tick processed, and on Init any cron
// fires missed since that watermark are caught up before steady-state
// ticking resumes.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Watermark records the last tick this coordinator processed for one
// workflow's recurring re-submission schedule.
type Watermark struct {
	WorkflowID string
	LastTick   time.Time
}

// WatermarkStore persists Watermarks across process restarts, the
// same role the teacher's core.WatermarkStore plays for DAG run
// catch-up state.
type WatermarkStore interface {
	Load(ctx context.Context, workflowID string) (*Watermark, error)
	Save(ctx context.Context, wm *Watermark) error
}

// DispatchFunc re-submits one iteration of workflowID. Supplied by the
// submission controller (internal/submission).
type DispatchFunc func(ctx context.Context, workflowID string) error

// Config configures a Coordinator.
type Config struct {
	WorkflowID     string
	Schedule       string // standard 5-field cron expression
	WatermarkStore WatermarkStore
	Dispatch       DispatchFunc
	// Clock is overridable for deterministic tests.
	Clock func() time.Time
	// CatchupWindow bounds how far back missed ticks are replayed on
	// Init; ticks older than now-CatchupWindow are skipped rather than
	// dispatched in a burst.
	CatchupWindow time.Duration
}

// Coordinator periodically re-dispatches a workflow's iterations per
// its cron schedule, persisting a watermark so a restart catches up
// on missed ticks instead of silently skipping or re-running already
// -handled ones.
type Coordinator struct {
	cfg     Config
	parsed  cron.Schedule
	cronJob *cron.Cron

	mu        sync.RWMutex
	watermark *Watermark
}

// New parses cfg.Schedule and constructs a Coordinator. It does not
// start ticking until Start is called.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	parsed, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	return &Coordinator{cfg: cfg, parsed: parsed}, nil
}

// Init loads the persisted watermark (if any) and replays any missed
// ticks between it and now, bounded by CatchupWindow. Non-fatal: a
// watermark-store load error is not returned (Init returns nil) and
// leaves the coordinator to proceed from a nil watermark, mirroring
// the teacher's "non-fatal init" behavior.
func (c *Coordinator) Init(ctx context.Context) error {
	if c.cfg.WatermarkStore == nil {
		return nil
	}
	wm, err := c.cfg.WatermarkStore.Load(ctx, c.cfg.WorkflowID)
	if err != nil {
		return nil
	}
	c.mu.Lock()
	c.watermark = wm
	c.mu.Unlock()
	if wm == nil {
		return nil
	}

	now := c.cfg.Clock()
	earliest := now
	if c.cfg.CatchupWindow > 0 {
		earliest = now.Add(-c.cfg.CatchupWindow)
	}
	if wm.LastTick.Before(earliest) {
		wm.LastTick = earliest
	}

	for _, tick := range c.missedTicks(wm.LastTick, now) {
		if err := c.fire(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}

// missedTicks returns every scheduled fire time strictly after since
// and at-or-before until.
func (c *Coordinator) missedTicks(since, until time.Time) []time.Time {
	var ticks []time.Time
	t := since
	for {
		next := c.parsed.Next(t)
		if next.IsZero() || next.After(until) {
			break
		}
		ticks = append(ticks, next)
		t = next
	}
	return ticks
}

// fire dispatches one iteration and advances/persists the watermark.
func (c *Coordinator) fire(ctx context.Context, tick time.Time) error {
	if c.cfg.Dispatch != nil {
		if err := c.cfg.Dispatch(ctx, c.cfg.WorkflowID); err != nil {
			return fmt.Errorf("dispatch iteration for %s at %s: %w", c.cfg.WorkflowID, tick, err)
		}
	}
	c.mu.Lock()
	c.watermark = &Watermark{WorkflowID: c.cfg.WorkflowID, LastTick: tick}
	wm := c.watermark
	c.mu.Unlock()
	if c.cfg.WatermarkStore != nil {
		if err := c.cfg.WatermarkStore.Save(ctx, wm); err != nil {
			return fmt.Errorf("save watermark: %w", err)
		}
	}
	return nil
}

// Start begins steady-state ticking in a background cron.Cron
// scheduler. Call Init first to catch up on missed ticks.
func (c *Coordinator) Start(ctx context.Context) {
	c.cronJob = cron.New()
	_, _ = c.cronJob.AddFunc(c.cfg.Schedule, func() {
		_ = c.fire(ctx, c.cfg.Clock())
	})
	c.cronJob.Start()
}

// Stop halts steady-state ticking. Safe to call even if Start was
// never called.
func (c *Coordinator) Stop() {
	if c.cronJob != nil {
		c.cronJob.Stop()
	}
}

// LastTick returns the most recently processed watermark tick, or the
// zero time if none has been recorded yet.
func (c *Coordinator) LastTick() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.watermark == nil {
		return time.Time{}
	}
	return c.watermark.LastTick
}
