// Package engine provides the economy model and the week-by-week run loop.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Steppable advances one week at a time.
type Steppable interface {
	Step() error
	Week() int
	Finished() bool
}

// Engine drives a Steppable to its horizon.
type Engine struct {
	Target   Steppable
	Interval time.Duration // Pause between weeks; 0 runs flat out

	// OnWeek is called after every completed week.
	OnWeek func(week int)

	running atomic.Bool
}

// NewEngine creates a run driver for target.
func NewEngine(target Steppable) *Engine {
	return &Engine{Target: target}
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run steps the target until it finishes, Stop is called, the context is
// cancelled, or a step fails. It returns the step error or the context error.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("run started", "week", e.Target.Week())

	var ticker *time.Ticker
	if e.Interval > 0 {
		ticker = time.NewTicker(e.Interval)
		defer ticker.Stop()
	}

	for e.running.Load() && !e.Target.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Target.Step(); err != nil {
			slog.Error("step failed", "week", e.Target.Week(), "error", err)
			return err
		}
		if e.OnWeek != nil {
			e.OnWeek(e.Target.Week())
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	slog.Info("run stopped", "week", e.Target.Week(), "finished", e.Target.Finished())
	return nil
}

// Stop ends the run after the current week.
func (e *Engine) Stop() {
	e.running.Store(false)
}
