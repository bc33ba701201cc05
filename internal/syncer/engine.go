// Package syncer keeps the secondary clock within a small tolerance of the
// primary clock. Divergence beyond the tolerance is snap-corrected: the
// secondary clock is overwritten outright rather than rate-warped. The
// occasional audible micro-jump is the accepted cost of never drifting.
package syncer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// DefaultInterval is the poll period of the correction loop.
	DefaultInterval = 500 * time.Millisecond
	// DefaultTolerance is the divergence, in seconds, beyond which the
	// secondary clock is snapped to the primary.
	DefaultTolerance = 0.5
)

// Primary is the authoritative clock. Reads are best effort.
type Primary interface {
	CurrentTime() (float64, error)
	Duration() (float64, error)
}

// Secondary is the dependent clock being pulled toward the primary.
type Secondary interface {
	CurrentTime() (float64, error)
	SetCurrentTime(seconds float64) error
}

// Engine is the drift-correction loop for one playback session. It never
// outlives the session: Stop tears the loop down synchronously so no tick can
// run against a destroyed player.
type Engine struct {
	primary   Primary
	secondary Secondary
	publish   func(position, duration float64)
	interval  time.Duration
	tolerance float64
	log       *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New builds an engine. publish receives the primary position and duration on
// every successful poll; it may be nil.
func New(primary Primary, secondary Secondary, publish func(position, duration float64), interval time.Duration, tolerance float64, log *slog.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		primary:   primary,
		secondary: secondary,
		publish:   publish,
		interval:  interval,
		tolerance: tolerance,
		log:       log,
	}
}

// Start launches the poll loop. Starting an already-started engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(loopCtx, e.done)
}

// Stop cancels the loop and waits for the in-flight tick, if any, to finish.
// After Stop returns no further reads or writes happen.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.started = false
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		e.log.Warn("sync loop did not stop in time")
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick performs one read-then-correct pass. A failed clock read skips the
// whole pass; a single bad poll must not disturb a healthy session.
func (e *Engine) tick() {
	pos, err := e.primary.CurrentTime()
	if err != nil {
		tickErrorsTotal.Inc()
		e.log.Debug("primary time read failed", "err", err)
		return
	}
	dur, err := e.primary.Duration()
	if err != nil {
		tickErrorsTotal.Inc()
		e.log.Debug("primary duration read failed", "err", err)
		return
	}

	if e.publish != nil {
		e.publish(pos, dur)
	}

	sec, err := e.secondary.CurrentTime()
	if err != nil {
		tickErrorsTotal.Inc()
		e.log.Debug("secondary time read failed", "err", err)
		return
	}

	drift := math.Abs(sec - pos)
	driftSeconds.Set(drift)
	if drift <= e.tolerance {
		return
	}

	if err := e.secondary.SetCurrentTime(pos); err != nil {
		e.log.Debug("snap correction failed", "err", err, "drift", drift)
		return
	}
	correctionsTotal.Inc()
	e.log.Debug("snap correction", "drift", drift, "position", pos)
}
