// Package screen tracks fullscreen entry/exit and the auto-hide of the
// overlay control layer. Fullscreen changes are driven by the host's
// fullscreen-change notification, not only by application toggles: the user
// can always leave fullscreen through the browser itself.
package screen

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHideAfter is how long the overlay controls stay up without activity.
const DefaultHideAfter = 3 * time.Second

// Mode is the tracker's current state.
type Mode int

const (
	Windowed Mode = iota
	FullscreenControlsVisible
	FullscreenControlsHidden
)

func (m Mode) String() string {
	switch m {
	case FullscreenControlsVisible:
		return "fullscreen-controls-visible"
	case FullscreenControlsHidden:
		return "fullscreen-controls-hidden"
	default:
		return "windowed"
	}
}

// OrientationLocker locks the device orientation. Locking is a best-effort
// enhancement: failures are ignored.
type OrientationLocker interface {
	LockLandscape() error
	Unlock() error
}

// Tracker is the fullscreen/controls state machine for one session.
type Tracker struct {
	hideAfter   time.Duration
	mobile      bool
	orientation OrientationLocker
	onChange    func(Mode)
	log         *slog.Logger

	mu    sync.Mutex
	mode  Mode
	timer *time.Timer
}

// New builds a tracker. orientation may be nil; onChange may be nil and is
// called outside the tracker lock on every mode transition.
func New(hideAfter time.Duration, mobile bool, orientation OrientationLocker, onChange func(Mode), log *slog.Logger) *Tracker {
	if hideAfter <= 0 {
		hideAfter = DefaultHideAfter
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		hideAfter:   hideAfter,
		mobile:      mobile,
		orientation: orientation,
		onChange:    onChange,
		log:         log,
	}
}

// Mode returns the current state.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// HandleChange folds a host fullscreen-change notification into the machine.
// Entering fullscreen shows the controls and arms the inactivity timer; on
// mobile it also attempts a landscape orientation lock. Exiting cancels the
// timer from either state.
func (t *Tracker) HandleChange(active bool) {
	t.mu.Lock()
	var next Mode
	if active {
		next = FullscreenControlsVisible
		t.armTimerLocked()
	} else {
		next = Windowed
		t.stopTimerLocked()
	}
	changed := next != t.mode
	t.mode = next
	t.mu.Unlock()

	if active && t.mobile && t.orientation != nil {
		if err := t.orientation.LockLandscape(); err != nil {
			t.log.Debug("orientation lock unavailable", "err", err)
		}
	}
	if !active && t.orientation != nil {
		if err := t.orientation.Unlock(); err != nil {
			t.log.Debug("orientation unlock unavailable", "err", err)
		}
	}
	if changed {
		t.notify(next)
	}
}

// Activity registers user input. While fullscreen it forces the controls
// visible and restarts the inactivity timer; while windowed it is a no-op.
func (t *Tracker) Activity() {
	t.mu.Lock()
	if t.mode == Windowed {
		t.mu.Unlock()
		return
	}
	changed := t.mode != FullscreenControlsVisible
	t.mode = FullscreenControlsVisible
	t.armTimerLocked()
	t.mu.Unlock()

	if changed {
		t.notify(FullscreenControlsVisible)
	}
}

// Close cancels the inactivity timer. The tracker is unusable afterwards.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimerLocked()
	t.mode = Windowed
}

func (t *Tracker) armTimerLocked() {
	t.stopTimerLocked()
	t.timer = time.AfterFunc(t.hideAfter, t.hide)
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) hide() {
	t.mu.Lock()
	if t.mode != FullscreenControlsVisible {
		t.mu.Unlock()
		return
	}
	t.mode = FullscreenControlsHidden
	t.timer = nil
	t.mu.Unlock()

	t.notify(FullscreenControlsHidden)
}

func (t *Tracker) notify(m Mode) {
	if t.onChange != nil {
		t.onChange(m)
	}
}
