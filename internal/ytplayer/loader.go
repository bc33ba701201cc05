package ytplayer

import (
	"context"
	"fmt"
	"sync"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// Loader is the single initialization guard for the SDK bootstrap. The inject
// function runs at most once no matter how many callers race on Wait; every
// waiter is released by the one SignalReady call. A bootstrap that fails to
// signal readiness is not retried: waiters stay blocked until their context
// ends.
type Loader struct {
	inject func() error

	mu       sync.Mutex
	started  bool
	injected error
	ready    chan struct{}
}

func NewLoader(inject func() error) *Loader {
	return &Loader{
		inject: inject,
		ready:  make(chan struct{}),
	}
}

// Wait triggers the bootstrap injection if nobody has yet, then blocks until
// the SDK signals readiness or ctx ends.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	if !l.started {
		l.started = true
		if l.inject != nil {
			l.injected = l.inject()
		}
	}
	if err := l.injected; err != nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %v", media.ErrSDKLoad, err)
	}
	ready := l.ready
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", media.ErrSDKLoad, ctx.Err())
	}
}

// SignalReady releases all current and future waiters. Safe to call more than
// once.
func (l *Loader) SignalReady() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ready:
	default:
		close(l.ready)
	}
}

// Ready reports whether the SDK has signaled readiness.
func (l *Loader) Ready() bool {
	select {
	case <-l.ready:
		return true
	default:
		return false
	}
}
