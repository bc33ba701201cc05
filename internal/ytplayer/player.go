// Package ytplayer wraps the asynchronously loaded embedded video player so
// the rest of the system sees a small, substitutable interface instead of the
// host SDK's callback shapes.
package ytplayer

import (
	"context"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// PlaybackState is the primary player's reported transport state.
type PlaybackState int

const (
	StateUnstarted PlaybackState = iota
	StatePlaying
	StatePaused
	StateEnded
	StateBuffering
)

func (s PlaybackState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateBuffering:
		return "buffering"
	default:
		return "unstarted"
	}
}

// Quality is a playback quality hint for the primary player.
type Quality string

const (
	QualityDefault Quality = "default"
	QualityTiny    Quality = "tiny"
	QualitySmall   Quality = "small"
	QualityMedium  Quality = "medium"
	QualityLarge   Quality = "large"
	QualityHD720   Quality = "hd720"
	QualityHD1080  Quality = "hd1080"
)

// Options configures a new player instance. Autoplay and native controls are
// always off: the transport controller supplies its own controls.
type Options struct {
	CaptionsLang string
	Quality      Quality

	// Event callbacks. All are optional and invoked from the adapter's
	// delivery goroutine; duration is typically still unknown at OnReady.
	OnReady       func()
	OnStateChange func(PlaybackState)
	OnError       func(error)
}

// VideoPlayer is one live primary player instance bound to a page anchor.
// Clock reads are best effort; a failed read is a no-op for that poll, never
// fatal. Destroy is safe to call on an already-destroyed instance.
type VideoPlayer interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentTime() (float64, error)
	Duration() (float64, error)
	SetVolume(percent int) error // 0..100, host convention
	SetPlaybackQuality(q Quality) error
	SetCaptions(enabled bool) error
	Destroy()
}

// SDK creates players once its bootstrap has loaded. EnsureLoaded is
// idempotent: the bootstrap is injected at most once process-wide and every
// concurrent caller is released by the single readiness signal. A bootstrap
// that never signals readiness blocks callers until ctx is done; it is not
// retried.
type SDK interface {
	EnsureLoaded(ctx context.Context) error
	CreatePlayer(anchor string, id media.ID, opts Options) (VideoPlayer, error)
}
