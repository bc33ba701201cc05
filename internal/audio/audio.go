// Package audio abstracts the secondary playback source. The element behind
// the interface is owned by exactly one playback session and is never reused
// across media identifiers; changing media means a fresh element under a new
// key so no stale buffered state survives.
package audio

import "github.com/Minh20812/audio-sync-player/internal/resolver"

// Element is the secondary source. Its clock is a dependent variable: the
// sync engine continuously pulls it toward the primary clock.
type Element interface {
	Play() error
	Pause() error
	CurrentTime() (float64, error)
	SetCurrentTime(seconds float64) error
	SetVolume(v float64) error // 0..1
	Close()
}

// Factory creates elements. key is unique per media identifier so consumers
// can force full element recreation instead of swapping sources in place.
type Factory interface {
	NewElement(key string, candidates []resolver.Candidate) (Element, error)
}
