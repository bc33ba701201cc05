package bridge

import (
	"errors"
	"sync"
	"time"

	"github.com/Minh20812/audio-sync-player/internal/audio"
	"github.com/Minh20812/audio-sync-player/internal/media"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

// ErrNoTelemetry is returned from clock reads before the page has reported a
// time sample for the element.
var ErrNoTelemetry = errors.New("bridge: no clock telemetry yet")

var ErrDestroyed = errors.New("bridge: player destroyed")

// RemotePlayer proxies the embedded video player living in the attached page.
// Clock reads come from the page's periodic telemetry, extrapolated while
// playing so the poll loop sees a monotonic position between samples.
type RemotePlayer struct {
	c      *Conn
	anchor string
	id     media.ID
	opts   ytplayer.Options

	mu        sync.Mutex
	pos       float64
	dur       float64
	sampledAt time.Time
	playing   bool
	destroyed bool
}

func (p *RemotePlayer) emitReady() {
	if p.opts.OnReady != nil {
		p.opts.OnReady()
	}
}

func (p *RemotePlayer) emitState(st ytplayer.PlaybackState) {
	now := time.Now()
	p.mu.Lock()
	wasPlaying := p.playing
	p.playing = st == ytplayer.StatePlaying
	if wasPlaying && !p.playing && !p.sampledAt.IsZero() {
		// freeze extrapolation at the moment playback stopped
		p.pos += now.Sub(p.sampledAt).Seconds()
		p.sampledAt = now
	}
	p.mu.Unlock()

	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(st)
	}
}

func (p *RemotePlayer) emitError(code int) {
	if p.opts.OnError != nil {
		p.opts.OnError(ytplayer.MapErrorCode(code, p.id))
	}
}

func (p *RemotePlayer) updateClock(pos, dur float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
	if dur > 0 {
		p.dur = dur
	}
	p.sampledAt = time.Now()
}

func (p *RemotePlayer) Play() error {
	if p.gone() {
		return ErrDestroyed
	}
	return p.c.sendCmd(command{Type: "play", Anchor: p.anchor})
}

func (p *RemotePlayer) Pause() error {
	if p.gone() {
		return ErrDestroyed
	}
	return p.c.sendCmd(command{Type: "pause", Anchor: p.anchor})
}

func (p *RemotePlayer) SeekTo(seconds float64) error {
	if p.gone() {
		return ErrDestroyed
	}
	p.mu.Lock()
	p.pos = seconds
	p.sampledAt = time.Now()
	p.mu.Unlock()
	return p.c.sendCmd(command{Type: "seekTo", Anchor: p.anchor, Seconds: &seconds})
}

func (p *RemotePlayer) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrDestroyed
	}
	if p.sampledAt.IsZero() {
		return 0, ErrNoTelemetry
	}
	pos := p.pos
	if p.playing {
		pos += time.Since(p.sampledAt).Seconds()
	}
	return pos, nil
}

func (p *RemotePlayer) Duration() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrDestroyed
	}
	if p.sampledAt.IsZero() {
		return 0, ErrNoTelemetry
	}
	return p.dur, nil
}

func (p *RemotePlayer) SetVolume(percent int) error {
	if p.gone() {
		return ErrDestroyed
	}
	return p.c.sendCmd(command{Type: "setVolume", Anchor: p.anchor, Percent: &percent})
}

func (p *RemotePlayer) SetPlaybackQuality(q ytplayer.Quality) error {
	if p.gone() {
		return ErrDestroyed
	}
	return p.c.sendCmd(command{Type: "setQuality", Anchor: p.anchor, Quality: string(q)})
}

func (p *RemotePlayer) SetCaptions(enabled bool) error {
	if p.gone() {
		return ErrDestroyed
	}
	return p.c.sendCmd(command{Type: "setCaptions", Anchor: p.anchor, Enabled: &enabled})
}

// Destroy tears down the page-side player instance. Idempotent.
func (p *RemotePlayer) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()
	_ = p.c.sendCmd(command{Type: "destroyPlayer", Anchor: p.anchor})
}

func (p *RemotePlayer) gone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

var _ ytplayer.VideoPlayer = (*RemotePlayer)(nil)

// RemoteAudio proxies the page's audio element.
type RemoteAudio struct {
	c   *Conn
	key string

	mu        sync.Mutex
	pos       float64
	sampledAt time.Time
	closed    bool
}

func (a *RemoteAudio) Play() error {
	if a.gone() {
		return ErrDestroyed
	}
	return a.c.sendCmd(command{Type: "audioPlay", Key: a.key})
}

func (a *RemoteAudio) Pause() error {
	if a.gone() {
		return ErrDestroyed
	}
	return a.c.sendCmd(command{Type: "audioPause", Key: a.key})
}

func (a *RemoteAudio) CurrentTime() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrDestroyed
	}
	if a.sampledAt.IsZero() {
		return 0, ErrNoTelemetry
	}
	return a.pos, nil
}

func (a *RemoteAudio) SetCurrentTime(seconds float64) error {
	if a.gone() {
		return ErrDestroyed
	}
	a.mu.Lock()
	a.pos = seconds
	a.sampledAt = time.Now()
	a.mu.Unlock()
	return a.c.sendCmd(command{Type: "audioSeek", Key: a.key, Seconds: &seconds})
}

func (a *RemoteAudio) SetVolume(v float64) error {
	if a.gone() {
		return ErrDestroyed
	}
	return a.c.sendCmd(command{Type: "audioVolume", Key: a.key, Volume: &v})
}

func (a *RemoteAudio) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	_ = a.c.sendCmd(command{Type: "audioUnload", Key: a.key})
}

func (a *RemoteAudio) updateClock(pos float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = pos
	a.sampledAt = time.Now()
}

func (a *RemoteAudio) gone() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

var _ audio.Element = (*RemoteAudio)(nil)
