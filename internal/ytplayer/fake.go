package ytplayer

import (
	"context"
	"errors"
	"sync"

	"github.com/Minh20812/audio-sync-player/internal/media"
)

// FakePlayer is an in-memory VideoPlayer for tests. State mutations happen
// under a lock so tests can drive it from event goroutines.
type FakePlayer struct {
	mu sync.Mutex

	ID       media.ID
	Opts     Options
	Playing  bool
	Time     float64
	Dur      float64
	Volume   int
	Quality  Quality
	Captions bool

	PlayCalls    int
	PauseCalls   int
	SeekCalls    []float64
	DestroyCalls int

	ReadErr error
}

func (p *FakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Playing = true
	p.PlayCalls++
	return nil
}

func (p *FakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Playing = false
	p.PauseCalls++
	return nil
}

func (p *FakePlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Time = seconds
	p.SeekCalls = append(p.SeekCalls, seconds)
	return nil
}

func (p *FakePlayer) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReadErr != nil {
		return 0, p.ReadErr
	}
	return p.Time, nil
}

func (p *FakePlayer) Duration() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReadErr != nil {
		return 0, p.ReadErr
	}
	return p.Dur, nil
}

func (p *FakePlayer) SetVolume(percent int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Volume = percent
	return nil
}

func (p *FakePlayer) SetPlaybackQuality(q Quality) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Quality = q
	return nil
}

func (p *FakePlayer) SetCaptions(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Captions = enabled
	return nil
}

func (p *FakePlayer) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DestroyCalls++
}

// Destroys returns the Destroy call count, safe against event goroutines.
func (p *FakePlayer) Destroys() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DestroyCalls
}

// SetClock adjusts the fake primary clock.
func (p *FakePlayer) SetClock(t, d float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Time, p.Dur = t, d
}

// EmitState delivers a state-change event the way the host SDK would.
func (p *FakePlayer) EmitState(s PlaybackState) {
	p.mu.Lock()
	cb := p.Opts.OnStateChange
	p.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// EmitReady delivers the ready event.
func (p *FakePlayer) EmitReady() {
	p.mu.Lock()
	cb := p.Opts.OnReady
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// EmitErrorCode delivers a host error code through the taxonomy mapping.
func (p *FakePlayer) EmitErrorCode(code int) {
	p.mu.Lock()
	cb := p.Opts.OnError
	id := p.ID
	p.mu.Unlock()
	if cb != nil {
		cb(MapErrorCode(code, id))
	}
}

// FakeSDK hands out FakePlayers and records construction order.
type FakeSDK struct {
	mu sync.Mutex

	LoadErr   error
	CreateErr error
	Created   []*FakePlayer
}

func (s *FakeSDK) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LoadErr
}

func (s *FakeSDK) CreatePlayer(anchor string, id media.ID, opts Options) (VideoPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	p := &FakePlayer{ID: id, Opts: opts, Volume: 100, Quality: opts.Quality}
	s.Created = append(s.Created, p)
	return p, nil
}

// Players returns a snapshot of every player created so far.
func (s *FakeSDK) Players() []*FakePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FakePlayer, len(s.Created))
	copy(out, s.Created)
	return out
}

// Last returns the most recently created player.
func (s *FakeSDK) Last() *FakePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Created) == 0 {
		return nil
	}
	return s.Created[len(s.Created)-1]
}

var _ SDK = (*FakeSDK)(nil)
var _ VideoPlayer = (*FakePlayer)(nil)

// ErrFakeRead is a canned clock read failure for tests.
var ErrFakeRead = errors.New("fake clock read failure")
