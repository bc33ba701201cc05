package audio

import (
	"sync"

	"github.com/Minh20812/audio-sync-player/internal/resolver"
)

// FakeElement is an in-memory Element for tests.
type FakeElement struct {
	mu sync.Mutex

	Key        string
	Candidates []resolver.Candidate

	Playing bool
	Time    float64
	Volume  float64

	PlayCalls  int
	PauseCalls int
	SeekCalls  []float64
	Closed     bool
}

func (e *FakeElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Playing = true
	e.PlayCalls++
	return nil
}

func (e *FakeElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Playing = false
	e.PauseCalls++
	return nil
}

func (e *FakeElement) CurrentTime() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Time, nil
}

func (e *FakeElement) SetCurrentTime(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Time = seconds
	e.SeekCalls = append(e.SeekCalls, seconds)
	return nil
}

func (e *FakeElement) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Volume = v
	return nil
}

func (e *FakeElement) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
}

// Snapshot returns a copy of the mutable state for assertions.
func (e *FakeElement) Snapshot() FakeElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := FakeElement{
		Key:        e.Key,
		Candidates: e.Candidates,
		Playing:    e.Playing,
		Time:       e.Time,
		Volume:     e.Volume,
		PlayCalls:  e.PlayCalls,
		PauseCalls: e.PauseCalls,
		Closed:     e.Closed,
	}
	cp.SeekCalls = append(cp.SeekCalls, e.SeekCalls...)
	return cp
}

// FakeFactory records every element it hands out.
type FakeFactory struct {
	mu      sync.Mutex
	Err     error
	Created []*FakeElement
}

func (f *FakeFactory) NewElement(key string, candidates []resolver.Candidate) (Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	e := &FakeElement{Key: key, Candidates: candidates, Volume: 1}
	f.Created = append(f.Created, e)
	return e, nil
}

// Elements returns a snapshot of every element handed out so far.
func (f *FakeFactory) Elements() []*FakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeElement, len(f.Created))
	copy(out, f.Created)
	return out
}

// Last returns the most recently created element.
func (f *FakeFactory) Last() *FakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}

var _ Element = (*FakeElement)(nil)
var _ Factory = (*FakeFactory)(nil)
