package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Minh20812/audio-sync-player/internal/audio"
	"github.com/Minh20812/audio-sync-player/internal/config"
	"github.com/Minh20812/audio-sync-player/internal/media"
	"github.com/Minh20812/audio-sync-player/internal/metadata"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
	"github.com/Minh20812/audio-sync-player/internal/screen"
	"github.com/Minh20812/audio-sync-player/internal/syncer"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

const (
	DefaultVideoVolume = 0.25
	DefaultAudioVolume = 1.0

	offsetMinSec = -5.0
	offsetMaxSec = 5.0
)

var ErrNoPlayer = errors.New("no active player")

// Session is the transport controller: the single writer of playback state
// and the only owner of the player instance, the audio element and the sync
// loop for the current media identifier. UI intents come in as method calls;
// the primary player's own state-change events come in as callbacks and are
// authoritative for isPlaying.
type Session struct {
	cfg    *config.Config
	sdk    ytplayer.SDK
	audioF audio.Factory
	meta   metadata.Source // optional
	id     string
	mobile bool
	log    *slog.Logger
	screen *screen.Tracker

	// loadMu serializes Load and Close. Teardown drops mu while waiting for
	// the sync loop to exit; without this a second Load could slip through
	// that window, end up sharing a generation with the first and leave an
	// overwritten player undestroyed.
	loadMu sync.Mutex

	mu           sync.Mutex
	gen          int // playback generation; bumped on every Load/teardown
	status       Status
	rawInput     string
	mediaID      media.ID
	candidates   []resolver.Candidate
	video        *metadata.VideoInfo
	player       ytplayer.VideoPlayer
	element      audio.Element
	engine       *syncer.Engine
	cancel       context.CancelFunc
	offsetTimer  *time.Timer
	pendingReady bool

	isPlaying   bool
	position    float64
	duration    float64
	videoVolume float64
	audioVolume float64
	audioOffset float64
	captions    bool
	quality     ytplayer.Quality
	lastErr     error
}

// New builds an idle session. meta and orientation may be nil.
func New(cfg *config.Config, sdk ytplayer.SDK, audioF audio.Factory, meta metadata.Source, orientation screen.OrientationLocker, mobile bool, log *slog.Logger) *Session {
	id := uuid.NewString()
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", id)

	quality := ytplayer.QualityMedium
	if mobile {
		quality = ytplayer.QualitySmall
	}

	return &Session{
		cfg:         cfg,
		sdk:         sdk,
		audioF:      audioF,
		meta:        meta,
		id:          id,
		mobile:      mobile,
		log:         log,
		screen:      screen.New(cfg.HideControls, mobile, orientation, nil, log),
		status:      StatusIdle,
		videoVolume: DefaultVideoVolume,
		audioVolume: DefaultAudioVolume,
		captions:    true,
		quality:     quality,
	}
}

func (s *Session) ID() string { return s.id }

// Load tears down the current playback generation and starts a new one for
// raw. Validation failures leave the session in the Error state; the SDK wait
// and player construction continue asynchronously, and a session torn down in
// the meantime discards their results.
func (s *Session) Load(raw string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.teardownLocked()

	s.rawInput = raw
	s.status = StatusValidating

	id, err := media.Parse(raw)
	if err != nil {
		s.status = StatusError
		s.lastErr = err
		s.mu.Unlock()
		playbackErrorsTotal.WithLabelValues(media.Category(err)).Inc()
		return err
	}

	s.mediaID = id
	s.candidates = resolver.Candidates(id, s.cfg.ArchiveBaseURL)

	element, err := s.audioF.NewElement(uuid.NewString(), s.candidates)
	if err != nil {
		err = fmt.Errorf("%w: audio element: %v", media.ErrPlayerConstruction, err)
		s.status = StatusError
		s.lastErr = err
		s.mu.Unlock()
		playbackErrorsTotal.WithLabelValues(media.Category(err)).Inc()
		return err
	}
	if verr := element.SetVolume(s.audioVolume); verr != nil {
		s.log.Warn("set audio volume failed", "err", verr)
	}
	s.element = element

	genCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.status = StatusLoading
	gen := s.gen
	s.mu.Unlock()

	go s.construct(genCtx, gen, id)
	if s.meta != nil && s.cfg.EnableMetadata {
		go s.enrich(genCtx, gen, id)
	}
	return nil
}

// construct waits for the SDK and builds the player for generation gen. Any
// step may lose a race against a newer Load; stale results are discarded.
func (s *Session) construct(ctx context.Context, gen int, id media.ID) {
	if err := s.sdk.EnsureLoaded(ctx); err != nil {
		if ctx.Err() != nil {
			return // torn down while waiting
		}
		s.fail(gen, err)
		return
	}

	opts := ytplayer.Options{
		CaptionsLang:  s.cfg.CaptionsLang,
		Quality:       s.currentQuality(),
		OnReady:       func() { s.handleReady(ctx, gen) },
		OnStateChange: func(st ytplayer.PlaybackState) { s.handleStateChange(gen, st) },
		OnError:       func(err error) { s.fail(gen, err) },
	}

	player, err := s.sdk.CreatePlayer(s.id, id, opts)
	if err != nil {
		s.fail(gen, fmt.Errorf("%w: %v", media.ErrPlayerConstruction, err))
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		// a newer Load won while we were constructing
		s.mu.Unlock()
		player.Destroy()
		return
	}
	s.player = player
	ready := s.pendingReady
	s.pendingReady = false
	s.mu.Unlock()

	// the adapter may have signaled ready before the instance was committed
	if ready {
		s.handleReady(ctx, gen)
	}
}

func (s *Session) enrich(ctx context.Context, gen int, id media.ID) {
	info, err := s.meta.Lookup(ctx, id)
	if err != nil {
		s.log.Debug("metadata lookup failed", "err", err, "mediaId", id)
		return
	}
	s.mu.Lock()
	if s.gen == gen {
		s.video = info
	}
	s.mu.Unlock()
}

// handleReady commits the Ready state and starts the sync loop.
func (s *Session) handleReady(ctx context.Context, gen int) {
	s.mu.Lock()
	if s.gen != gen || s.element == nil {
		s.mu.Unlock()
		return
	}
	if s.player == nil {
		s.pendingReady = true
		s.mu.Unlock()
		return
	}
	s.status = StatusReady

	if err := s.player.SetVolume(percent(s.videoVolume)); err != nil {
		s.log.Warn("set video volume failed", "err", err)
	}
	if err := s.player.SetCaptions(s.captions); err != nil {
		s.log.Debug("captions init failed", "err", err)
	}

	s.engine = syncer.New(s.player, s.element, s.publishClock, s.cfg.SyncInterval, s.cfg.SyncTolerance, s.log)
	engine := s.engine
	s.mu.Unlock()

	engine.Start(ctx)
	s.log.Info("player ready", "mediaId", s.mediaID)
}

// handleStateChange reconciles isPlaying with the primary player's report.
// The primary is the authority: a host-originated transition still drives the
// secondary so the two sources never diverge.
func (s *Session) handleStateChange(gen int, st ytplayer.PlaybackState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}

	switch st {
	case ytplayer.StatePlaying:
		if s.isPlaying {
			return
		}
		s.isPlaying = true
		s.status = StatusPlaying
		s.startSecondaryLocked()
	case ytplayer.StatePaused, ytplayer.StateEnded:
		if !s.isPlaying {
			return
		}
		s.isPlaying = false
		s.status = StatusPaused
		s.stopSecondaryLocked()
	}
}

// fail moves generation gen into the terminal Error state.
func (s *Session) fail(gen int, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.status = StatusError
	s.lastErr = err
	s.isPlaying = false
	s.stopOffsetTimerLocked()
	engine := s.engine
	s.engine = nil
	element := s.element
	s.mu.Unlock()

	if engine != nil {
		engine.Stop()
	}
	if element != nil {
		if perr := element.Pause(); perr != nil {
			s.log.Debug("pause on error failed", "err", perr)
		}
	}
	playbackErrorsTotal.WithLabelValues(media.Category(err)).Inc()
	s.log.Warn("session error", "err", err, "category", media.Category(err))
}

// PlayPause toggles transport state across both sources. A failure on one
// source never prevents the call on the other.
func (s *Session) PlayPause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil || s.element == nil || s.status == StatusError || s.status == StatusLoading || s.status == StatusValidating {
		return ErrNoPlayer
	}

	if s.isPlaying {
		s.isPlaying = false
		s.status = StatusPaused
		if err := s.player.Pause(); err != nil {
			s.log.Warn("primary pause failed", "err", err)
		}
		s.stopSecondaryLocked()
		return nil
	}

	s.isPlaying = true
	s.status = StatusPlaying
	if err := s.player.Play(); err != nil {
		s.log.Warn("primary play failed", "err", err)
	}
	s.startSecondaryLocked()
	return nil
}

// startSecondaryLocked starts the audio element, delayed by the configured
// offset. The offset is a play-start behavior only; it is never folded into
// sync corrections or seeks. Negative offsets clamp to an immediate start.
func (s *Session) startSecondaryLocked() {
	s.stopOffsetTimerLocked()

	delay := time.Duration(s.audioOffset * float64(time.Second))
	if delay <= 0 {
		if err := s.element.Play(); err != nil {
			s.log.Warn("secondary play failed", "err", err)
		}
		return
	}

	gen := s.gen
	el := s.element
	s.offsetTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || !s.isPlaying || s.element != el {
			return
		}
		if err := el.Play(); err != nil {
			s.log.Warn("secondary play failed", "err", err)
		}
	})
}

func (s *Session) stopSecondaryLocked() {
	s.stopOffsetTimerLocked()
	if err := s.element.Pause(); err != nil {
		s.log.Warn("secondary pause failed", "err", err)
	}
}

func (s *Session) stopOffsetTimerLocked() {
	if s.offsetTimer != nil {
		s.offsetTimer.Stop()
		s.offsetTimer = nil
	}
}

// Seek sets both clocks immediately. No offset applies to seeks.
func (s *Session) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil || s.element == nil {
		return ErrNoPlayer
	}

	if s.duration > 0 {
		seconds = clamp(seconds, 0, s.duration)
	} else if seconds < 0 {
		seconds = 0
	}
	if err := s.player.SeekTo(seconds); err != nil {
		s.log.Warn("primary seek failed", "err", err)
	}
	if err := s.element.SetCurrentTime(seconds); err != nil {
		s.log.Warn("secondary seek failed", "err", err)
	}
	s.position = seconds
	return nil
}

func (s *Session) SkipBack() error {
	return s.Seek(s.Position() - s.cfg.SkipStepSec)
}

func (s *Session) SkipForward() error {
	return s.Seek(s.Position() + s.cfg.SkipStepSec)
}

// SetVideoVolume adjusts the primary volume only. Out-of-range values clamp.
func (s *Session) SetVideoVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoVolume = clamp(v, 0, 1)
	if s.player == nil {
		return
	}
	if err := s.player.SetVolume(percent(s.videoVolume)); err != nil {
		s.log.Warn("set video volume failed", "err", err)
	}
}

// SetAudioVolume adjusts the secondary volume only.
func (s *Session) SetAudioVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioVolume = clamp(v, 0, 1)
	if s.element == nil {
		return
	}
	if err := s.element.SetVolume(s.audioVolume); err != nil {
		s.log.Warn("set audio volume failed", "err", err)
	}
}

// SetAudioOffset stores the start delay applied to the next secondary
// play-start. It is never retroactive.
func (s *Session) SetAudioOffset(seconds float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioOffset = clamp(seconds, offsetMinSec, offsetMaxSec)
	return s.audioOffset
}

// ToggleCaptions flips the captions flag and pushes it to the player.
// Captions are a non-critical enhancement; player failures are swallowed.
func (s *Session) ToggleCaptions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captions = !s.captions
	if s.player != nil {
		if err := s.player.SetCaptions(s.captions); err != nil {
			s.log.Debug("toggle captions failed", "err", err)
		}
	}
	return s.captions
}

// SetQuality pushes a playback quality hint to the primary player.
func (s *Session) SetQuality(q ytplayer.Quality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quality = q
	if s.player == nil || q == ytplayer.QualityDefault {
		return
	}
	if err := s.player.SetPlaybackQuality(q); err != nil {
		s.log.Debug("set quality failed", "err", err)
	}
}

// HandleFullscreenChange folds a host fullscreen notification into the
// session's screen state machine.
func (s *Session) HandleFullscreenChange(active bool) {
	s.screen.HandleChange(active)
}

// Activity registers user input for the overlay auto-hide timer.
func (s *Session) Activity() {
	s.screen.Activity()
}

func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// publishClock receives the primary clock from the sync loop.
func (s *Session) publishClock(position, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.duration = duration
}

// Snapshot renders the session for the presentation layer.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:              s.id,
		Status:          s.status.String(),
		RawInput:        s.rawInput,
		IsPlaying:       s.isPlaying,
		Position:        s.position,
		Duration:        s.duration,
		PositionPretty:  media.PrettyTime(int(s.position)),
		DurationPretty:  media.PrettyTime(int(s.duration)),
		VideoVolume:     s.videoVolume,
		AudioVolume:     s.audioVolume,
		AudioOffsetSec:  s.audioOffset,
		CaptionsEnabled: s.captions,
		Quality:         string(s.quality),
		Fullscreen:      s.screen.Mode().String(),
		AudioCandidates: s.candidates,
		Video:           s.video,
	}
	if s.mediaID != "" {
		st.MediaID = s.mediaID.String()
		st.WatchURL = s.mediaID.WatchURL()
		st.Thumbnail = s.mediaID.ThumbnailURL()
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
		st.ErrorCategory = media.Category(s.lastErr)
	}
	return st
}

// Candidates returns the current audio source list.
func (s *Session) Candidates() []resolver.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]resolver.Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Close tears the session down for good.
func (s *Session) Close() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.teardownLocked()
	s.status = StatusIdle
	s.mu.Unlock()
	s.screen.Close()
}

// teardownLocked releases everything the current generation owns: the sync
// loop, the pending offset timer, the player instance and the audio element.
// Each has its own cleanup path; forgetting any one of them leaks. The lock
// is released while waiting for the sync loop to exit (its publish callback
// takes the lock); callers must hold loadMu so no other Load enters through
// that window.
func (s *Session) teardownLocked() {
	s.gen++
	s.stopOffsetTimerLocked()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	engine := s.engine
	s.engine = nil
	if engine != nil {
		s.mu.Unlock()
		engine.Stop()
		s.mu.Lock()
	}

	if s.player != nil {
		s.destroyPlayer(s.player)
		s.player = nil
	}
	if s.element != nil {
		s.element.Close()
		s.element = nil
	}

	s.isPlaying = false
	s.pendingReady = false
	s.position = 0
	s.duration = 0
	s.video = nil
	s.candidates = nil
	s.mediaID = ""
	s.lastErr = nil
	s.status = StatusIdle
}

// destroyPlayer guards against adapters that panic when destroying an
// already-gone instance.
func (s *Session) destroyPlayer(p ytplayer.VideoPlayer) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("player destroy panic recovered", "panic", r)
		}
	}()
	p.Destroy()
}

func (s *Session) currentQuality() ytplayer.Quality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quality
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func percent(v float64) int {
	return int(clamp(v, 0, 1)*100 + 0.5)
}
