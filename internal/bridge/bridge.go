// Package bridge connects one attached player page over a websocket. The page
// hosts the real embedded video player and audio element; the bridge makes
// them look like local objects. Commands flow out as JSON envelopes, events
// and clock telemetry flow back in.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Minh20812/audio-sync-player/internal/audio"
	"github.com/Minh20812/audio-sync-player/internal/media"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

var ErrConnClosed = errors.New("bridge connection closed")

type command struct {
	Type    string               `json:"type"`
	Anchor  string               `json:"anchor,omitempty"`
	VideoID string               `json:"videoId,omitempty"`
	Seconds *float64             `json:"seconds,omitempty"`
	Percent *int                 `json:"percent,omitempty"`
	Volume  *float64             `json:"volume,omitempty"`
	Quality string               `json:"quality,omitempty"`
	Enabled *bool                `json:"enabled,omitempty"`
	Key     string               `json:"key,omitempty"`
	Sources []resolver.Candidate `json:"sources,omitempty"`
	Options *playerOptions       `json:"options,omitempty"`
}

// playerOptions mirror the host SDK's playerVars: autoplay and native
// controls always off, the transport controller owns the UI.
type playerOptions struct {
	Autoplay     bool   `json:"autoplay"`
	Controls     bool   `json:"controls"`
	CaptionsLang string `json:"captionsLang"`
	Quality      string `json:"quality"`
}

type event struct {
	Type          string  `json:"type"`
	Anchor        string  `json:"anchor,omitempty"`
	State         string  `json:"state,omitempty"`
	Code          int     `json:"code,omitempty"`
	Video         float64 `json:"video,omitempty"`
	VideoDuration float64 `json:"videoDuration,omitempty"`
	Audio         float64 `json:"audio,omitempty"`
	Active        bool    `json:"active,omitempty"`
}

// Conn is one attached page. It implements ytplayer.SDK, audio.Factory and
// screen.OrientationLocker against the remote page.
type Conn struct {
	ws     *websocket.Conn
	log    *slog.Logger
	loader *ytplayer.Loader

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	player       *RemotePlayer
	audioEl      *RemoteAudio
	onFullscreen func(bool)
	onActivity   func()
}

func New(ws *websocket.Conn, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{
		ws:     ws,
		log:    log,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
	c.loader = ytplayer.NewLoader(func() error {
		return c.sendCmd(command{Type: "sdkLoad"})
	})
	return c
}

// OnFullscreen registers the sink for host fullscreen-change notifications.
func (c *Conn) OnFullscreen(fn func(active bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFullscreen = fn
}

// OnActivity registers the sink for user input notifications.
func (c *Conn) OnActivity(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onActivity = fn
}

// Run drives the read and write pumps until the peer goes away.
func (c *Conn) Run() {
	go c.writePump()
	c.readPump()
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug("bridge write deadline", "err", err)
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("bridge write error", "err", err)
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer c.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.log.Debug("bridge read closed", "err", err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Conn) dispatch(data []byte) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.Warn("bridge bad event json", "err", err)
		return
	}

	switch ev.Type {
	case "sdkReady":
		c.loader.SignalReady()
	case "playerReady":
		if p := c.currentPlayer(ev.Anchor); p != nil {
			p.emitReady()
		}
	case "stateChange":
		if p := c.currentPlayer(ev.Anchor); p != nil {
			p.emitState(parseState(ev.State))
		}
	case "playerError":
		if p := c.currentPlayer(ev.Anchor); p != nil {
			p.emitError(ev.Code)
		}
	case "time":
		c.applyTelemetry(ev)
	case "fullscreen":
		c.mu.Lock()
		fn := c.onFullscreen
		c.mu.Unlock()
		if fn != nil {
			fn(ev.Active)
		}
	case "activity":
		c.mu.Lock()
		fn := c.onActivity
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	default:
		c.log.Warn("bridge unknown event", "type", ev.Type)
	}
}

func (c *Conn) currentPlayer(anchor string) *RemotePlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return nil
	}
	if anchor != "" && c.player.anchor != anchor {
		return nil
	}
	return c.player
}

func (c *Conn) applyTelemetry(ev event) {
	c.mu.Lock()
	p := c.player
	a := c.audioEl
	c.mu.Unlock()

	if p != nil {
		p.updateClock(ev.Video, ev.VideoDuration)
	}
	if a != nil {
		a.updateClock(ev.Audio)
	}
}

func (c *Conn) sendCmd(cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	// callers hold session locks; a stalled page must never block them.
	// When the buffer is full the command is dropped, not queued.
	select {
	case <-c.closed:
		return ErrConnClosed
	case c.send <- data:
		return nil
	default:
		c.log.Warn("bridge send buffer full, dropping command", "type", cmd.Type)
		return nil
	}
}

func parseState(s string) ytplayer.PlaybackState {
	switch s {
	case "playing":
		return ytplayer.StatePlaying
	case "paused":
		return ytplayer.StatePaused
	case "ended":
		return ytplayer.StateEnded
	case "buffering":
		return ytplayer.StateBuffering
	default:
		return ytplayer.StateUnstarted
	}
}

// EnsureLoaded injects the SDK bootstrap into the page at most once and waits
// for its readiness signal.
func (c *Conn) EnsureLoaded(ctx context.Context) error {
	return c.loader.Wait(ctx)
}

var (
	_ ytplayer.SDK  = (*Conn)(nil)
	_ audio.Factory = (*Conn)(nil)
)

// NewElement remounts the page's audio element under a fresh key with the
// given source candidates.
func (c *Conn) NewElement(key string, candidates []resolver.Candidate) (audio.Element, error) {
	el := &RemoteAudio{c: c, key: key}

	c.mu.Lock()
	c.audioEl = el
	c.mu.Unlock()

	if err := c.sendCmd(command{Type: "audioLoad", Key: key, Sources: candidates}); err != nil {
		return nil, err
	}
	return el, nil
}

// CreatePlayer destroys any player currently bound to anchor, then asks the
// page to construct a new instance.
func (c *Conn) CreatePlayer(anchor string, id media.ID, opts ytplayer.Options) (ytplayer.VideoPlayer, error) {
	p := &RemotePlayer{c: c, anchor: anchor, id: id, opts: opts}

	c.mu.Lock()
	old := c.player
	c.player = p
	c.mu.Unlock()

	if old != nil {
		old.Destroy()
	}

	err := c.sendCmd(command{
		Type:    "createPlayer",
		Anchor:  anchor,
		VideoID: id.String(),
		Options: &playerOptions{
			Autoplay:     false,
			Controls:     false,
			CaptionsLang: opts.CaptionsLang,
			Quality:      string(opts.Quality),
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AnnounceSession tells the page which session id its control requests
// should target.
func (c *Conn) AnnounceSession(id string) error {
	return c.sendCmd(command{Type: "attached", Key: id})
}

// LockLandscape asks the page for a landscape orientation lock. Best effort:
// the page ignores it when unsupported.
func (c *Conn) LockLandscape() error {
	return c.sendCmd(command{Type: "orientationLock"})
}

func (c *Conn) Unlock() error {
	return c.sendCmd(command{Type: "orientationUnlock"})
}
