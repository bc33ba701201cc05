package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minh20812/audio-sync-player/internal/media"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestConn upgrades a loopback websocket and returns the server-side Conn
// plus the raw client end standing in for the attached page.
func newTestConn(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	connCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := New(ws, quietLogger())
		connCh <- c
		c.Run()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := <-connCh
	t.Cleanup(c.Close)
	return c, client
}

func readCmd(t *testing.T, client *websocket.Conn) command {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	var cmd command
	require.NoError(t, json.Unmarshal(data, &cmd))
	return cmd
}

func sendEvent(t *testing.T, client *websocket.Conn, ev event) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, data))
}

func TestEnsureLoadedInjectsOnce(t *testing.T) {
	c, client := newTestConn(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.EnsureLoaded(ctx)
		}(i)
	}

	cmd := readCmd(t, client)
	assert.Equal(t, "sdkLoad", cmd.Type)

	sendEvent(t, client, event{Type: "sdkReady"})
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	// a later wait must not inject again
	require.NoError(t, c.EnsureLoaded(ctx))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "no second sdkLoad expected")
}

func TestCreatePlayerRoundTrip(t *testing.T) {
	c, client := newTestConn(t)

	var (
		mu     sync.Mutex
		ready  bool
		states []ytplayer.PlaybackState
		gotErr error
	)
	p, err := c.CreatePlayer("anchor-1", "dQw4w9WgXcQ", ytplayer.Options{
		CaptionsLang: "en",
		Quality:      ytplayer.QualityMedium,
		OnReady:      func() { mu.Lock(); ready = true; mu.Unlock() },
		OnStateChange: func(st ytplayer.PlaybackState) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		},
		OnError: func(e error) { mu.Lock(); gotErr = e; mu.Unlock() },
	})
	require.NoError(t, err)

	cmd := readCmd(t, client)
	assert.Equal(t, "createPlayer", cmd.Type)
	assert.Equal(t, "anchor-1", cmd.Anchor)
	assert.Equal(t, "dQw4w9WgXcQ", cmd.VideoID)
	require.NotNil(t, cmd.Options)
	assert.False(t, cmd.Options.Autoplay)
	assert.False(t, cmd.Options.Controls)
	assert.Equal(t, "en", cmd.Options.CaptionsLang)
	assert.Equal(t, "medium", cmd.Options.Quality)

	sendEvent(t, client, event{Type: "playerReady", Anchor: "anchor-1"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ready
	}, time.Second, 10*time.Millisecond)

	sendEvent(t, client, event{Type: "stateChange", Anchor: "anchor-1", State: "playing"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1 && states[0] == ytplayer.StatePlaying
	}, time.Second, 10*time.Millisecond)

	sendEvent(t, client, event{Type: "time", Video: 12.5, VideoDuration: 210, Audio: 12.4})
	require.Eventually(t, func() bool {
		pos, err := p.CurrentTime()
		return err == nil && pos >= 12.5
	}, time.Second, 10*time.Millisecond)
	dur, err := p.Duration()
	require.NoError(t, err)
	assert.Equal(t, 210.0, dur)

	sendEvent(t, client, event{Type: "playerError", Anchor: "anchor-1", Code: 150})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotErr != nil
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.ErrorIs(t, gotErr, media.ErrPlaybackRestricted)
	mu.Unlock()
}

func TestEventsForStaleAnchorIgnored(t *testing.T) {
	c, client := newTestConn(t)

	var ready bool
	var mu sync.Mutex
	_, err := c.CreatePlayer("anchor-2", "dQw4w9WgXcQ", ytplayer.Options{
		OnReady: func() { mu.Lock(); ready = true; mu.Unlock() },
	})
	require.NoError(t, err)
	_ = readCmd(t, client)

	sendEvent(t, client, event{Type: "playerReady", Anchor: "anchor-old"})
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.False(t, ready)
	mu.Unlock()
}

func TestClockBeforeTelemetryErrors(t *testing.T) {
	c, client := newTestConn(t)

	p, err := c.CreatePlayer("anchor-1", "dQw4w9WgXcQ", ytplayer.Options{})
	require.NoError(t, err)
	_ = readCmd(t, client)

	_, err = p.CurrentTime()
	assert.ErrorIs(t, err, ErrNoTelemetry)
	_, err = p.Duration()
	assert.ErrorIs(t, err, ErrNoTelemetry)
}

func TestPlayerCommandsAndDestroy(t *testing.T) {
	c, client := newTestConn(t)

	p, err := c.CreatePlayer("anchor-1", "dQw4w9WgXcQ", ytplayer.Options{})
	require.NoError(t, err)
	_ = readCmd(t, client)

	require.NoError(t, p.Play())
	assert.Equal(t, "play", readCmd(t, client).Type)

	require.NoError(t, p.Pause())
	assert.Equal(t, "pause", readCmd(t, client).Type)

	require.NoError(t, p.SeekTo(33))
	cmd := readCmd(t, client)
	assert.Equal(t, "seekTo", cmd.Type)
	require.NotNil(t, cmd.Seconds)
	assert.Equal(t, 33.0, *cmd.Seconds)

	require.NoError(t, p.SetVolume(25))
	cmd = readCmd(t, client)
	assert.Equal(t, "setVolume", cmd.Type)
	require.NotNil(t, cmd.Percent)
	assert.Equal(t, 25, *cmd.Percent)

	require.NoError(t, p.SetPlaybackQuality(ytplayer.QualitySmall))
	assert.Equal(t, "small", readCmd(t, client).Quality)

	require.NoError(t, p.SetCaptions(true))
	cmd = readCmd(t, client)
	assert.Equal(t, "setCaptions", cmd.Type)
	require.NotNil(t, cmd.Enabled)
	assert.True(t, *cmd.Enabled)

	p.Destroy()
	assert.Equal(t, "destroyPlayer", readCmd(t, client).Type)
	p.Destroy() // second call is a no-op
	assert.ErrorIs(t, p.Play(), ErrDestroyed)
	_, err = p.CurrentTime()
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestRemoteAudioLifecycle(t *testing.T) {
	c, client := newTestConn(t)

	el, err := c.NewElement("key-1", []resolver.Candidate{
		{URL: "https://archive.org/download/x/x.ogg", MimeType: "audio/ogg"},
		{URL: "https://archive.org/download/x/x.mp3", MimeType: "audio/mpeg"},
	})
	require.NoError(t, err)

	cmd := readCmd(t, client)
	assert.Equal(t, "audioLoad", cmd.Type)
	assert.Equal(t, "key-1", cmd.Key)
	require.Len(t, cmd.Sources, 2)
	assert.Equal(t, "audio/ogg", cmd.Sources[0].MimeType)

	require.NoError(t, el.Play())
	assert.Equal(t, "audioPlay", readCmd(t, client).Type)

	require.NoError(t, el.SetCurrentTime(7.25))
	cmd = readCmd(t, client)
	assert.Equal(t, "audioSeek", cmd.Type)
	require.NotNil(t, cmd.Seconds)
	assert.Equal(t, 7.25, *cmd.Seconds)

	pos, err := el.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 7.25, pos)

	require.NoError(t, el.SetVolume(0.5))
	cmd = readCmd(t, client)
	assert.Equal(t, "audioVolume", cmd.Type)
	require.NotNil(t, cmd.Volume)
	assert.Equal(t, 0.5, *cmd.Volume)

	require.NoError(t, el.Pause())
	assert.Equal(t, "audioPause", readCmd(t, client).Type)

	el.Close()
	assert.Equal(t, "audioUnload", readCmd(t, client).Type)
	el.Close() // second call is a no-op
	assert.ErrorIs(t, el.Play(), ErrDestroyed)
}

func TestFullscreenAndActivityEvents(t *testing.T) {
	c, client := newTestConn(t)

	var (
		mu       sync.Mutex
		fsActive []bool
		activity int
	)
	c.OnFullscreen(func(active bool) {
		mu.Lock()
		fsActive = append(fsActive, active)
		mu.Unlock()
	})
	c.OnActivity(func() {
		mu.Lock()
		activity++
		mu.Unlock()
	})

	sendEvent(t, client, event{Type: "fullscreen", Active: true})
	sendEvent(t, client, event{Type: "activity"})
	sendEvent(t, client, event{Type: "fullscreen", Active: false})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fsActive) == 2 && activity == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []bool{true, false}, fsActive)
	mu.Unlock()
}

func TestOrientationCommands(t *testing.T) {
	c, client := newTestConn(t)

	require.NoError(t, c.LockLandscape())
	assert.Equal(t, "orientationLock", readCmd(t, client).Type)
	require.NoError(t, c.Unlock())
	assert.Equal(t, "orientationUnlock", readCmd(t, client).Type)
}

func TestSendNeverBlocksOnFullBuffer(t *testing.T) {
	// no pumps running: nothing drains the send channel
	c := New(nil, quietLogger())
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, c.LockLandscape())
	}

	done := make(chan error, 1)
	go func() { done <- c.LockLandscape() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send blocked on a full buffer")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	c, _ := newTestConn(t)
	c.Close()
	assert.ErrorIs(t, c.LockLandscape(), ErrConnClosed)
}
