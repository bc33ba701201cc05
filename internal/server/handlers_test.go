package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minh20812/audio-sync-player/internal/audio"
	"github.com/Minh20812/audio-sync-player/internal/config"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
	"github.com/Minh20812/audio-sync-player/internal/session"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

const testVideoID = "dQw4w9WgXcQ"

type fixture struct {
	router *gin.Engine
	mgr    *session.Manager
	sdk    *ytplayer.FakeSDK
	audioF *audio.FakeFactory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		ListenAddr:     ":0",
		Mode:           "release",
		ArchiveBaseURL: resolver.DefaultBaseURL,
		SyncInterval:   10 * time.Millisecond,
		SyncTolerance:  0.5,
		SkipStepSec:    10,
		HideControls:   time.Second,
		CaptionsLang:   "en",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(cfg, nil, log)
	srv := New(cfg, mgr, log)
	return &fixture{
		router: srv.Router(),
		mgr:    mgr,
		sdk:    &ytplayer.FakeSDK{},
		audioF: &audio.FakeFactory{},
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// newReadySession drives a fake-backed session through load until the player
// reports ready.
func (f *fixture) newReadySession(t *testing.T) *session.Session {
	t.Helper()
	sess := f.mgr.Create(f.sdk, f.audioF, nil, false)
	t.Cleanup(func() { f.mgr.Remove(sess.ID()) })

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/load",
		`{"input":"`+testVideoID+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool { return f.sdk.Last() != nil },
		time.Second, 5*time.Millisecond)
	f.sdk.Last().EmitReady()
	require.Eventually(t, func() bool { return sess.Status() == session.StatusReady },
		time.Second, 5*time.Millisecond)
	return sess
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["sessions"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/resolve/"+testVideoID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, testVideoID, body["id"])
	assert.Equal(t, "https://youtube.com/watch?v="+testVideoID, body["watchUrl"])

	cands, ok := body["candidates"].([]any)
	require.True(t, ok)
	require.Len(t, cands, 2)
	first := cands[0].(map[string]any)
	assert.Equal(t, "audio/ogg", first["mimeType"])
}

func TestResolveInvalid(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/resolve/not-an-id", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", decode(t, w)["category"])
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/nope"},
		{http.MethodPost, "/api/sessions/nope/playpause"},
		{http.MethodPost, "/api/sessions/nope/activity"},
	} {
		w := f.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestLoadAndSnapshot(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodGet, "/api/sessions/"+sess.ID(), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, testVideoID, body["mediaId"])
	assert.Equal(t, false, body["isPlaying"])
}

func TestLoadInvalidInput(t *testing.T) {
	f := newFixture(t)
	sess := f.mgr.Create(f.sdk, f.audioF, nil, false)
	t.Cleanup(func() { f.mgr.Remove(sess.ID()) })

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/load",
		`{"input":"definitely not a video"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_id", body["category"])
	state := body["state"].(map[string]any)
	assert.Equal(t, "error", state["status"])
}

func TestLoadMissingBody(t *testing.T) {
	f := newFixture(t)
	sess := f.mgr.Create(f.sdk, f.audioF, nil, false)
	t.Cleanup(func() { f.mgr.Remove(sess.ID()) })

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayPauseFlow(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/playpause", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["isPlaying"])

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/playpause", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["isPlaying"])
}

func TestPlayPauseWithoutPlayerConflicts(t *testing.T) {
	f := newFixture(t)
	sess := f.mgr.Create(f.sdk, f.audioF, nil, false)
	t.Cleanup(func() { f.mgr.Remove(sess.ID()) })

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/playpause", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSeekAndSkip(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)
	f.sdk.Last().SetClock(50, 300)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/seek", `{"seconds":42}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, f.sdk.Last().SeekCalls, 42.0)

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/skip-forward", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, f.sdk.Last().SeekCalls, 52.0)

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/skip-back", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, f.sdk.Last().SeekCalls, 42.0)
}

func TestVolumesAndOffset(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/video-volume", `{"volume":0.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.5, decode(t, w)["videoVolume"])

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/audio-volume", `{"volume":0.8}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.8, decode(t, w)["audioVolume"])

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/offset", `{"seconds":2.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.5, decode(t, w)["offsetSec"])

	// out-of-range offsets come back clamped
	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/offset", `{"seconds":99}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, decode(t, w)["offsetSec"])
}

func TestCaptionsToggle(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/captions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/captions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["enabled"])
}

func TestQuality(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/quality", `{"quality":"hd720"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hd720", decode(t, w)["quality"])
	assert.Equal(t, ytplayer.QualityHD720, f.sdk.Last().Quality)
}

func TestFullscreenAndActivity(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/fullscreen", `{"active":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fullscreen-controls-visible", decode(t, w)["fullscreen"])

	w = f.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/activity", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	sess := f.newReadySession(t)

	w := f.do(t, http.MethodDelete, "/api/sessions/"+sess.ID(), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/sessions/"+sess.ID(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, f.sdk.Last().DestroyCalls)
}

func TestAudioProbeWithoutCandidates(t *testing.T) {
	f := newFixture(t)
	sess := f.mgr.Create(f.sdk, f.audioF, nil, false)
	t.Cleanup(func() { f.mgr.Remove(sess.ID()) })

	w := f.do(t, http.MethodGet, "/api/sessions/"+sess.ID()+"/audio-probe", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
