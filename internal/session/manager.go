package session

import (
	"log/slog"
	"sync"

	"github.com/Minh20812/audio-sync-player/internal/audio"
	"github.com/Minh20812/audio-sync-player/internal/config"
	"github.com/Minh20812/audio-sync-player/internal/metadata"
	"github.com/Minh20812/audio-sync-player/internal/screen"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

// Manager owns every live session in the process.
type Manager struct {
	cfg  *config.Config
	meta metadata.Source
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg *config.Config, meta metadata.Source, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		meta:     meta,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session bound to the given adapter endpoints.
func (m *Manager) Create(sdk ytplayer.SDK, audioF audio.Factory, orientation screen.OrientationLocker, mobile bool) *Session {
	s := New(m.cfg, sdk, audioF, m.meta, orientation, mobile, m.log)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.log.Info("session created", "session", s.ID(), "mobile", mobile)
	return s
}

func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Remove closes and forgets a session. Safe for unknown ids.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		s.Close()
		m.log.Info("session removed", "session", id)
	}
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
