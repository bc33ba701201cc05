// Package server exposes the HTTP control surface: a websocket attach
// endpoint for player pages and a JSON API for driving sessions.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Minh20812/audio-sync-player/internal/bridge"
	"github.com/Minh20812/audio-sync-player/internal/config"
	"github.com/Minh20812/audio-sync-player/internal/session"
)

type Server struct {
	cfg      *config.Config
	mgr      *session.Manager
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg *config.Config, mgr *session.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg: cfg,
		mgr: mgr,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// pages are served from arbitrary origins during development
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if s.cfg.Mode != "release" {
		r.Use(gin.Logger())
	}

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/api/ws", s.attach)
	r.GET("/api/resolve/:id", s.resolve)

	sess := r.Group("/api/sessions")
	sess.GET("/:id", s.getSession)
	sess.DELETE("/:id", s.deleteSession)
	sess.GET("/:id/audio-probe", s.audioProbe)
	sess.POST("/:id/load", s.load)
	sess.POST("/:id/playpause", s.playPause)
	sess.POST("/:id/seek", s.seek)
	sess.POST("/:id/skip-back", s.skipBack)
	sess.POST("/:id/skip-forward", s.skipForward)
	sess.POST("/:id/video-volume", s.videoVolume)
	sess.POST("/:id/audio-volume", s.audioVolume)
	sess.POST("/:id/offset", s.offset)
	sess.POST("/:id/captions", s.captions)
	sess.POST("/:id/quality", s.quality)
	sess.POST("/:id/fullscreen", s.fullscreen)
	sess.POST("/:id/activity", s.activity)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.mgr.Count(),
	})
}

// attach upgrades the request to a websocket, binds a new session to the
// page behind it and pumps the connection until the page goes away.
func (s *Server) attach(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	conn := bridge.New(ws, s.log)
	mobile := c.Query("mobile") == "1"
	sess := s.mgr.Create(conn, conn, conn, mobile)

	conn.OnFullscreen(sess.HandleFullscreenChange)
	conn.OnActivity(sess.Activity)

	if err := conn.AnnounceSession(sess.ID()); err != nil {
		s.log.Warn("session announce failed", "session", sess.ID(), "err", err)
	}
	s.log.Info("page attached", "session", sess.ID(), "mobile", mobile)

	conn.Run()

	s.mgr.Remove(sess.ID())
	s.log.Info("page detached", "session", sess.ID())
}

// session resolves the :id path param, writing 404 on a miss.
func (s *Server) session(c *gin.Context) *session.Session {
	sess := s.mgr.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
	}
	return sess
}
