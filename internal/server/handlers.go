package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Minh20812/audio-sync-player/internal/media"
	"github.com/Minh20812/audio-sync-player/internal/probe"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
	"github.com/Minh20812/audio-sync-player/internal/session"
	"github.com/Minh20812/audio-sync-player/internal/ytplayer"
)

const probeTimeout = 15 * time.Second

type loadRequest struct {
	Input string `json:"input" binding:"required"`
}

type secondsRequest struct {
	Seconds float64 `json:"seconds"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type qualityRequest struct {
	Quality string `json:"quality" binding:"required"`
}

type fullscreenRequest struct {
	Active bool `json:"active"`
}

// resolve maps a raw identifier or URL to its companion audio candidates
// without touching any session.
func (s *Server) resolve(c *gin.Context) {
	id, err := media.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    err.Error(),
			"category": media.Category(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         id.String(),
		"watchUrl":   id.WatchURL(),
		"thumbnail":  id.ThumbnailURL(),
		"item":       resolver.ArchiveItem(id),
		"candidates": resolver.Candidates(id, s.cfg.ArchiveBaseURL),
	})
}

func (s *Server) getSession(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	s.mgr.Remove(sess.ID())
	c.Status(http.StatusNoContent)
}

func (s *Server) load(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.Load(req.Input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"category": media.Category(err),
			"state":    sess.Snapshot(),
		})
		return
	}
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (s *Server) playPause(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	if err := sess.PlayPause(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoPlayer) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) seek(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req secondsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.Seek(req.Seconds); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) skipBack(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	if err := sess.SkipBack(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) skipForward(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	if err := sess.SkipForward(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) videoVolume(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.SetVideoVolume(req.Volume)
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) audioVolume(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.SetAudioVolume(req.Volume)
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) offset(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req secondsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := sess.SetAudioOffset(req.Seconds)
	c.JSON(http.StatusOK, gin.H{"offsetSec": applied})
}

func (s *Server) captions(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": sess.ToggleCaptions()})
}

func (s *Server) quality(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req qualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.SetQuality(ytplayer.Quality(req.Quality))
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) fullscreen(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	var req fullscreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.HandleFullscreenChange(req.Active)
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) activity(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	sess.Activity()
	c.Status(http.StatusNoContent)
}

// audioProbe opens the session's first audio candidate and reports its codec
// parameters. Useful for checking that the companion recording actually
// exists before hitting play.
func (s *Server) audioProbe(c *gin.Context) {
	sess := s.session(c)
	if sess == nil {
		return
	}
	candidates := sess.Candidates()
	if len(candidates) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audio candidates loaded"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	var lastErr error
	for _, cand := range candidates {
		info, err := probe.Audio(ctx, cand.URL)
		if err != nil {
			lastErr = err
			continue
		}
		c.JSON(http.StatusOK, gin.H{
			"url":         cand.URL,
			"codec":       info.Codec,
			"sampleRate":  info.SampleRate,
			"channels":    info.Channels,
			"durationSec": info.DurationSec,
		})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": lastErr.Error()})
}
