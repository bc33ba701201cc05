package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Minh20812/audio-sync-player/internal/config"
	"github.com/Minh20812/audio-sync-player/internal/metadata"
	"github.com/Minh20812/audio-sync-player/internal/server"
	"github.com/Minh20812/audio-sync-player/internal/session"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Mode != "release" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	var meta metadata.Source
	if cfg.EnableMetadata {
		meta = metadata.YTDLP{}
	}
	mgr := session.NewManager(cfg, meta, log)
	srv := server.New(cfg, mgr, log)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "mode", cfg.Mode)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "err", err)
	}
}
