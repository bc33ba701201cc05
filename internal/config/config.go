package config

import (
	"os"
	"strconv"
	"time"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getms(key string, def int) time.Duration {
	ms, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		Mode:           getenv("MODE", "release"),
		ArchiveBaseURL: getenv("ARCHIVE_BASE_URL", "https://archive.org/download"),
		SyncInterval:   getms("SYNC_POLL_MS", 500),
		SyncTolerance:  float64(getms("SYNC_TOLERANCE_MS", 500)) / float64(time.Second),
		SkipStepSec: func() float64 {
			v, err := strconv.ParseFloat(getenv("SKIP_STEP_SEC", "10"), 64)
			if err != nil || v <= 0 {
				return 10
			}
			return v
		}(),
		HideControls:   getms("FULLSCREEN_HIDE_MS", 3000),
		CaptionsLang:   getenv("CAPTIONS_LANG", "en"),
		EnableMetadata: getenv("ENABLE_METADATA", "true") == "true",
	}

	if cfg.Mode != "release" && cfg.Mode != "debug" {
		return nil, ErrConfig("MODE must be release or debug")
	}
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
