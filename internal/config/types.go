package config

import "time"

type Config struct {
	ListenAddr string
	Mode       string // release/debug

	ArchiveBaseURL string

	SyncInterval  time.Duration
	SyncTolerance float64 // seconds
	SkipStepSec   float64
	HideControls  time.Duration

	CaptionsLang   string
	EnableMetadata bool
}
