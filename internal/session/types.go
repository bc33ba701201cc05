package session

import (
	"github.com/Minh20812/audio-sync-player/internal/metadata"
	"github.com/Minh20812/audio-sync-player/internal/resolver"
)

type Status int

const (
	StatusIdle Status = iota
	StatusValidating
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusValidating:
		return "validating"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a point-in-time snapshot of a session for the presentation layer.
type State struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	RawInput  string `json:"rawInput,omitempty"`
	MediaID   string `json:"mediaId,omitempty"`
	WatchURL  string `json:"watchUrl,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`

	Error         string `json:"error,omitempty"`
	ErrorCategory string `json:"errorCategory,omitempty"`

	IsPlaying      bool    `json:"isPlaying"`
	Position       float64 `json:"position"`
	Duration       float64 `json:"duration"`
	PositionPretty string  `json:"positionPretty"`
	DurationPretty string  `json:"durationPretty"`

	VideoVolume     float64 `json:"videoVolume"`
	AudioVolume     float64 `json:"audioVolume"`
	AudioOffsetSec  float64 `json:"audioOffsetSec"`
	CaptionsEnabled bool    `json:"captionsEnabled"`
	Quality         string  `json:"quality"`
	Fullscreen      string  `json:"fullscreen"`

	AudioCandidates []resolver.Candidate `json:"audioCandidates,omitempty"`
	Video           *metadata.VideoInfo  `json:"video,omitempty"`
}
