package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var playbackErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "avsync_playback_errors_total",
	Help: "Playback failures that put a session into the error state, by category.",
}, []string{"category"})
