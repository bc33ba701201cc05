package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// driftSeconds is the last measured primary/secondary clock divergence.
	driftSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "avsync_drift_seconds",
		Help: "Absolute divergence between the primary and secondary clocks at the last poll.",
	})

	// correctionsTotal counts snap-corrections applied to the secondary clock.
	correctionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avsync_corrections_total",
		Help: "Total number of snap-corrections written to the secondary clock.",
	})

	// tickErrorsTotal counts polls skipped because a clock read failed.
	tickErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avsync_tick_errors_total",
		Help: "Total number of sync polls skipped because a clock read failed.",
	})
)
