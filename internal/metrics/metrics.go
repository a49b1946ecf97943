package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution paths
const (
	PathFast  = "fast"
	PathModel = "model"
)

// Outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_resolutions_total",
			Help: "Total number of filter resolutions by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	DroppedKeywords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_dropped_keywords_total",
			Help: "Keywords returned by the language model that were not on the whitelist",
		},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_gateway_request_duration_seconds",
			Help:    "Duration of language model completions in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"outcome"},
	)
)
