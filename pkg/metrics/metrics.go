package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attribution_build_info",
			Help: "Build information of the attribution engine",
		},
		[]string{"version", "commit", "date"},
	)

	RunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribution_run_total",
			Help: "Total number of attribution runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attribution_run_duration_seconds",
			Help:    "Duration of attribution runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~410s
		},
	)

	SponsorsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribution_sponsors_processed_total",
			Help: "Total number of sponsors processed across runs",
		},
		[]string{"status"},
	)

	ChainRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribution_chain_requests_total",
			Help: "Total number of chain API requests",
		},
		[]string{"method", "status"},
	)

	AllocatedRewards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attribution_allocated_rewards",
			Help: "Total rewards newly allocated in the most recent run",
		},
	)
)
