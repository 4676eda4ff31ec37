package advisor

import "github.com/prometheus/client_golang/prometheus"

const namespace = "service_advisor"

// Lookup results
const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupExpired = "expired"
	lookupCorrupt = "corrupt"
)

// Fallback kinds
const (
	fallbackStale  = "stale"
	fallbackStatic = "static"
)

// Provider outcomes
const (
	outcomeSuccess   = "success"
	outcomeDegraded  = "degraded"
	outcomeThrottled = "throttled"
	outcomeError     = "error"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advisory_cache",
			Name:      "lookups_total",
			Help:      "Advisory cache lookups by result.",
		},
		[]string{"result"},
	)

	cacheFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advisory_cache",
			Name:      "fallbacks_total",
			Help:      "Answers served while the provider was throttled, by kind.",
		},
		[]string{"kind"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "advisory_provider",
			Name:      "duration_seconds",
			Help:      "Latency of advisory provider calls by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheFallbacks, providerDuration)
}
