package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters for the federation core. Everything registers on the
// default registry; the store daemon exposes it via promhttp on /metrics.

var (
	// StoreOps counts document store operations by op and outcome.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "store",
		Name:      "ops_total",
		Help:      "Document store operations by operation and result.",
	}, []string{"op", "result"})

	// CacheHits / CacheMisses track the adapter's key-prefix cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "store",
		Name:      "cache_hits_total",
		Help:      "Adapter cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "store",
		Name:      "cache_misses_total",
		Help:      "Adapter cache misses.",
	})

	// ScreensIndexed counts screen entries written by the indexer.
	ScreensIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "indexer",
		Name:      "screens_indexed_total",
		Help:      "Screen catalog entries written by the source scanner.",
	})

	// FalsePositives counts scanner matches that relied on a loose body
	// mention rather than a screen-like type name. The scan predicate is
	// deliberately permissive; this counter sizes the slack.
	FalsePositives = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "indexer",
		Name:      "false_positive_rate",
		Help:      "Loose scanner matches (body mention only) that may not be screens.",
	})

	// InvocationsCreated / InvocationsConsumed / InvocationsExpired track
	// the invocation bus lifecycle.
	InvocationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "invocation",
		Name:      "created_total",
		Help:      "Invocation records written.",
	})
	InvocationsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "invocation",
		Name:      "consumed_total",
		Help:      "Invocation records consumed by a module.",
	})
	InvocationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hangarcore",
		Subsystem: "invocation",
		Name:      "expired_total",
		Help:      "Invocation records discarded because their TTL elapsed.",
	})

	// SessionBusConnected reports the MQTT session bus connection state.
	SessionBusConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hangarcore",
		Subsystem: "session",
		Name:      "bus_connected",
		Help:      "1 when the session message bus is connected, 0 otherwise.",
	})
)
