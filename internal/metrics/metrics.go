package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider calls
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_provider_requests_total",
		Help: "Metadata provider requests by operation and outcome.",
	}, []string{"op", "outcome"}) // outcome: ok, not_found, api_error, transport_error

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marquee_provider_request_duration_seconds",
		Help:    "Duration of metadata provider HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// Response cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_provider_cache_total",
		Help: "Provider response cache lookups by tier and result.",
	}, []string{"tier", "result"}) // tier: memory, store; result: hit, miss

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marquee_provider_cache_entries",
		Help: "Entries currently held in the in-memory response cache.",
	})

	// Fallback substitution on category rows
	FallbackServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_fallback_served_total",
		Help: "Times the fixed fallback catalog replaced a category row.",
	}, []string{"row"})

	ProviderAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marquee_provider_available",
		Help: "1 when the last availability probe succeeded, 0 otherwise.",
	})

	// Realtime
	ReactionsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_reactions_published_total",
		Help: "Reactions published on the realtime channel.",
	}, []string{"kind"})

	ReactionsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_reactions_received_total",
		Help: "Reaction events received from the realtime channel.",
	}, []string{"kind"})

	RelayClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marquee_relay_clients",
		Help: "WebSocket clients connected to the reaction relay.",
	})

	// Background tasks
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marquee_task_runs_total",
		Help: "Scheduled task executions by task and result.",
	}, []string{"task", "result"}) // result: ok, error

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marquee_task_duration_seconds",
		Help:    "Duration of scheduled task executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
)

// ObserveProvider records the duration and outcome of one provider request.
func ObserveProvider(op, outcome string, start time.Time) {
	ProviderRequests.WithLabelValues(op, outcome).Inc()
	ProviderDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveTask records one scheduled task execution.
func ObserveTask(task string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TaskRuns.WithLabelValues(task, result).Inc()
	TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// SetAvailable records the result of an availability probe.
func SetAvailable(ok bool) {
	if ok {
		ProviderAvailable.Set(1)
		return
	}
	ProviderAvailable.Set(0)
}
