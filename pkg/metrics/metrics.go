package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnapshotFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_fetches_total",
			Help: "Total number of bulk snapshot fetches (count)",
		},
		[]string{"status"},
	)

	SnapshotFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_fetch_duration_ms",
			Help:    "Duration of bulk snapshot fetches in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	SnapshotEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_events",
			Help: "Number of events in the most recent accepted snapshot (count)",
		},
	)

	DeltasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltas_total",
			Help: "Total number of incremental updates applied to the canonical collection, by outcome (count)",
		},
		[]string{"outcome"},
	)

	DeltaProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delta_processing_duration_ms",
			Help:    "Processing duration for incremental updates in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"outcome"},
	)

	CanonicalEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "canonical_events",
			Help: "Current size of the canonical event collection (count)",
		},
	)

	SinkForwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_forwards_total",
			Help: "Total number of newly admitted events forwarded to the downstream sink (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)
)

func RegisterReconcilerMetrics() {
	prometheus.MustRegister(
		DeltasTotal,
		DeltaProcessingDuration,
		CanonicalEvents,
		SnapshotEvents,
	)
}

func RegisterFetcherMetrics() {
	prometheus.MustRegister(
		SnapshotFetchesTotal,
		SnapshotFetchDuration,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		KafkaMessagesReadTotal,
		KafkaMessagesWrittenTotal,
		SinkForwardsTotal,
	)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(
		RateLimitRequestsTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func ObserveSnapshotFetchDuration(duration time.Duration, status string) {
	SnapshotFetchDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveDeltaDuration(duration time.Duration, outcome string) {
	DeltaProcessingDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func SetCanonicalEvents(count int) {
	CanonicalEvents.Set(float64(count))
}

func SetSnapshotEvents(count int) {
	SnapshotEvents.Set(float64(count))
}
