package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus instruments for the voice pipeline.
type Metrics struct {
	// Round metrics
	TurnsStarted   prometheus.Counter
	TurnsCompleted prometheus.Counter
	TurnsFailed    *prometheus.CounterVec // labeled by failed stage
	TurnDuration   prometheus.Histogram

	// Upstream call metrics
	UpstreamRequests *prometheus.CounterVec // labeled by stage, outcome
	UpstreamDuration *prometheus.HistogramVec

	// Fallback synthesizer
	FallbackSyntheses prometheus.Counter

	// Recording sessions
	ActiveRecordings prometheus.Gauge
	RecordedBytes    prometheus.Counter
	DiscardedRecords prometheus.Counter

	// Client channels
	ActiveWebsockets prometheus.Gauge
	ActiveEventFeeds prometheus.Gauge
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		TurnsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_turns_started_total",
			Help: "Total number of voice rounds started",
		}),
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_turns_completed_total",
			Help: "Total number of voice rounds completed successfully",
		}),
		TurnsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceloop_turns_failed_total",
			Help: "Total number of voice rounds aborted, by failing stage",
		}, []string{"stage"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceloop_turn_duration_seconds",
			Help:    "End-to-end duration of a voice round",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceloop_upstream_requests_total",
			Help: "Upstream service calls, by stage and outcome",
		}, []string{"stage", "outcome"}),
		UpstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceloop_upstream_duration_seconds",
			Help:    "Upstream service call duration, by stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"stage"}),
		FallbackSyntheses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_fallback_syntheses_total",
			Help: "Rounds answered with locally synthesized audio",
		}),
		ActiveRecordings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceloop_active_recordings",
			Help: "Recording sessions currently open",
		}),
		RecordedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_recorded_bytes_total",
			Help: "Audio bytes appended to recording buffers",
		}),
		DiscardedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_discarded_recordings_total",
			Help: "Recordings dropped for being empty at stop",
		}),
		ActiveWebsockets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceloop_active_websockets",
			Help: "Open websocket recorder channels",
		}),
		ActiveEventFeeds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceloop_active_event_feeds",
			Help: "Open SSE state streams",
		}),
	}
}
