package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SignalsReceived        *prometheus.CounterVec
	DuplicatePhrases       prometheus.Counter
	ActiveDialogs          prometheus.Gauge
	DialogsCreated         *prometheus.CounterVec
	DialogsRemoved         *prometheus.CounterVec
	OutboundCommands       *prometheus.CounterVec
	OutboundDuration       *prometheus.HistogramVec
	DeliveryDuration       prometheus.Histogram
	RedisOperationDuration *prometheus.HistogramVec
	AuditRecordsDropped    prometheus.Counter
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on /metrics, or a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SignalsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governor_signals_received_total",
			Help: "Total number of inbound phone engine signals by type",
		}, []string{"type"}),
		DuplicatePhrases: factory.NewCounter(prometheus.CounterOpts{
			Name: "governor_duplicate_phrases_total",
			Help: "Total number of redelivered user phrases that were not processed again",
		}),
		ActiveDialogs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "governor_active_dialogs",
			Help: "Current number of active dialogs",
		}),
		DialogsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governor_dialogs_created_total",
			Help: "Total number of dialogs created",
		}, []string{"reason"}),
		DialogsRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governor_dialogs_removed_total",
			Help: "Total number of dialogs removed",
		}, []string{"reason"}),
		OutboundCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governor_outbound_commands_total",
			Help: "Total number of commands sent to the phone engine",
		}, []string{"type", "status"}),
		OutboundDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "governor_outbound_duration_seconds",
			Help:    "Time taken for phone engine command calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "governor_message_delivery_duration_seconds",
			Help:    "Playback time of delivered bot messages",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		RedisOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "governor_redis_operation_duration_seconds",
			Help:    "Time taken for Redis operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		AuditRecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "governor_audit_records_dropped_total",
			Help: "Total number of audit records dropped because the stream queue was full",
		}),
	}
}
