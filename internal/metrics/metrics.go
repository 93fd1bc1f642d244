package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used as the "reason" label of RecordsDropped.
const (
	ReasonMissingKey  = "missing_key"
	ReasonEmptyValue  = "empty_value"
	ReasonNotString   = "not_string"
	ReasonInvalidJSON = "invalid_json"
)

var (
	BatchesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flatten_batches_enqueued_total",
		Help: "Total number of batches placed on the processing queue.",
	})

	BatchesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flatten_batches_dropped_total",
		Help: "Total number of batches rejected due to a full queue.",
	})

	RecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flatten_records_processed_total",
		Help: "Total number of input records run through the flatten transform.",
	})

	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatten_records_dropped_total",
		Help: "Input records that produced no output, labelled by reason.",
	}, []string{"reason"})

	EventsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flatten_events_emitted_total",
		Help: "Total number of flattened events handed to the emitter.",
	})

	EmitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatten_emit_errors_total",
		Help: "Emitter failures, labelled by sink.",
	}, []string{"sink"})

	BatchProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flatten_batch_processing_duration_ms",
		Help:    "Batch processing latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flatten_queue_utilization_ratio",
		Help: "Current batch queue utilization (0–1).",
	})

	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flatten_config_reloads_total",
		Help: "Config reload attempts, labelled by status.",
	}, []string{"status"})
)
