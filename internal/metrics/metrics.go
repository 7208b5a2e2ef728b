// Package metrics exposes Prometheus collectors for the scan pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline collectors and the registry serving them.
type Metrics struct {
	Registry *prometheus.Registry

	FramesCaptured prometheus.Counter
	Decodes        prometheus.Counter
	Recognized     prometheus.Counter
	Suppressed     prometheus.Counter
	QueueDropped   prometheus.Counter
	WriteAttempts  prometheus.Counter
	WriteOK        prometheus.Counter
	WriteFailed    prometheus.Counter
	WriteRetries   prometheus.Counter
	Spooled        prometheus.Counter

	QueueDepth prometheus.Gauge
	SpoolDepth prometheus.Gauge
}

// New creates a metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_frames_captured_total",
			Help: "Camera frames pulled by the capture loop.",
		}),
		Decodes: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_qr_decodes_total",
			Help: "Frames in which a QR payload was decoded.",
		}),
		Recognized: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_scans_recognized_total",
			Help: "Scans accepted by the dedup gate and enqueued.",
		}),
		Suppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_scans_suppressed_total",
			Help: "Duplicate detections suppressed within the cooldown window.",
		}),
		QueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_queue_dropped_total",
			Help: "Records lost to the drop-oldest overflow policy.",
		}),
		WriteAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_sheet_write_attempts_total",
			Help: "Append attempts against the remote sheet.",
		}),
		WriteOK: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_sheet_writes_ok_total",
			Help: "Records successfully appended to the remote sheet.",
		}),
		WriteFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_sheet_writes_failed_total",
			Help: "Records dropped after retry exhaustion or permanent errors.",
		}),
		WriteRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_sheet_write_retries_total",
			Help: "Transient write failures that triggered a backoff retry.",
		}),
		Spooled: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_records_spooled_total",
			Help: "Records persisted to the offline spool.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "turnstile_queue_depth",
			Help: "Records currently pending in the write queue.",
		}),
		SpoolDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "turnstile_spool_depth",
			Help: "Records currently persisted in the offline spool.",
		}),
	}
}
