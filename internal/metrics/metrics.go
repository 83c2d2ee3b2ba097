// Package metrics exposes Prometheus instrumentation for the pipeline,
// grounded on the ingest service's internal/metrics/metrics.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the pipeline updates.
type Metrics struct {
	LinesTotal             prometheus.Counter
	ParseErrorsTotal       prometheus.Counter
	FailuresClassified     prometheus.Counter
	SuccessesClassified    prometheus.Counter
	SuspectsEmitted        prometheus.Counter
	BreakinsDetected       prometheus.Counter
	NATSPublishErrors      prometheus.Counter
	ThroughputLinesPerSec  prometheus.Gauge
	PipelineElapsedSeconds prometheus.Gauge
}

// New registers and returns the pipeline's metric collectors.
func New() *Metrics {
	return &Metrics{
		LinesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_lines_total",
			Help: "Total number of input lines read from the source.",
		}),
		ParseErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_parse_errors_total",
			Help: "Total number of lines that failed to parse.",
		}),
		FailuresClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "failures_classified_total",
			Help: "Total number of log lines classified as sshd authentication failures.",
		}),
		SuccessesClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "successes_classified_total",
			Help: "Total number of log lines classified as sshd successful logins.",
		}),
		SuspectsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suspects_emitted_total",
			Help: "Total number of Suspect tuples emitted by the SuspectFinder.",
		}),
		BreakinsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "breakins_detected_total",
			Help: "Total number of Breakin tuples emitted by the Correlator.",
		}),
		NATSPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Total number of errors publishing a Breakin to NATS.",
		}),
		ThroughputLinesPerSec: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_throughput_lines_per_second",
			Help: "Most recent input-lines-per-second throughput measurement.",
		}),
		PipelineElapsedSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_elapsed_seconds",
			Help: "Most recent wall-clock duration measurement, in seconds.",
		}),
	}
}
