// Package metrics provides Prometheus metrics and a fire-and-forget event
// sink for the voice analysis pipeline. Nothing here returns an error to the
// caller; a metric that cannot be recorded is dropped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"voicecoach-go/internal/logger"
)

type Sink struct {
	log *logrus.Entry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	segmentsAnalyzed prometheus.Counter
	segmentsDropped  prometheus.Counter
	modelLatency     prometheus.Histogram
	queueDepth       prometheus.Gauge
	quotaDenied      prometheus.Counter
}

func NewSink(reg prometheus.Registerer) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Sink{
		log: logger.Component("metrics"),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicecoach",
			Name:      "analysis_runs_total",
			Help:      "Pipeline runs by terminal status.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voicecoach",
			Name:      "analysis_run_duration_seconds",
			Help:      "End-to-end duration of one pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		segmentsAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voicecoach",
			Name:      "segments_analyzed_total",
			Help:      "Segments successfully analyzed by the audio model.",
		}),
		segmentsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voicecoach",
			Name:      "segments_dropped_total",
			Help:      "Segments dropped after retry exhaustion or bad output.",
		}),
		modelLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voicecoach",
			Name:      "model_call_duration_seconds",
			Help:      "Latency of external model calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicecoach",
			Name:      "job_queue_depth",
			Help:      "Jobs waiting in the analysis queue.",
		}),
		quotaDenied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voicecoach",
			Name:      "quota_denied_total",
			Help:      "Runs stopped by the monthly quota.",
		}),
	}
}

// Emit writes one structured event to the log stream and bumps the matching
// counters. Best effort only.
func (s *Sink) Emit(name string, duration time.Duration, status string, metadata map[string]any) {
	fields := logrus.Fields{
		"event":       name,
		"duration_ms": duration.Milliseconds(),
		"status":      status,
	}
	for k, v := range metadata {
		fields[k] = v
	}
	s.log.WithFields(fields).Info("pipeline event")

	if name == "voice_analysis_run" {
		s.runsTotal.WithLabelValues(status).Inc()
		s.runDuration.Observe(duration.Seconds())
		if status == "quota_exceeded" {
			s.quotaDenied.Inc()
		}
	}
}

func (s *Sink) SegmentAnalyzed() { s.segmentsAnalyzed.Inc() }

func (s *Sink) SegmentDropped() { s.segmentsDropped.Inc() }

func (s *Sink) QueueDepth(n int) { s.queueDepth.Set(float64(n)) }

func (s *Sink) ModelCall(d time.Duration) { s.modelLatency.Observe(d.Seconds()) }
