// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "image_analysis"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes           *prometheus.CounterVec
	visionDuration     prometheus.Histogram
	storeWrites        *prometheus.CounterVec
	unexpectedBatchLen prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Pipeline invocations by outcome.",
		}, []string{"outcome"}),
		visionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Latency of the annotate call.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Picture record merge writes by result.",
		}, []string{"result"}),
		unexpectedBatchLen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unexpected_batch_results_total",
			Help:      "Batches that returned more than one result for a single image.",
		}),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.visionDuration, m.storeWrites, m.unexpectedBatchLen} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOutcome counts a finished invocation
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveVision records the annotate call latency
func (m *Metrics) ObserveVision(d time.Duration) {
	if m == nil {
		return
	}
	m.visionDuration.Observe(d.Seconds())
}

// ObserveStoreWrite counts a merge write
func (m *Metrics) ObserveStoreWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(result).Inc()
}

// ObserveUnexpectedBatch counts a batch with extra results
func (m *Metrics) ObserveUnexpectedBatch() {
	if m == nil {
		return
	}
	m.unexpectedBatchLen.Inc()
}
