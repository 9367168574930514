// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one pipeline run. Each run owns its
// registry so nothing survives between invocations in the same process.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts E-utilities requests by endpoint
	// (esearch, idconv, efetch, elink).
	Requests *prometheus.CounterVec

	// RequestFailures counts failed requests by endpoint.
	RequestFailures *prometheus.CounterVec

	// RecordsFetched counts records assembled from remote data.
	RecordsFetched prometheus.Counter

	// RecordsResumed counts records restored from the checkpoint log.
	RecordsResumed prometheus.Counter

	// RecordsSkipped counts records dropped under the skip policy.
	RecordsSkipped prometheus.Counter

	// FramesRendered counts per-year frames drawn.
	FramesRendered prometheus.Counter
}

// NewMetrics creates and registers a fresh set of run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "eutils_requests_total",
			Help:      "E-utilities requests issued, by endpoint.",
		}, []string{"endpoint"}),
		RequestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "eutils_request_failures_total",
			Help:      "E-utilities requests that failed, by endpoint.",
		}, []string{"endpoint"}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "records_fetched_total",
			Help:      "Records assembled from remote data.",
		}),
		RecordsResumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "records_resumed_total",
			Help:      "Records restored from the checkpoint log.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "records_skipped_total",
			Help:      "Records dropped after a fetch failure under the skip policy.",
		}),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "methnet",
			Name:      "frames_rendered_total",
			Help:      "Per-year frames rendered.",
		}),
	}
	m.registry.MustRegister(
		m.Requests,
		m.RequestFailures,
		m.RecordsFetched,
		m.RecordsResumed,
		m.RecordsSkipped,
		m.FramesRendered,
	)
	return m
}

// Request records one request to endpoint. Safe on a nil receiver.
func (m *Metrics) Request(endpoint string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(endpoint).Inc()
}

// Failure records one failed request to endpoint. Safe on a nil receiver.
func (m *Metrics) Failure(endpoint string) {
	if m == nil {
		return
	}
	m.RequestFailures.WithLabelValues(endpoint).Inc()
}

// RecordFetched, RecordResumed, RecordSkipped and FrameRendered bump the
// matching counter. All are safe on a nil receiver.
func (m *Metrics) RecordFetched() {
	if m != nil {
		m.RecordsFetched.Inc()
	}
}

func (m *Metrics) RecordResumed() {
	if m != nil {
		m.RecordsResumed.Inc()
	}
}

func (m *Metrics) RecordSkipped() {
	if m != nil {
		m.RecordsSkipped.Inc()
	}
}

func (m *Metrics) FrameRendered() {
	if m != nil {
		m.FramesRendered.Inc()
	}
}

// WriteTextfile writes the run metrics in the text exposition format, for
// pickup by a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
