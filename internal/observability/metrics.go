package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// weather station service.
type Metrics struct {
	ReportsParsed  *prometheus.CounterVec // labels: outcome={ok,rejected}
	FetchRequests  *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration  prometheus.Histogram
	SnapshotAge    prometheus.Gauge
	WSClients      prometheus.Gauge
	EvidenceSigned prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxstation",
			Name:      "reports_parsed_total",
			Help:      "Raw reports run through the decoder, by outcome.",
		}, []string{"outcome"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxstation",
			Name:      "fetch_requests_total",
			Help:      "Upstream report fetches, by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wxstation",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one fetch-decode-cache cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxstation",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the current snapshot's issuance time.",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxstation",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
		EvidenceSigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxstation",
			Name:      "evidence_signed_total",
			Help:      "Performance calculation evidence records signed.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsParsed,
		m.FetchRequests,
		m.FetchDuration,
		m.SnapshotAge,
		m.WSClients,
		m.EvidenceSigned,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsParsed:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wxstation", Name: "reports_parsed_total"}, []string{"outcome"}),
		FetchRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wxstation", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wxstation", Name: "fetch_duration_seconds"}),
		SnapshotAge:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wxstation", Name: "snapshot_age_seconds"}),
		WSClients:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wxstation", Name: "ws_clients"}),
		EvidenceSigned: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wxstation", Name: "evidence_signed_total"}),
	}
}
