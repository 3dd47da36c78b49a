// Package metrics exposes Prometheus instrumentation for the attestation
// services and a small HTTP server that serves the /metrics endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsSubmitted counts attestation requests accepted by the coordinator.
	RequestsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attestord",
		Name:      "requests_submitted_total",
		Help:      "Number of attestation requests accepted by the coordinator.",
	})

	// AttestationsProcessed counts individual attestor decisions by outcome.
	AttestationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attestord",
		Name:      "attestations_processed_total",
		Help:      "Number of attestor decisions recorded, labeled by outcome.",
	}, []string{"outcome"})

	// RequestsCompleted counts requests that reached quorum and produced a
	// combined threshold signature.
	RequestsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attestord",
		Name:      "requests_completed_total",
		Help:      "Number of attestation requests completed with a threshold signature.",
	})

	// CombineDuration tracks how long partial signature aggregation takes.
	CombineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attestord",
		Name:      "signature_combine_duration_seconds",
		Help:      "Latency of combining partial signatures into a threshold signature.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	// VerificationResults counts pairing checks performed by the verify
	// endpoint, labeled by result.
	VerificationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attestord",
		Name:      "verification_results_total",
		Help:      "Number of threshold signature verifications, labeled by result.",
	}, []string{"result"})
)

// MetricsServer serves the Prometheus registry over HTTP.
type MetricsServer struct {
	name string
	srv  *http.Server
}

// New creates a metrics server bound to listenAddr. The name is used only
// for identification; all instruments live in the default registry.
func New(name, listenAddr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		name: name,
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint until Shutdown is
// called or the listener fails.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
