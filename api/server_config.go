package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig carries every knob the attestation HTTP server needs.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the attestation API listens on.
	ListenAddr string

	// MetricsAddr is the address and port for the Prometheus metrics server.
	// If empty, no metrics server is started.
	MetricsAddr string

	// EnablePprof mounts the pprof debugging API under /debug when true.
	EnablePprof bool

	// Log is the structured logger for server operations.
	Log *slog.Logger

	// DrainDuration is the time to wait after marking the server not ready
	// before shutting down, allowing load balancers to notice the change.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests
	// during shutdown.
	GracefulShutdownDuration time.Duration

	// ReadTimeout is the maximum duration for reading an entire request,
	// including the body.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out response
	// writes.
	WriteTimeout time.Duration
}
