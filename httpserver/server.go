package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/common"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/metrics"
)

// Server hosts the attestation API together with the optional recovery admin
// API, health and drain endpoints, and a Prometheus metrics listener.
type Server struct {
	cfg     *api.HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer

	mu      sync.RWMutex
	handler *Handler
	admin   *AdminHandler
}

// New creates a server from cfg. The attestation handler may be nil when the
// server starts in recovery mode; attach it with SetAttestationHandler once
// the key vault is unlocked. The admin handler may be nil when recovery
// bootstrap is not enabled, in which case no admin endpoints are mounted.
func New(cfg *api.HTTPServerConfig, handler *Handler, admin *AdminHandler) (srv *Server, err error) {
	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		srv:        nil,
		metricsSrv: metricsSrv,
		handler:    handler,
		admin:      admin,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

// SetAttestationHandler attaches the attestation handler to a running
// server. Until then, a server constructed without one answers attestation
// requests with 503.
func (srv *Server) SetAttestationHandler(handler *Handler) {
	srv.mu.Lock()
	srv.handler = handler
	srv.mu.Unlock()

	srv.log.Info("Attestation API enabled")
}

// WaitForUnlock blocks until enough recovery shares have been submitted to
// the admin API to reconstruct the vault bundle, then returns it. It fails
// immediately when the server was built without an admin handler.
func (srv *Server) WaitForUnlock(ctx context.Context) ([]byte, error) {
	if srv.admin == nil {
		return nil, errors.New("recovery admin API not enabled")
	}
	return srv.admin.WaitForUnlock(ctx)
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Post("/api/attestation/requests", srv.handleSubmitRequest)
	mux.With(srv.httpLogger).Post("/api/attestation/requests/{request_id}/attestations", srv.handleSubmitDecision)
	mux.With(srv.httpLogger).Get("/api/attestation/requests/{request_id}/status", srv.handleRequestStatus)
	mux.With(srv.httpLogger).Get("/api/attestation/requests/{request_id}/result", srv.handleResult)
	mux.With(srv.httpLogger).Post("/api/attestation/verify", srv.handleVerifyResult)
	mux.With(srv.httpLogger).Get("/api/public/scheme", srv.handleSchemeInfo)

	if srv.admin != nil {
		srv.log.Info("Recovery admin API enabled")
		mux.Mount("/api/admin", srv.admin.AdminRouter())
	}

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// attestationHandler returns the currently attached handler, or nil while
// the server is still waiting for the vault to unlock.
func (srv *Server) attestationHandler(w http.ResponseWriter) *Handler {
	srv.mu.RLock()
	handler := srv.handler
	srv.mu.RUnlock()

	if handler == nil {
		writeError(w, http.StatusServiceUnavailable,
			errors.New("attestation API unavailable until the key vault is unlocked"))
		return nil
	}
	return handler
}

func (srv *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleSubmitRequest(w, r)
	}
}

func (srv *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleSubmitDecision(w, r)
	}
}

func (srv *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleRequestStatus(w, r)
	}
}

func (srv *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleResult(w, r)
	}
}

func (srv *Server) handleVerifyResult(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleVerifyResult(w, r)
	}
}

func (srv *Server) handleSchemeInfo(w http.ResponseWriter, r *http.Request) {
	if handler := srv.attestationHandler(w); handler != nil {
		handler.HandleSchemeInfo(w, r)
	}
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	// Wait the drain duration off the request goroutine so load balancers
	// can observe the readiness flip before shutdown proceeds.
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the API listener and, when configured, the metrics
// listener. It returns immediately; use Shutdown to stop both.
func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops the API and metrics listeners, bounding each
// wait by the configured graceful shutdown duration.
func (srv *Server) Shutdown() {
	// api
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
