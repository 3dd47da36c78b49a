package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/attestor"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/metrics"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler exposes the attestation coordinator over HTTP. It implements
// api.AttestationService and adapts each operation to a route, translating
// coordinator errors into the status codes the API documents:
//
//   - 400 for structurally invalid requests
//   - 404 for unknown requests, attestors, and missing key shares
//   - 409 for scheme mismatches and duplicate submissions
//   - 410 for requests past their expiry window
type Handler struct {
	coordinator *attestor.Coordinator
	archive     interfaces.StorageBackend
	log         *slog.Logger
}

// NewHandler creates an HTTP request handler over the given coordinator.
func NewHandler(coordinator *attestor.Coordinator, log *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		log:         log,
	}
}

// WithArchive attaches a storage backend that receives a content-addressed
// copy of every completed attestation result. Archival is best-effort and
// never blocks or fails the completing decision.
func (h *Handler) WithArchive(backend interfaces.StorageBackend) *Handler {
	h.archive = backend
	return h
}

// SubmitRequest registers a credential for multi-party attestation.
func (h *Handler) SubmitRequest(req *api.SubmitRequestRequest) (*api.SubmitRequestResponse, error) {
	if req == nil {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Err: attestor.ErrInvalidRequest}
	}

	requestID, err := h.coordinator.SubmitRequest(attestor.AttestationRequest{
		Credential:        req.Credential,
		RequiredAttestors: req.RequiredAttestors,
		Threshold:         req.Threshold,
		ExpiresAt:         req.ExpiresAt,
	})
	if err != nil {
		return nil, coordinatorError(err)
	}

	metrics.RequestsSubmitted.Inc()

	return &api.SubmitRequestResponse{
		RequestID: requestID,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

// SubmitDecision records one attestor's verdict. An approval that completes
// the quorum triggers signature combination, and the combined result rides
// back on the response.
func (h *Handler) SubmitDecision(requestID interfaces.RequestID, req *api.AttestationDecisionRequest) (*api.AttestationDecisionResponse, error) {
	if req == nil || req.AttestorID == "" {
		return nil, &RequestError{
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("%w: attestor_id is required", attestor.ErrInvalidRequest),
		}
	}

	err := h.coordinator.ProcessAttestation(requestID, req.AttestorID, req.Approved, req.VerifiedClaims, req.Metadata)
	if err != nil {
		return nil, coordinatorError(err)
	}

	resp := &api.AttestationDecisionResponse{
		RequestID: requestID,
		Status:    string(attestor.AttestationRejected),
	}

	if !req.Approved {
		metrics.AttestationsProcessed.WithLabelValues("rejected").Inc()
		return resp, nil
	}

	resp.Status = string(attestor.AttestationApproved)
	metrics.AttestationsProcessed.WithLabelValues("approved").Inc()

	combineStart := time.Now()
	result, err := h.coordinator.TryCompleteAttestation(requestID)
	if err != nil {
		return nil, coordinatorError(err)
	}
	if result != nil {
		metrics.CombineDuration.Observe(time.Since(combineStart).Seconds())
		metrics.RequestsCompleted.Inc()
		resp.Completed = true
		resp.Result = result

		if h.archive != nil {
			go h.archiveResult(requestID, result)
		}
	}

	return resp, nil
}

// archiveResult stores the completed result document in the configured
// backend. Failures are logged, never surfaced: by the time a quorum
// exists, the signature has already been handed to the caller.
func (h *Handler) archiveResult(requestID interfaces.RequestID, result *attestor.AttestationResult) {
	encoded, err := json.Marshal(result)
	if err != nil {
		h.log.Error("Failed to encode attestation result for archival",
			"err", err, slog.String("requestID", string(requestID)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	contentID, err := h.archive.Store(ctx, encoded, interfaces.ResultContent)
	if err != nil {
		h.log.Error("Failed to archive attestation result",
			"err", err, slog.String("requestID", string(requestID)))
		return
	}

	h.log.Info("Attestation result archived",
		slog.String("requestID", string(requestID)),
		slog.String("contentID", contentID.String()),
		slog.String("backend", h.archive.Name()))
}

// RequestStatus reports the progress of a pending or finished request.
func (h *Handler) RequestStatus(requestID interfaces.RequestID) (*api.RequestStatusResponse, error) {
	snapshot, err := h.coordinator.RequestStatus(requestID)
	if err != nil {
		return nil, coordinatorError(err)
	}

	return &api.RequestStatusResponse{
		RequestID:  snapshot.Request.ID,
		Status:     snapshot.Status,
		Threshold:  snapshot.Request.Threshold,
		Approvals:  snapshot.Approvals,
		Rejections: snapshot.Rejections,
		Attestors:  snapshot.Request.RequiredAttestors,
		ExpiresAt:  snapshot.Request.ExpiresAt,
	}, nil
}

// Result fetches the outcome of a completed or expired request.
func (h *Handler) Result(requestID interfaces.RequestID) (*attestor.AttestationResult, error) {
	result, err := h.coordinator.Result(requestID)
	if err != nil {
		return nil, coordinatorError(err)
	}
	return result, nil
}

// VerifyResult checks a threshold signature against a credential.
func (h *Handler) VerifyResult(req *api.VerifyResultRequest) (*api.VerifyResultResponse, error) {
	if req == nil {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Err: attestor.ErrInvalidRequest}
	}

	valid, err := h.coordinator.VerifyAttestationResult(&req.Result, req.Credential)
	if err != nil {
		return nil, coordinatorError(err)
	}

	if valid {
		metrics.VerificationResults.WithLabelValues("valid").Inc()
	} else {
		metrics.VerificationResults.WithLabelValues("invalid").Inc()
	}

	return &api.VerifyResultResponse{Valid: valid}, nil
}

// SchemeInfo returns the signing scheme parameters and threshold public key.
func (h *Handler) SchemeInfo() (*api.SchemeInfoResponse, error) {
	return &api.SchemeInfoResponse{
		Params:    h.coordinator.SchemeParams(),
		PublicKey: h.coordinator.PublicKey(),
	}, nil
}

// HandleSubmitRequest processes new attestation requests.
//
// URL format: POST /api/attestation/requests
func (h *Handler) HandleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.SubmitRequest(&req)
	if err != nil {
		h.writeServiceError(w, err, "Submitting attestation request failed")
		return
	}

	h.log.Info("Attestation request accepted",
		slog.String("requestID", string(resp.RequestID)),
		slog.String("credentialID", req.Credential.ID))

	writeJSON(w, http.StatusOK, resp)
}

// HandleSubmitDecision records an attestor's approval or rejection.
//
// URL format: POST /api/attestation/requests/{request_id}/attestations
func (h *Handler) HandleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req api.AttestationDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.SubmitDecision(requestID, &req)
	if err != nil {
		h.writeServiceError(w, err, "Recording attestation decision failed")
		return
	}

	if resp.Completed {
		h.log.Info("Attestation request completed by decision",
			slog.String("requestID", string(requestID)),
			slog.String("attestorID", string(req.AttestorID)))
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRequestStatus reports a request's progress.
//
// URL format: GET /api/attestation/requests/{request_id}/status
func (h *Handler) HandleRequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.RequestStatus(requestID)
	if err != nil {
		h.writeServiceError(w, err, "Status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleResult returns the outcome of a finished request.
//
// URL format: GET /api/attestation/requests/{request_id}/result
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Result(requestID)
	if err != nil {
		h.writeServiceError(w, err, "Result lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleVerifyResult checks a threshold signature against a credential.
//
// URL format: POST /api/attestation/verify
func (h *Handler) HandleVerifyResult(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyResultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.VerifyResult(&req)
	if err != nil {
		h.writeServiceError(w, err, "Signature verification failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleSchemeInfo publishes the scheme parameters and public key.
//
// URL format: GET /api/public/scheme
func (h *Handler) HandleSchemeInfo(w http.ResponseWriter, r *http.Request) {
	resp, err := h.SchemeInfo()
	if err != nil {
		h.writeServiceError(w, err, "Scheme info lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError logs the failure and renders it with the status code
// carried by the RequestError, defaulting to 500 for untyped errors.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.StatusCode
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "err", err)
	} else {
		h.log.Debug(msg, "err", err, "status", status)
	}

	writeError(w, status, err)
}

// coordinatorError maps coordinator and scheme errors onto the HTTP status
// codes documented in the api package.
func coordinatorError(err error) *RequestError {
	switch {
	case errors.Is(err, attestor.ErrInvalidRequest):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	case errors.Is(err, attestor.ErrRequestNotFound),
		errors.Is(err, attestor.ErrNoKeyShare),
		errors.Is(err, interfaces.ErrAttestorNotFound):
		return &RequestError{StatusCode: http.StatusNotFound, Err: err}
	case errors.Is(err, attestor.ErrRequestExists),
		errors.Is(err, attestor.ErrShareAlreadyBound),
		errors.Is(err, threshold.ErrSchemeMismatch):
		return &RequestError{StatusCode: http.StatusConflict, Err: err}
	case errors.Is(err, attestor.ErrRequestExpired):
		return &RequestError{StatusCode: http.StatusGone, Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
}

func requestIDFromPath(r *http.Request) (interfaces.RequestID, error) {
	requestID := r.PathValue("request_id")
	if requestID == "" {
		return "", errors.New("missing request ID in URL")
	}
	return interfaces.RequestID(requestID), nil
}

func decodeJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error()})
}
