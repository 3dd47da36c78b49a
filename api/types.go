package api

import (
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/attestor"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

// AttestationService is the operation surface exposed by the coordinator's
// HTTP API. The server implements it on top of the coordinator; clients
// implement it over HTTP.
type AttestationService interface {
	// SubmitRequest registers a credential for multi-party attestation and
	// returns the assigned request ID.
	SubmitRequest(req *SubmitRequestRequest) (*SubmitRequestResponse, error)

	// SubmitDecision records one attestor's approval or rejection. When the
	// decision completes the quorum the response carries the combined result.
	SubmitDecision(requestID interfaces.RequestID, req *AttestationDecisionRequest) (*AttestationDecisionResponse, error)

	// RequestStatus reports the progress of a pending or finished request.
	RequestStatus(requestID interfaces.RequestID) (*RequestStatusResponse, error)

	// Result fetches the outcome of a completed or expired request.
	Result(requestID interfaces.RequestID) (*attestor.AttestationResult, error)

	// VerifyResult checks a threshold signature against a credential.
	VerifyResult(req *VerifyResultRequest) (*VerifyResultResponse, error)

	// SchemeInfo returns the signing scheme parameters and public key.
	SchemeInfo() (*SchemeInfoResponse, error)
}

// SubmitRequestRequest asks the coordinator to collect attestations over a
// credential from the named attestors.
type SubmitRequestRequest struct {
	// Credential is the verifiable credential to be attested.
	Credential identity.Credential `json:"credential"`

	// RequiredAttestors names the attestors allowed to respond.
	RequiredAttestors []interfaces.AttestorID `json:"required_attestors"`

	// Threshold is the number of approvals needed to complete.
	Threshold int `json:"threshold"`

	// ExpiresAt is the instant after which the request can no longer be
	// acted on.
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitRequestResponse acknowledges an accepted attestation request.
type SubmitRequestResponse struct {
	RequestID interfaces.RequestID `json:"request_id"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// AttestationDecisionRequest carries one attestor's verdict on a request.
type AttestationDecisionRequest struct {
	// AttestorID identifies the responding attestor.
	AttestorID interfaces.AttestorID `json:"attestor_id"`

	// Approved selects between producing a partial signature and recording
	// a rejection.
	Approved bool `json:"approved"`

	// VerifiedClaims holds the claims the attestor actually checked.
	VerifiedClaims map[string]any `json:"verified_claims,omitempty"`

	// Metadata carries free-form annotations, e.g. a rejection reason.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AttestationDecisionResponse reports whether the decision was recorded and,
// when it tipped the request over its threshold, the combined result.
type AttestationDecisionResponse struct {
	RequestID interfaces.RequestID `json:"request_id"`
	Status    string               `json:"status"`

	// Completed is true when this decision triggered quorum completion.
	Completed bool `json:"completed"`

	// Result is present exactly when Completed is true.
	Result *attestor.AttestationResult `json:"result,omitempty"`
}

// RequestStatusResponse summarizes a request's progress.
type RequestStatusResponse struct {
	RequestID  interfaces.RequestID    `json:"request_id"`
	Status     attestor.ResultStatus   `json:"status"`
	Threshold  int                     `json:"threshold"`
	Approvals  int                     `json:"approvals"`
	Rejections int                     `json:"rejections"`
	Attestors  []interfaces.AttestorID `json:"required_attestors"`
	ExpiresAt  time.Time               `json:"expires_at"`
}

// VerifyResultRequest asks the coordinator to check a threshold signature
// against the given credential.
type VerifyResultRequest struct {
	Credential identity.Credential        `json:"credential"`
	Result     attestor.AttestationResult `json:"result"`
}

// VerifyResultResponse reports the outcome of a signature check.
type VerifyResultResponse struct {
	Valid bool `json:"valid"`
}

// SchemeInfoResponse publishes the signing scheme so external verifiers can
// check results without talking to the coordinator again.
type SchemeInfoResponse struct {
	Params    threshold.SchemeParameters   `json:"params"`
	PublicKey threshold.ThresholdPublicKey `json:"public_key"`
}

// ErrorResponse is the JSON body returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
