package attestor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

// AttestationStatus is the terminal status of a single attestor's response.
// It is fixed when the attestation is recorded and never mutated.
type AttestationStatus string

const (
	AttestationPending  AttestationStatus = "pending"
	AttestationApproved AttestationStatus = "approved"
	AttestationRejected AttestationStatus = "rejected"
	AttestationExpired  AttestationStatus = "expired"
)

// ResultStatus is the lifecycle status of an attestation request's outcome.
type ResultStatus string

const (
	ResultInProgress ResultStatus = "in_progress"
	ResultCompleted  ResultStatus = "completed"
	ResultFailed     ResultStatus = "failed"
	ResultExpired    ResultStatus = "expired"
)

// AttestationRequest asks a set of attestors to jointly sign a credential.
// The request is immutable after submission; it only leaves the pending set
// by completing or expiring.
type AttestationRequest struct {
	ID                interfaces.RequestID    `json:"id"`
	Credential        identity.Credential     `json:"credential"`
	RequiredAttestors []interfaces.AttestorID `json:"required_attestors"`
	Threshold         int                     `json:"threshold"`
	CreatedAt         time.Time               `json:"created_at"`
	ExpiresAt         time.Time               `json:"expires_at"`
}

// Validate checks the request's structural invariants: a validating
// credential, a usable threshold, and a non-empty attestor set free of
// duplicates.
func (r *AttestationRequest) Validate() error {
	if err := r.Credential.Validate(); err != nil {
		return fmt.Errorf("%w: credential: %v", ErrInvalidRequest, err)
	}

	if len(r.RequiredAttestors) == 0 {
		return fmt.Errorf("%w: no required attestors", ErrInvalidRequest)
	}

	if r.Threshold < 1 || r.Threshold > len(r.RequiredAttestors) {
		return fmt.Errorf("%w: threshold %d outside [1, %d]",
			ErrInvalidRequest, r.Threshold, len(r.RequiredAttestors))
	}

	seen := make(map[interfaces.AttestorID]struct{}, len(r.RequiredAttestors))
	for _, id := range r.RequiredAttestors {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate attestor %s", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}

	if r.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: missing expires_at", ErrInvalidRequest)
	}

	return nil
}

// Requires reports whether the given attestor is named in the request's
// required set.
func (r *AttestationRequest) Requires(id interfaces.AttestorID) bool {
	for _, a := range r.RequiredAttestors {
		if a == id {
			return true
		}
	}
	return false
}

// Attestation records one attestor's terminal decision on one request.
// PartialSignature is present exactly when the decision was an approval.
type Attestation struct {
	ID               uuid.UUID                   `json:"id"`
	RequestID        interfaces.RequestID        `json:"request_id"`
	AttestorID       interfaces.AttestorID       `json:"attestor_id"`
	Status           AttestationStatus           `json:"status"`
	PartialSignature *threshold.PartialSignature `json:"partial_signature,omitempty"`
	VerifiedClaims   map[string]any              `json:"verified_claims,omitempty"`
	Metadata         map[string]string           `json:"metadata,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// AttestationResult is the outcome of an attestation request, created exactly
// once when the request completes or expires.
type AttestationResult struct {
	RequestID              interfaces.RequestID          `json:"request_id"`
	ThresholdSignature     *threshold.ThresholdSignature `json:"threshold_signature,omitempty"`
	ParticipatingAttestors []interfaces.AttestorID       `json:"participating_attestors"`
	Status                 ResultStatus                  `json:"status"`
	CreatedAt              time.Time                     `json:"created_at"`
	Metadata               map[string]string             `json:"metadata,omitempty"`
}

// RequestSnapshot is a point-in-time view of a request's progress, served to
// status queries without exposing the coordinator's internal state.
type RequestSnapshot struct {
	Request      AttestationRequest `json:"request"`
	Status       ResultStatus       `json:"status"`
	Approvals    int                `json:"approvals"`
	Rejections   int                `json:"rejections"`
	Attestations []Attestation      `json:"attestations"`
}

// NewRequestID mints a fresh request identifier.
func NewRequestID() interfaces.RequestID {
	return interfaces.RequestID(uuid.NewString())
}
