package interfaces

import (
	"errors"
	"time"
)

// Capability names a class of claims an attestor is trusted to verify.
// The predefined constants cover common credential families; any other
// string is treated as a custom capability.
type Capability string

const (
	CapabilityKYC             Capability = "kyc"
	CapabilityAgeVerification Capability = "age_verification"
	CapabilityEducation       Capability = "education"
	CapabilityEmployment      Capability = "employment"
	CapabilityIdentity        Capability = "identity"
	CapabilityAddress         Capability = "address"
)

// Attestor is the directory's record of one verifying party.
type Attestor struct {
	ID           AttestorID   `json:"id"`
	DID          DID          `json:"did"`
	Name         string       `json:"name"`
	Organization string       `json:"organization"`
	Capabilities []Capability `json:"capabilities"`

	// ReputationScore ranges 0..100 and starts at 50 for new attestors.
	ReputationScore float64 `json:"reputation_score"`

	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ErrAttestorNotFound is returned when the directory has no record for the
// requested attestor.
var ErrAttestorNotFound = errors.New("attestor not found")

// AttestorDirectory resolves attestor identities for the coordinator.
// Implementations must be safe for concurrent use.
type AttestorDirectory interface {
	// Attestor returns the record for the given ID, or ErrAttestorNotFound.
	Attestor(id AttestorID) (Attestor, error)

	// CanAttest reports whether the attestor is trusted to verify the given
	// credential type.
	CanAttest(id AttestorID, credentialType string) (bool, error)
}
