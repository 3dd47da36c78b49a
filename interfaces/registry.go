package interfaces

import (
	"errors"
	"time"
)

// CredentialStatus tracks a credential's lifecycle on the registry.
type CredentialStatus string

const (
	// CredentialPending means the credential is registered but has not yet
	// collected enough attestations.
	CredentialPending CredentialStatus = "pending"
	// CredentialActive means the credential reached its required attestation
	// quorum and is currently valid.
	CredentialActive CredentialStatus = "active"
	// CredentialRevoked means the credential was explicitly revoked.
	// Revocation is terminal.
	CredentialRevoked CredentialStatus = "revoked"
	// CredentialExpired means the credential's validity window has passed.
	CredentialExpired CredentialStatus = "expired"
	// CredentialSuspended means the credential is temporarily invalid but
	// may be reinstated.
	CredentialSuspended CredentialStatus = "suspended"
)

// CredentialEntry is the registry's record of one credential.
type CredentialEntry struct {
	ID               CredentialID     `json:"id"`
	Issuer           DID              `json:"issuer"`
	Subject          DID              `json:"subject"`
	CredentialType   string           `json:"credential_type"`
	CredentialHash   string           `json:"credential_hash"`
	Status           CredentialStatus `json:"status"`
	AttestationCount int              `json:"attestation_count"`
	RequiredQuorum   int              `json:"required_quorum"`
	IssuedAt         time.Time        `json:"issued_at"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
}

// RevocationEntry records one revocation event on the registry.
type RevocationEntry struct {
	CredentialID CredentialID `json:"credential_id"`
	Reason       string       `json:"reason"`
	RevokedAt    time.Time    `json:"revoked_at"`
}

var (
	// ErrCredentialNotFound is returned when the registry has no entry for
	// the requested credential.
	ErrCredentialNotFound = errors.New("credential not found in registry")

	// ErrCredentialExists is returned when registering a credential ID that
	// is already present.
	ErrCredentialExists = errors.New("credential already registered")

	// ErrCredentialRevoked is returned when an operation is attempted on a
	// revoked credential.
	ErrCredentialRevoked = errors.New("credential is revoked")

	// ErrCredentialExpired is returned when an operation is attempted on a
	// credential whose validity window has passed.
	ErrCredentialExpired = errors.New("credential is expired")
)

// CredentialRegistry records credential lifecycle state. Implementations
// must be safe for concurrent use.
type CredentialRegistry interface {
	// Register adds a new pending credential entry.
	Register(entry CredentialEntry) error

	// AddAttestation records that a credential collected signatureCount
	// attestation signatures against the given threshold, flipping the
	// entry from pending to active once the quorum is reached.
	AddAttestation(id CredentialID, signatureCount, threshold int) error

	// Revoke marks the credential revoked. Revocation is terminal.
	Revoke(id CredentialID, reason string) error

	// Entry returns the registry record for a credential.
	Entry(id CredentialID) (CredentialEntry, error)

	// IsValid reports whether the credential is active and unexpired.
	IsValid(id CredentialID) (bool, error)
}
