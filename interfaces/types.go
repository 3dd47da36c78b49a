// Package interfaces defines the core types and contracts shared by the
// attestation services. It provides the boundary between components without
// pulling in implementation details.
package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// AttestorID uniquely identifies a registered attestor within the directory.
// It is an opaque, caller-chosen string such as "gov-identity-office" and is
// stable across the attestor's lifetime.
type AttestorID string

// String returns the identifier as a string.
func (id AttestorID) String() string {
	return string(id)
}

// RequestID identifies one attestation request for its whole lifetime.
// The coordinator assigns UUID strings when a request is submitted.
type RequestID string

// String returns the identifier as a string.
func (id RequestID) String() string {
	return string(id)
}

// CredentialID identifies a verifiable credential. W3C credential documents
// carry these in "urn:uuid:..." form.
type CredentialID string

// String returns the identifier as a string.
func (id CredentialID) String() string {
	return string(id)
}

// DID is a W3C decentralized identifier such as "did:web:attestor.example.org"
// or "did:ethr:0xAbC...". The zero value is invalid.
type DID string

// ErrInvalidDID is returned when a string does not have the
// did:<method>:<id> shape.
var ErrInvalidDID = errors.New("invalid DID")

// NewDID validates a raw string and converts it into a DID.
func NewDID(raw string) (DID, error) {
	d := DID(raw)
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// Validate checks the identifier against the did:<method>:<id> grammar.
// It validates shape only; resolution is handled by the identity package.
func (d DID) Validate() error {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return fmt.Errorf("%w: %q must have the form did:<method>:<id>", ErrInvalidDID, string(d))
	}
	if parts[1] == "" {
		return fmt.Errorf("%w: %q has an empty method", ErrInvalidDID, string(d))
	}
	if parts[2] == "" {
		return fmt.Errorf("%w: %q has an empty method-specific id", ErrInvalidDID, string(d))
	}
	return nil
}

// Method returns the DID method name ("web", "ethr", "key"), or an empty
// string if the DID is malformed.
func (d DID) Method() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return ""
	}
	return parts[1]
}

// MethodSpecificID returns the identifier part after the method, or an
// empty string if the DID is malformed.
func (d DID) MethodSpecificID() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return ""
	}
	return parts[2]
}

// String returns the DID as a string.
func (d DID) String() string {
	return string(d)
}
