// Package identity implements the W3C verifiable credential data model used
// by the attestation services, along with DID generation and resolution for
// the did:key, did:ethr, and did:web methods.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/google/uuid"
)

// DefaultContext is the W3C credentials context every credential carries.
const DefaultContext = "https://www.w3.org/2018/credentials/v1"

// BaseCredentialType marks a document as a verifiable credential.
const BaseCredentialType = "VerifiableCredential"

// ProofTypeThresholdBLS identifies proofs produced by the threshold
// signature engine.
const ProofTypeThresholdBLS = "BlsThresholdSignature2023"

// ErrInvalidCredential is returned when a credential document fails
// structural validation.
var ErrInvalidCredential = errors.New("invalid credential")

// CredentialSubject carries the subject DID and its claims. On the wire the
// claims sit directly inside the credentialSubject object next to "id",
// following the W3C layout.
type CredentialSubject struct {
	ID     interfaces.DID
	Claims map[string]any
}

// MarshalJSON flattens the claims alongside the subject id.
func (cs CredentialSubject) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(cs.Claims)+1)
	for k, v := range cs.Claims {
		flat[k] = v
	}
	if cs.ID != "" {
		flat["id"] = string(cs.ID)
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the subject id back out of the flattened claims.
func (cs *CredentialSubject) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if id, ok := flat["id"].(string); ok {
		cs.ID = interfaces.DID(id)
		delete(flat, "id")
	} else {
		cs.ID = ""
	}
	cs.Claims = flat
	return nil
}

// Proof is the cryptographic proof attached to a fully attested credential.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	ProofValue         string    `json:"proofValue"`
}

// Credential is a W3C verifiable credential document.
type Credential struct {
	Context        []string          `json:"@context"`
	ID             string            `json:"id"`
	Types          []string          `json:"type"`
	Issuer         interfaces.DID    `json:"issuer"`
	IssuanceDate   time.Time         `json:"issuanceDate"`
	ExpirationDate *time.Time        `json:"expirationDate,omitempty"`
	Subject        CredentialSubject `json:"credentialSubject"`
	Proof          *Proof            `json:"proof,omitempty"`
}

// NewCredential builds an unsigned credential with a urn:uuid identifier and
// the current UTC time as its issuance date.
func NewCredential(issuer, subject interfaces.DID, credentialType string, claims map[string]any) Credential {
	return Credential{
		Context:      []string{DefaultContext},
		ID:           "urn:uuid:" + uuid.NewString(),
		Types:        []string{BaseCredentialType, credentialType},
		Issuer:       issuer,
		IssuanceDate: time.Now().UTC(),
		Subject: CredentialSubject{
			ID:     subject,
			Claims: claims,
		},
	}
}

// CredentialID returns the document identifier as a registry key.
func (c *Credential) CredentialID() interfaces.CredentialID {
	return interfaces.CredentialID(c.ID)
}

// PrimaryType returns the first credential type beyond the base
// VerifiableCredential marker, or the base marker if none is present. The
// directory uses it for capability matching.
func (c *Credential) PrimaryType() string {
	for _, t := range c.Types {
		if t != BaseCredentialType {
			return t
		}
	}
	return BaseCredentialType
}

// Validate checks the document structure. It does not evaluate expiry; use
// IsExpired for that.
func (c *Credential) Validate() error {
	if len(c.Context) == 0 {
		return fmt.Errorf("%w: missing @context", ErrInvalidCredential)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCredential)
	}

	hasBase := false
	for _, t := range c.Types {
		if t == BaseCredentialType {
			hasBase = true
			break
		}
	}
	if !hasBase {
		return fmt.Errorf("%w: type must include %s", ErrInvalidCredential, BaseCredentialType)
	}

	if err := c.Issuer.Validate(); err != nil {
		return fmt.Errorf("%w: issuer: %v", ErrInvalidCredential, err)
	}
	if c.Subject.ID != "" {
		if err := c.Subject.ID.Validate(); err != nil {
			return fmt.Errorf("%w: subject: %v", ErrInvalidCredential, err)
		}
	}
	if len(c.Subject.Claims) == 0 {
		return fmt.Errorf("%w: credential subject carries no claims", ErrInvalidCredential)
	}

	if c.IssuanceDate.IsZero() {
		return fmt.Errorf("%w: missing issuanceDate", ErrInvalidCredential)
	}
	if c.ExpirationDate != nil && c.ExpirationDate.Before(c.IssuanceDate) {
		return fmt.Errorf("%w: expirationDate precedes issuanceDate", ErrInvalidCredential)
	}
	return nil
}

// IsExpired reports whether the credential's validity window has passed.
// Credentials without an expiration date never expire.
func (c *Credential) IsExpired() bool {
	return c.ExpirationDate != nil && time.Now().After(*c.ExpirationDate)
}

// CanonicalJSON returns the deterministic byte encoding attestors sign.
// The proof is excluded, since it is where the resulting signature lands;
// object keys are emitted in sorted order, so credentials with equal content
// canonicalize to equal bytes.
func (c *Credential) CanonicalJSON() ([]byte, error) {
	unsigned := *c
	unsigned.Proof = nil
	data, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return data, nil
}

// AttachProof stamps the credential with a completed threshold signature
// proof. The verification method names the scheme's public key record.
func (c *Credential) AttachProof(verificationMethod, proofValue string) {
	c.Proof = &Proof{
		Type:               ProofTypeThresholdBLS,
		Created:            time.Now().UTC(),
		VerificationMethod: verificationMethod,
		ProofPurpose:       "assertionMethod",
		ProofValue:         proofValue,
	}
}
