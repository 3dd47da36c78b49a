// Package directory maintains the registry of attestors trusted to verify
// credential claims, keyed by attestor ID and backed by DIDs.
package directory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// initialReputation is assigned to newly registered attestors.
const initialReputation = 50.0

var (
	// ErrInvalidAttestor is returned when an attestor record is structurally
	// unusable.
	ErrInvalidAttestor = errors.New("invalid attestor record")

	// ErrAttestorExists is returned when registering an ID that is already
	// taken.
	ErrAttestorExists = errors.New("attestor already registered")
)

// CapabilityForCredentialType maps a credential type to the capability an
// attestor needs in order to verify it. Unknown types map to a custom
// capability carrying the type name itself.
func CapabilityForCredentialType(credentialType string) interfaces.Capability {
	switch credentialType {
	case "KycCredential":
		return interfaces.CapabilityKYC
	case "AgeVerificationCredential":
		return interfaces.CapabilityAgeVerification
	case "EducationCredential", "DegreeCredential":
		return interfaces.CapabilityEducation
	case "EmploymentCredential":
		return interfaces.CapabilityEmployment
	case "IdentityCredential":
		return interfaces.CapabilityIdentity
	case "AddressCredential", "ProofOfAddressCredential":
		return interfaces.CapabilityAddress
	default:
		return interfaces.Capability(credentialType)
	}
}

// Directory is an in-memory attestor registry. All methods are safe for
// concurrent use.
type Directory struct {
	log     *slog.Logger
	linkage *identity.LinkageResolver

	mu        sync.RWMutex
	attestors map[interfaces.AttestorID]interfaces.Attestor
}

// New creates an empty directory.
func New(log *slog.Logger) *Directory {
	return &Directory{
		log:       log,
		attestors: make(map[interfaces.AttestorID]interfaces.Attestor),
	}
}

// WithWebLinkageCheck makes Register verify did:web identifiers against
// their domain's DNS linkage record before accepting them.
func (d *Directory) WithWebLinkageCheck(resolver *identity.LinkageResolver) *Directory {
	d.linkage = resolver
	return d
}

// Register adds an attestor record. New attestors start at the initial
// reputation score unless the record carries one already.
func (d *Directory) Register(att interfaces.Attestor) error {
	if att.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAttestor)
	}
	if err := att.DID.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttestor, err)
	}
	if len(att.Capabilities) == 0 {
		return fmt.Errorf("%w: at least one capability is required", ErrInvalidAttestor)
	}

	if d.linkage != nil && att.DID.Method() == "web" {
		if err := d.linkage.VerifyWebDID(att.DID); err != nil {
			return fmt.Errorf("%w: domain linkage check failed: %v", ErrInvalidAttestor, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.attestors[att.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAttestorExists, att.ID)
	}

	now := time.Now().UTC()
	att.CreatedAt = now
	att.UpdatedAt = now
	if att.ReputationScore == 0 {
		att.ReputationScore = initialReputation
	}
	d.attestors[att.ID] = copyAttestor(att)

	d.log.Info("Attestor registered",
		slog.String("attestor_id", string(att.ID)),
		slog.String("did", string(att.DID)),
		slog.Int("capabilities", len(att.Capabilities)))
	return nil
}

// Attestor returns the record for the given ID.
func (d *Directory) Attestor(id interfaces.AttestorID) (interfaces.Attestor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	att, ok := d.attestors[id]
	if !ok {
		return interfaces.Attestor{}, fmt.Errorf("%w: %s", interfaces.ErrAttestorNotFound, id)
	}
	return copyAttestor(att), nil
}

// CanAttest reports whether the attestor holds the capability matching the
// credential type.
func (d *Directory) CanAttest(id interfaces.AttestorID, credentialType string) (bool, error) {
	att, err := d.Attestor(id)
	if err != nil {
		return false, err
	}

	needed := CapabilityForCredentialType(credentialType)
	for _, cap := range att.Capabilities {
		if cap == needed {
			return true, nil
		}
	}
	return false, nil
}

// List returns all registered attestors ordered by ID.
func (d *Directory) List() []interfaces.Attestor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]interfaces.Attestor, 0, len(d.attestors))
	for _, att := range d.attestors {
		out = append(out, copyAttestor(att))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByCapability returns all attestors holding the given capability,
// ordered by descending reputation.
func (d *Directory) FindByCapability(cap interfaces.Capability) []interfaces.Attestor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]interfaces.Attestor, 0)
	for _, att := range d.attestors {
		for _, c := range att.Capabilities {
			if c == cap {
				out = append(out, copyAttestor(att))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReputationScore > out[j].ReputationScore })
	return out
}

// UpdateReputation shifts an attestor's score by delta, clamped to 0..100,
// and returns the new score.
func (d *Directory) UpdateReputation(id interfaces.AttestorID, delta float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	att, ok := d.attestors[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrAttestorNotFound, id)
	}

	score := att.ReputationScore + delta
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	att.ReputationScore = score
	att.UpdatedAt = time.Now().UTC()
	d.attestors[id] = att

	d.log.Debug("Attestor reputation updated",
		slog.String("attestor_id", string(id)),
		slog.Float64("score", score))
	return score, nil
}

func copyAttestor(att interfaces.Attestor) interfaces.Attestor {
	out := att
	out.Capabilities = append([]interfaces.Capability(nil), att.Capabilities...)
	if att.Metadata != nil {
		out.Metadata = make(map[string]string, len(att.Metadata))
		for k, v := range att.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
