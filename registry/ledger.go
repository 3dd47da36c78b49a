// Package registry provides the credential status ledger that tracks
// attestation quorums, activations, and revocations.
package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// Ledger is an in-memory implementation of interfaces.CredentialRegistry.
// Entries move pending -> active once their attestation quorum is reached,
// and expiry is evaluated lazily whenever an entry is touched.
type Ledger struct {
	log *slog.Logger

	mu          sync.RWMutex
	entries     map[interfaces.CredentialID]*interfaces.CredentialEntry
	revocations []interfaces.RevocationEntry
}

// NewLedger creates an empty ledger.
func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{
		log:     log,
		entries: make(map[interfaces.CredentialID]*interfaces.CredentialEntry),
	}
}

// Register adds a new pending credential entry. The entry's status and
// attestation count are reset regardless of what the caller passed in.
func (l *Ledger) Register(entry interfaces.CredentialEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("credential id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[entry.ID]; exists {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialExists, entry.ID)
	}

	entry.Status = interfaces.CredentialPending
	entry.AttestationCount = 0
	if entry.RequiredQuorum < 1 {
		entry.RequiredQuorum = 1
	}
	if entry.IssuedAt.IsZero() {
		entry.IssuedAt = time.Now().UTC()
	}

	stored := entry
	l.entries[entry.ID] = &stored

	l.log.Info("Credential registered",
		slog.String("credential_id", string(entry.ID)),
		slog.String("credential_type", entry.CredentialType),
		slog.Int("required_quorum", entry.RequiredQuorum))
	return nil
}

// AddAttestation records that a credential collected signatureCount
// attestation signatures against the given threshold. The entry flips to
// active once the count reaches its quorum; the quorum is the value fixed
// at registration, or the caller's threshold if none was.
func (l *Ledger) AddAttestation(id interfaces.CredentialID, signatureCount, threshold int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialNotFound, id)
	}
	l.refreshExpiryLocked(entry)

	switch entry.Status {
	case interfaces.CredentialRevoked:
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialRevoked, id)
	case interfaces.CredentialExpired:
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialExpired, id)
	}

	if signatureCount > entry.AttestationCount {
		entry.AttestationCount = signatureCount
	}

	quorum := entry.RequiredQuorum
	if quorum < 1 {
		quorum = threshold
	}
	if entry.Status == interfaces.CredentialPending && entry.AttestationCount >= quorum {
		entry.Status = interfaces.CredentialActive
		l.log.Info("Credential activated",
			slog.String("credential_id", string(id)),
			slog.Int("attestations", entry.AttestationCount),
			slog.Int("quorum", quorum))
	}
	return nil
}

// Revoke marks the credential revoked and appends a revocation record.
// Revocation is terminal.
func (l *Ledger) Revoke(id interfaces.CredentialID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialNotFound, id)
	}
	if entry.Status == interfaces.CredentialRevoked {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialRevoked, id)
	}

	entry.Status = interfaces.CredentialRevoked
	l.revocations = append(l.revocations, interfaces.RevocationEntry{
		CredentialID: id,
		Reason:       reason,
		RevokedAt:    time.Now().UTC(),
	})

	l.log.Info("Credential revoked",
		slog.String("credential_id", string(id)),
		slog.String("reason", reason))
	return nil
}

// Suspend temporarily invalidates an active credential.
func (l *Ledger) Suspend(id interfaces.CredentialID) error {
	return l.transition(id, interfaces.CredentialActive, interfaces.CredentialSuspended)
}

// Reinstate returns a suspended credential to active.
func (l *Ledger) Reinstate(id interfaces.CredentialID) error {
	return l.transition(id, interfaces.CredentialSuspended, interfaces.CredentialActive)
}

func (l *Ledger) transition(id interfaces.CredentialID, from, to interfaces.CredentialStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialNotFound, id)
	}
	if entry.Status == interfaces.CredentialRevoked {
		return fmt.Errorf("%w: %s", interfaces.ErrCredentialRevoked, id)
	}
	if entry.Status != from {
		return fmt.Errorf("credential %s is %s, expected %s", id, entry.Status, from)
	}
	entry.Status = to
	return nil
}

// Entry returns a copy of the registry record, refreshing its expiry state
// first.
func (l *Ledger) Entry(id interfaces.CredentialID) (interfaces.CredentialEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return interfaces.CredentialEntry{}, fmt.Errorf("%w: %s", interfaces.ErrCredentialNotFound, id)
	}
	l.refreshExpiryLocked(entry)
	return *entry, nil
}

// IsValid reports whether the credential is active and unexpired.
func (l *Ledger) IsValid(id interfaces.CredentialID) (bool, error) {
	entry, err := l.Entry(id)
	if err != nil {
		return false, err
	}
	return entry.Status == interfaces.CredentialActive, nil
}

// Revocations returns all revocation records in order of occurrence.
func (l *Ledger) Revocations() []interfaces.RevocationEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]interfaces.RevocationEntry(nil), l.revocations...)
}

// refreshExpiryLocked downgrades pending or active entries whose validity
// window has passed. Callers must hold the write lock.
func (l *Ledger) refreshExpiryLocked(entry *interfaces.CredentialEntry) {
	if entry.ExpiresAt == nil || time.Now().Before(*entry.ExpiresAt) {
		return
	}
	switch entry.Status {
	case interfaces.CredentialPending, interfaces.CredentialActive, interfaces.CredentialSuspended:
		entry.Status = interfaces.CredentialExpired
	}
}
