package keyvault

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"
)

// RecoveryVault escrows a secret bundle using Shamir's Secret Sharing.
// The bundle is split into one recovery share per administrator, and a
// threshold of signed shares must be submitted to reconstruct it. The
// reconstructed bundle is kept only in memory.
type RecoveryVault struct {
	mu             sync.RWMutex
	bundle         []byte
	unlocked       bool
	threshold      int
	receivedShares map[int][]byte

	// Map of SHA-256 fingerprint to the registered admin public key PEM.
	adminPubKeys map[string][]byte
}

// RecoveryConfig contains the parameters for creating a RecoveryVault.
type RecoveryConfig struct {
	// Threshold is the minimum number of recovery shares required to
	// reconstruct the bundle.
	Threshold int

	// AdminPubKeys is the list of authorized administrator public keys in
	// PEM format. One recovery share is issued per key.
	AdminPubKeys [][]byte
}

// NewRecoveryVault splits the given bundle into recovery shares, one per
// configured administrator. The vault starts unlocked since the bundle is
// known; callers should distribute the shares and erase their own copy of
// the bundle.
func NewRecoveryVault(bundle []byte, config RecoveryConfig) (*RecoveryVault, [][]byte, error) {
	if len(bundle) < 16 {
		return nil, nil, errors.New("recovery bundle must be at least 16 bytes")
	}

	if config.Threshold < 2 {
		return nil, nil, errors.New("threshold must be at least 2")
	}

	if len(config.AdminPubKeys) < config.Threshold {
		return nil, nil, errors.New("total shares must be at least equal to threshold")
	}

	shares, err := shamir.Split(bundle, len(config.AdminPubKeys), config.Threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split recovery bundle: %w", err)
	}

	vault := &RecoveryVault{
		bundle:         bundle,
		unlocked:       true,
		threshold:      config.Threshold,
		receivedShares: make(map[int][]byte),
		adminPubKeys:   make(map[string][]byte),
	}

	if err := vault.registerAdmins(config.AdminPubKeys); err != nil {
		return nil, nil, err
	}

	return vault, shares, nil
}

// NewRecoveryVaultLocked creates a RecoveryVault in recovery mode. The vault
// stays locked until enough valid recovery shares are submitted.
func NewRecoveryVaultLocked(config RecoveryConfig) (*RecoveryVault, error) {
	if config.Threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}

	vault := &RecoveryVault{
		bundle:         nil,
		unlocked:       false,
		threshold:      config.Threshold,
		receivedShares: make(map[int][]byte),
		adminPubKeys:   make(map[string][]byte),
	}

	if err := vault.registerAdmins(config.AdminPubKeys); err != nil {
		return nil, err
	}

	return vault, nil
}

// registerAdmins validates and indexes administrator public keys by their
// SHA-256 fingerprint.
func (v *RecoveryVault) registerAdmins(pubKeyPEMs [][]byte) error {
	for _, publicKeyPEM := range pubKeyPEMs {
		if err := validateAdminPubKey(publicKeyPEM); err != nil {
			return fmt.Errorf("invalid admin pubkey: %w", err)
		}
		fingerprint := sha256.Sum256(publicKeyPEM)
		v.adminPubKeys[hex.EncodeToString(fingerprint[:])] = publicKeyPEM
	}
	return nil
}

// validateAdminPubKey checks that the PEM parses to an ECDSA or Ed25519 key.
func validateAdminPubKey(publicKeyPEM []byte) error {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return errors.New("failed to decode public key PEM")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	switch pubKey.(type) {
	case *ecdsa.PublicKey, ed25519.PublicKey:
		return nil
	default:
		return errors.New("public key is neither ECDSA nor ED25519")
	}
}

// SubmitRecoveryShare submits a recovery share with cryptographic
// verification. Each share must be signed by the administrator's private key.
// When the threshold number of valid shares are received, the bundle is
// automatically reconstructed and the vault transitions to an unlocked state.
//
// Parameters:
//   - shareIndex: The index number of the share (0-based)
//   - share: The actual share data
//   - signature: The signature over the share, signed by the admin's private key
//   - adminPubKeyPEM: The administrator's public key in PEM format
func (v *RecoveryVault) SubmitRecoveryShare(shareIndex int, share, signature, adminPubKeyPEM []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unlocked {
		return errors.New("vault is already unlocked")
	}

	fingerprint := sha256.Sum256(adminPubKeyPEM)
	fingerprintHex := hex.EncodeToString(fingerprint[:])
	pubkeyForFingerprint, found := v.adminPubKeys[fingerprintHex]
	if !found {
		return errors.New("unregistered admin public key")
	}

	if !bytes.Equal(pubkeyForFingerprint, adminPubKeyPEM) {
		return errors.New("invalid pubkey passed for a matching fingerprint")
	}

	block, _ := pem.Decode(adminPubKeyPEM)
	if block == nil {
		return errors.New("failed to decode admin public key PEM")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse admin public key: %w", err)
	}

	switch key := pubKey.(type) {
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(share)
		if !ecdsa.VerifyASN1(key, digest[:], signature) {
			return errors.New("invalid signature")
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(key, share, signature) {
			return errors.New("invalid signature")
		}
	default:
		return errors.New("admin public key is neither ECDSA nor ED25519 key")
	}

	v.receivedShares[shareIndex] = share

	return v.tryReconstruct()
}

// tryReconstruct attempts to reconstruct the bundle from the received shares.
// After successful reconstruction, all shares are wiped from memory.
func (v *RecoveryVault) tryReconstruct() error {
	if len(v.receivedShares) < v.threshold {
		return nil // Not enough shares yet, but this is not an error
	}

	shares := make([][]byte, 0, len(v.receivedShares))
	for _, share := range v.receivedShares {
		shares = append(shares, share)
	}

	bundle, err := shamir.Combine(shares)
	if err != nil {
		return fmt.Errorf("failed to reconstruct recovery bundle: %w", err)
	}

	v.bundle = bundle
	v.unlocked = true

	for i := range v.receivedShares {
		wipeBytes(v.receivedShares[i])
	}
	v.receivedShares = make(map[int][]byte)

	return nil
}

// Unlocked reports whether the bundle has been reconstructed.
func (v *RecoveryVault) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unlocked
}

// Threshold returns the number of recovery shares required to unlock.
func (v *RecoveryVault) Threshold() int {
	return v.threshold
}

// SharesReceived returns the number of distinct shares accepted so far.
// It drops back to zero once the bundle is reconstructed, since accepted
// shares are wiped immediately after use.
func (v *RecoveryVault) SharesReceived() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.receivedShares)
}

// Bundle returns the reconstructed recovery bundle.
// Returns an error while the vault is locked.
func (v *RecoveryVault) Bundle() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.unlocked {
		return nil, errors.New("vault is locked - need more shares to unlock")
	}

	return v.bundle, nil
}

// wipeBytes zeroes data in place.
func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// SignRecoveryShare generates a signature over the SHA-256 digest of a
// recovery share using an administrator's ECDSA private key. Administrators
// use this when submitting their share to prove they are its legitimate
// holder.
func SignRecoveryShare(share []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(share)
	return ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
}
