package httpserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/keyvault"
)

// UnlockState represents the recovery progress of the key vault.
type UnlockState int

const (
	// StateLocked means the vault is waiting for recovery shares.
	StateLocked UnlockState = iota

	// StateUnlocked means the vault bundle has been reconstructed and the
	// attestation service can come up.
	StateUnlocked
)

// stateToString converts an UnlockState to a string representation.
func stateToString(state UnlockState) string {
	switch state {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// AdminHandler processes recovery-share submissions that unlock the
// coordinator's sealed key material after a restart.
//
// Administrators authenticate twice: the HTTP request itself is signed with
// the admin's private key (path plus body, in the X-Admin-Signature header),
// and the submitted share carries its own signature which the vault checks
// before accepting it. Only admins whose public keys were registered at
// vault creation can contribute shares.
type AdminHandler struct {
	mu           sync.RWMutex
	log          *slog.Logger
	vault        *keyvault.RecoveryVault
	adminPubKeys map[string][]byte // Map of admin ID to public key PEM
	submitted    map[string]int    // Map of admin ID to their submitted share index
	unlocked     bool
	completeChan chan struct{} // Signals when the vault unlocks
}

// NewAdminHandler creates an admin handler guarding the given vault.
//
// The adminPubKeys map associates admin IDs with PEM-encoded public keys;
// the same keys must have been registered with the vault so share-level
// signature checks succeed. A vault that is already unlocked produces a
// handler whose WaitForUnlock returns immediately.
func NewAdminHandler(log *slog.Logger, adminPubKeys map[string][]byte, vault *keyvault.RecoveryVault) *AdminHandler {
	h := &AdminHandler{
		log:          log,
		vault:        vault,
		adminPubKeys: adminPubKeys,
		submitted:    make(map[string]int),
		completeChan: make(chan struct{}),
	}

	if vault.Unlocked() {
		h.unlocked = true
		close(h.completeChan)
	}

	return h
}

// WaitForUnlock blocks until the vault is unlocked or the context is
// cancelled, then returns the reconstructed bundle.
func (h *AdminHandler) WaitForUnlock(ctx context.Context) ([]byte, error) {
	select {
	case <-h.completeChan:
		return h.vault.Bundle()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AdminRouter returns a configured HTTP router for the admin API.
//
// The router provides endpoints for checking the unlock state and
// submitting recovery shares. It is mounted under /api/admin.
func (h *AdminHandler) AdminRouter() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.handleStatus)
	r.Post("/share", h.handleSubmitShare)

	return r
}

// handleStatus returns the current unlock state of the vault.
//
// Endpoint: GET /api/admin/status
func (h *AdminHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	unlocked := h.unlocked
	h.mu.RUnlock()

	state := StateLocked
	if unlocked {
		state = StateUnlocked
	}

	resp := map[string]interface{}{
		"state":     stateToString(state),
		"threshold": h.vault.Threshold(),
	}
	if !unlocked {
		resp["shares_received"] = h.vault.SharesReceived()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleSubmitShare accepts one admin's recovery share.
//
// The share and its signature are base64 encoded. The vault verifies the
// signature against the admin's registered public key before counting the
// share toward the threshold. Once enough shares arrive the bundle is
// reconstructed and waiters on WaitForUnlock are released.
//
// Endpoint: POST /api/admin/share
// Body: {"share_index": <int>, "share": "<base64>", "signature": "<base64>"}
func (h *AdminHandler) handleSubmitShare(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.verifyAdmin(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.mu.Lock()
	if h.unlocked {
		h.mu.Unlock()
		http.Error(w, "Vault is already unlocked", http.StatusBadRequest)
		return
	}

	if _, exists := h.submitted[adminID]; exists {
		h.mu.Unlock()
		http.Error(w, "Share already submitted by this admin", http.StatusBadRequest)
		return
	}

	var submission struct {
		ShareIndex int    `json:"share_index"`
		Share      string `json:"share"`     // base64 encoded
		Signature  string `json:"signature"` // base64 encoded
	}

	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.mu.Unlock()
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	share, err := base64.StdEncoding.DecodeString(submission.Share)
	if err != nil {
		h.mu.Unlock()
		http.Error(w, "Invalid share encoding", http.StatusBadRequest)
		return
	}

	signature, err := base64.StdEncoding.DecodeString(submission.Signature)
	if err != nil {
		h.mu.Unlock()
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	adminPubKeyPEM := h.adminPubKeys[adminID]

	err = h.vault.SubmitRecoveryShare(submission.ShareIndex, share, signature, adminPubKeyPEM)
	if err != nil {
		h.mu.Unlock()
		h.log.Error("Share submission failed", "err", err, "adminID", adminID)
		http.Error(w, "Share submission failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.submitted[adminID] = submission.ShareIndex

	if h.vault.Unlocked() {
		h.unlocked = true
		h.mu.Unlock()

		// Signal completion
		close(h.completeChan)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Vault unlocked successfully - recovery complete",
		})

		h.log.Info("Key vault successfully unlocked - recovery complete", "adminID", adminID)
		return
	}

	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Share accepted, waiting for more shares",
	})

	h.log.Info("Recovery share accepted", "adminID", adminID, "shareIndex", submission.ShareIndex)
}

// verifyAdmin checks if the request is from a whitelisted admin.
//
// The function verifies that:
//  1. The admin is in the whitelist (has a registered public key)
//  2. The request includes a valid signature over the request path and body
//     created with the admin's private key
//
// Returns the admin ID and whether verification succeeded.
func (h *AdminHandler) verifyAdmin(r *http.Request) (string, bool) {
	adminID := r.Header.Get("X-Admin-ID")
	adminSignatureStr := r.Header.Get("X-Admin-Signature")

	if adminID == "" || adminSignatureStr == "" {
		return "", false
	}

	h.mu.RLock()
	pubKeyPEM, exists := h.adminPubKeys[adminID]
	h.mu.RUnlock()

	if !exists {
		h.log.Warn("Authentication failed: unknown admin ID", "adminID", adminID)
		return adminID, false
	}

	adminSignature, err := base64.StdEncoding.DecodeString(adminSignatureStr)
	if err != nil {
		h.log.Warn("Authentication failed: invalid signature encoding", "adminID", adminID, "err", err)
		return adminID, false
	}

	block, _ := pem.Decode(pubKeyPEM)
	if block == nil {
		h.log.Error("Failed to decode admin public key PEM", "adminID", adminID)
		return adminID, false
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		h.log.Error("Failed to parse admin public key", "adminID", adminID, "err", err)
		return adminID, false
	}

	// Read the request body without consuming it so the handler can still
	// decode it after authentication.
	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, err = io.ReadAll(r.Body)
		if err != nil {
			h.log.Error("Failed to read request body", "err", err)
			return adminID, false
		}

		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	message := r.URL.Path
	if len(bodyBytes) > 0 {
		message += string(bodyBytes)
	}

	switch key := pubKey.(type) {
	case *ecdsa.PublicKey:
		hash := sha256.Sum256([]byte(message))
		if !ecdsa.VerifyASN1(key, hash[:], adminSignature) {
			h.log.Warn("Authentication failed: invalid signature", "adminID", adminID)
			return adminID, false
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(key, []byte(message), adminSignature) {
			h.log.Warn("Authentication failed: invalid signature", "adminID", adminID)
			return adminID, false
		}
	default:
		h.log.Error("Admin public key is neither ECDSA nor ED25519 key", "adminID", adminID)
		return adminID, false
	}

	h.log.Debug("Admin authentication successful", "adminID", adminID)
	return adminID, true
}

// SignAdminRequest produces the X-Admin-Signature header value for a request
// to the given path with the given body, using the admin's ECDSA key.
func SignAdminRequest(privateKey *ecdsa.PrivateKey, path string, body []byte) (string, error) {
	message := path
	if len(body) > 0 {
		message += string(body)
	}

	hash := sha256.Sum256([]byte(message))
	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, hash[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign admin request: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// LoadAdminKeys loads admin public keys from a JSON document.
//
// The JSON document contains an "admins" array with entries that include:
//   - "id": A unique identifier for the admin
//   - "pubkey": The admin's public key in PEM format
//
// Returns a map of admin IDs to their public keys in PEM format.
func LoadAdminKeys(r io.Reader) (map[string][]byte, error) {
	var data struct {
		Admins []struct {
			ID     string `json:"id"`
			PubKey string `json:"pubkey"`
		} `json:"admins"`
	}

	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode admin keys JSON: %w", err)
	}

	result := make(map[string][]byte)
	for _, admin := range data.Admins {
		// Verify the public key is valid PEM
		block, _ := pem.Decode([]byte(admin.PubKey))
		if block == nil {
			return nil, fmt.Errorf("invalid PEM data for admin %s", admin.ID)
		}

		// Verify it's a valid public key
		_, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for admin %s: %w", admin.ID, err)
		}

		result[admin.ID] = []byte(admin.PubKey)
	}

	return result, nil
}

// GenerateAdminKeyPair generates a new ECDSA key pair for an administrator.
//
// The generated key pair is used for admin request authentication and for
// signing recovery shares on submission.
//
// Returns:
//   - Private key PEM string (should be securely distributed to the admin)
//   - Public key PEM string (registered with the vault and the AdminHandler)
//   - Error if key generation fails
func GenerateAdminKeyPair() (string, string, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	})

	return string(privateKeyPEM), string(publicKeyPEM), nil
}

// ParsePrivateKey parses an ECDSA private key from PEM format.
func ParsePrivateKey(privateKeyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ECDSA private key: %w", err)
	}

	return privateKey, nil
}
