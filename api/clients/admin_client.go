package clients

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// AdminClient provides methods for interacting with the coordinator's admin
// recovery API. It handles authentication, request signing, and response
// parsing.
type AdminClient struct {
	baseURL    string
	adminID    string
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
}

// RecoveryStatus reports the unlock state of the coordinator's key vault.
// SharesReceived counts distinct shares accepted so far; it is only
// meaningful while the vault is still locked.
type RecoveryStatus struct {
	State          string `json:"state"`
	Threshold      int    `json:"threshold"`
	SharesReceived int    `json:"shares_received"`
}

// NewAdminClient creates a new admin client for interacting with the
// recovery API.
//
// Parameters:
//   - baseURL: The base URL of the admin API (e.g., "http://localhost:8080/api/admin")
//   - adminID: The administrator's ID (hex SHA-256 fingerprint of their public key PEM)
//   - privateKey: The administrator's ECDSA private key
//   - timeout: Request timeout duration (optional, default 30 seconds)
//
// Returns:
//   - Configured AdminClient instance
func NewAdminClient(baseURL, adminID string, privateKey *ecdsa.PrivateKey, timeout ...time.Duration) *AdminClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &AdminClient{
		baseURL:    baseURL,
		adminID:    adminID,
		privateKey: privateKey,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// Status queries the current unlock state of the key vault. The status
// endpoint does not require authentication.
//
// Returns:
//   - The vault's recovery status
//   - Error if the request fails
func (c *AdminClient) Status() (*RecoveryStatus, error) {
	url := fmt.Sprintf("%s/status", c.baseURL)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status request failed with code %d: %s", resp.StatusCode, string(body))
	}

	var result RecoveryStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &result, nil
}

// SubmitShare submits one recovery share toward unlocking the vault.
//
// The share itself must carry a signature proving the submitting admin holds
// it legitimately. If signature is nil, the share is signed with the client's
// own private key (SHA-256 digest, ASN.1 DER encoding), which matches what
// the vault verifies for ECDSA admin keys.
//
// Parameters:
//   - shareIndex: The index of the share as issued during the key ceremony
//   - share: The raw share bytes
//   - signature: The share signature, or nil to sign with the client's key
//
// Returns:
//   - The server's status message (e.g. whether the vault is now unlocked)
//   - Error if the request fails
func (c *AdminClient) SubmitShare(shareIndex int, share, signature []byte) (string, error) {
	url := fmt.Sprintf("%s/share", c.baseURL)

	if signature == nil {
		digest := sha256.Sum256(share)
		var err error
		signature, err = ecdsa.SignASN1(rand.Reader, c.privateKey, digest[:])
		if err != nil {
			return "", fmt.Errorf("failed to sign share: %w", err)
		}
	}

	reqBody := map[string]interface{}{
		"share_index": shareIndex,
		"share":       base64.StdEncoding.EncodeToString(share),
		"signature":   base64.StdEncoding.EncodeToString(signature),
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := CreateSignedAdminRequest("POST", url, reqJSON, c.adminID, c.privateKey)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit share request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("submit share failed with code %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse submit share response: %w", err)
	}

	return result.Message, nil
}

// WaitForUnlock polls the vault status until it reports unlocked or the
// timeout elapses.
//
// Parameters:
//   - timeout: Maximum duration to wait
//   - interval: Polling interval
//
// Returns:
//   - Error if waiting times out
func (c *AdminClient) WaitForUnlock(timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		status, err := c.Status()
		if err != nil {
			return fmt.Errorf("failed to get vault status: %w", err)
		}

		if status.State == "unlocked" {
			return nil
		}

		time.Sleep(interval)
	}

	return fmt.Errorf("timeout waiting for vault to unlock")
}

// CreateSignedAdminRequest creates a new HTTP request with admin
// authentication headers.
//
// The signature is created by:
//  1. Concatenating the request path with the request body (if any)
//  2. Computing the SHA-256 hash of this message
//  3. Signing the hash with the admin's private key using ECDSA
//  4. Base64-encoding the signature
//
// Parameters:
//   - method: HTTP method (e.g., "GET", "POST")
//   - reqUrl: The request URL
//   - body: The request body (can be nil)
//   - adminID: The administrator's ID
//   - privateKey: The administrator's ECDSA private key
//
// Returns:
//   - The signed HTTP request
//   - Error if request creation or signing fails
func CreateSignedAdminRequest(method, reqUrl string, body []byte, adminID string, privateKey *ecdsa.PrivateKey) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequest(method, reqUrl, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, reqUrl, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	// The server verifies the signature over the request path, not the
	// full URL, so extract just the path.
	parsedURL, err := url.Parse(reqUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	req.Header.Set("X-Admin-ID", adminID)

	message := parsedURL.Path
	if body != nil {
		message += string(body)
	}

	hash := sha256.Sum256([]byte(message))

	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set("X-Admin-Signature", base64.StdEncoding.EncodeToString(signature))

	return req, nil
}
