package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/attestor"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// AttestationClient implements api.AttestationService over HTTP against a
// running coordinator server.
type AttestationClient struct {
	// ServerAddr is the base URL of the coordinator, e.g.
	// "http://localhost:8080".
	ServerAddr string

	httpClient *http.Client
}

// NewAttestationClient creates a client for the coordinator at serverAddr.
// A zero timeout defaults to 30 seconds.
func NewAttestationClient(serverAddr string, timeout time.Duration) *AttestationClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AttestationClient{
		ServerAddr: serverAddr,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitRequest registers a new attestation request with the coordinator.
func (c *AttestationClient) SubmitRequest(req *api.SubmitRequestRequest) (*api.SubmitRequestResponse, error) {
	var resp api.SubmitRequestResponse
	url := fmt.Sprintf("%s/api/attestation/requests", c.ServerAddr)
	if err := c.postJSON(url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitDecision records an attestor's approval or rejection for the request.
func (c *AttestationClient) SubmitDecision(requestID interfaces.RequestID, req *api.AttestationDecisionRequest) (*api.AttestationDecisionResponse, error) {
	var resp api.AttestationDecisionResponse
	url := fmt.Sprintf("%s/api/attestation/requests/%s/attestations", c.ServerAddr, requestID)
	if err := c.postJSON(url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestStatus fetches the progress of a request.
func (c *AttestationClient) RequestStatus(requestID interfaces.RequestID) (*api.RequestStatusResponse, error) {
	var resp api.RequestStatusResponse
	url := fmt.Sprintf("%s/api/attestation/requests/%s/status", c.ServerAddr, requestID)
	if err := c.getJSON(url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Result fetches the outcome of a completed or expired request.
func (c *AttestationClient) Result(requestID interfaces.RequestID) (*attestor.AttestationResult, error) {
	var resp attestor.AttestationResult
	url := fmt.Sprintf("%s/api/attestation/requests/%s/result", c.ServerAddr, requestID)
	if err := c.getJSON(url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyResult asks the coordinator to check a threshold signature against a
// credential.
func (c *AttestationClient) VerifyResult(req *api.VerifyResultRequest) (*api.VerifyResultResponse, error) {
	var resp api.VerifyResultResponse
	url := fmt.Sprintf("%s/api/attestation/verify", c.ServerAddr)
	if err := c.postJSON(url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SchemeInfo fetches the scheme parameters and threshold public key.
func (c *AttestationClient) SchemeInfo() (*api.SchemeInfoResponse, error) {
	var resp api.SchemeInfoResponse
	url := fmt.Sprintf("%s/api/public/scheme", c.ServerAddr)
	if err := c.getJSON(url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AttestationClient) postJSON(url string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("could not encode request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *AttestationClient) getJSON(url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *AttestationClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach coordinator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("coordinator returned status %d", resp.StatusCode)
		}
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(bodyBytes, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("coordinator returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("coordinator returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse coordinator response: %w", err)
	}
	return nil
}

// MockAttestationService implements api.AttestationService for testing.
type MockAttestationService struct {
	mock.Mock
}

// SubmitRequest implements the AttestationService interface for testing.
func (m *MockAttestationService) SubmitRequest(req *api.SubmitRequestRequest) (*api.SubmitRequestResponse, error) {
	args := m.Called(req)
	return args.Get(0).(*api.SubmitRequestResponse), args.Error(1)
}

// SubmitDecision implements the AttestationService interface for testing.
func (m *MockAttestationService) SubmitDecision(requestID interfaces.RequestID, req *api.AttestationDecisionRequest) (*api.AttestationDecisionResponse, error) {
	args := m.Called(requestID, req)
	return args.Get(0).(*api.AttestationDecisionResponse), args.Error(1)
}

// RequestStatus implements the AttestationService interface for testing.
func (m *MockAttestationService) RequestStatus(requestID interfaces.RequestID) (*api.RequestStatusResponse, error) {
	args := m.Called(requestID)
	return args.Get(0).(*api.RequestStatusResponse), args.Error(1)
}

// Result implements the AttestationService interface for testing.
func (m *MockAttestationService) Result(requestID interfaces.RequestID) (*attestor.AttestationResult, error) {
	args := m.Called(requestID)
	return args.Get(0).(*attestor.AttestationResult), args.Error(1)
}

// VerifyResult implements the AttestationService interface for testing.
func (m *MockAttestationService) VerifyResult(req *api.VerifyResultRequest) (*api.VerifyResultResponse, error) {
	args := m.Called(req)
	return args.Get(0).(*api.VerifyResultResponse), args.Error(1)
}

// SchemeInfo implements the AttestationService interface for testing.
func (m *MockAttestationService) SchemeInfo() (*api.SchemeInfoResponse, error) {
	args := m.Called()
	return args.Get(0).(*api.SchemeInfoResponse), args.Error(1)
}
