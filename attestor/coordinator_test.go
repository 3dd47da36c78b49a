package attestor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/directory"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/registry"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

var testAttestorIDs = []interfaces.AttestorID{"attestor-a", "attestor-b", "attestor-c"}

type testHarness struct {
	coordinator *Coordinator
	scheme      *threshold.Scheme
	directory   *directory.Directory
	ledger      *registry.Ledger
	shares      map[interfaces.AttestorID]threshold.KeyShare
}

// newTestHarness wires a 2-of-3 coordinator with three registered attestors,
// each holding one key share.
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err, "Failed to create scheme")

	keyShares, publicKey := scheme.GenerateShares()

	dir := directory.New(logger)
	shares := make(map[interfaces.AttestorID]threshold.KeyShare, len(testAttestorIDs))
	for i, id := range testAttestorIDs {
		err := dir.Register(interfaces.Attestor{
			ID:           id,
			DID:          interfaces.DID(fmt.Sprintf("did:example:%s", id)),
			Name:         string(id),
			Capabilities: []interfaces.Capability{interfaces.CapabilityKYC},
		})
		require.NoError(t, err, "Failed to register attestor %s", id)
		shares[id] = keyShares[i]
	}

	ledger := registry.NewLedger(logger)

	coordinator := New(scheme, publicKey, dir, ledger, logger)
	require.NoError(t, coordinator.BindShares(shares), "Failed to bind shares")

	return &testHarness{
		coordinator: coordinator,
		scheme:      scheme,
		directory:   dir,
		ledger:      ledger,
		shares:      shares,
	}
}

func testCredential() identity.Credential {
	return identity.NewCredential(
		"did:example:issuer",
		"did:example:subject",
		"KycCredential",
		map[string]any{"kyc_level": "full", "country": "DE"},
	)
}

func testRequest() AttestationRequest {
	return AttestationRequest{
		Credential:        testCredential(),
		RequiredAttestors: testAttestorIDs,
		Threshold:         2,
		ExpiresAt:         time.Now().Add(time.Hour),
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name    string
		mutate  func(*AttestationRequest)
		wantErr error
	}{
		{
			name:    "valid request",
			mutate:  func(r *AttestationRequest) {},
			wantErr: nil,
		},
		{
			name:    "zero threshold",
			mutate:  func(r *AttestationRequest) { r.Threshold = 0 },
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "threshold above attestor count",
			mutate:  func(r *AttestationRequest) { r.Threshold = 4 },
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "no attestors",
			mutate:  func(r *AttestationRequest) { r.RequiredAttestors = nil },
			wantErr: ErrInvalidRequest,
		},
		{
			name: "duplicate attestors",
			mutate: func(r *AttestationRequest) {
				r.RequiredAttestors = []interfaces.AttestorID{"attestor-a", "attestor-a"}
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "already expired",
			mutate:  func(r *AttestationRequest) { r.ExpiresAt = time.Now().Add(-time.Minute) },
			wantErr: ErrRequestExpired,
		},
		{
			name:    "invalid credential",
			mutate:  func(r *AttestationRequest) { r.Credential.Issuer = "not-a-did" },
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := testRequest()
			tt.mutate(&request)

			id, err := h.coordinator.SubmitRequest(request)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err, "Valid request should be accepted")
			assert.NotEmpty(t, id, "Accepted request should receive an ID")
		})
	}
}

func TestSubmitRequestRejectsDuplicateID(t *testing.T) {
	h := newTestHarness(t)

	request := testRequest()
	id, err := h.coordinator.SubmitRequest(request)
	require.NoError(t, err)

	request.ID = id
	_, err = h.coordinator.SubmitRequest(request)
	assert.ErrorIs(t, err, ErrRequestExists)
}

func TestTwoOfThreeAttestationFlow(t *testing.T) {
	h := newTestHarness(t)

	request := testRequest()
	requestID, err := h.coordinator.SubmitRequest(request)
	require.NoError(t, err, "Request submission should succeed")

	// The credential lands on the registry as pending.
	entry, err := h.ledger.Entry(request.Credential.CredentialID())
	require.NoError(t, err, "Credential should be registered")
	assert.Equal(t, interfaces.CredentialPending, entry.Status)

	// One approval is below threshold: no result, no error.
	err = h.coordinator.ProcessAttestation(requestID, "attestor-a", true,
		map[string]any{"kyc_level": "full"}, nil)
	require.NoError(t, err, "First approval should be recorded")

	result, err := h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err, "Below-threshold completion attempt should not error")
	assert.Nil(t, result, "No result below threshold")

	snapshot, err := h.coordinator.RequestStatus(requestID)
	require.NoError(t, err)
	assert.Equal(t, ResultInProgress, snapshot.Status)
	assert.Equal(t, 1, snapshot.Approvals)

	// Second approval reaches the threshold.
	err = h.coordinator.ProcessAttestation(requestID, "attestor-b", true, nil, nil)
	require.NoError(t, err, "Second approval should be recorded")

	result, err = h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err, "Completion should succeed at threshold")
	require.NotNil(t, result, "Result should be produced at threshold")

	assert.Equal(t, ResultCompleted, result.Status)
	assert.Equal(t, []interfaces.AttestorID{"attestor-a", "attestor-b"}, result.ParticipatingAttestors)
	require.NotNil(t, result.ThresholdSignature, "Completed result must carry a signature")
	assert.Equal(t, "true", result.Metadata["threshold_met"])

	// The signature verifies against the coordinator's public key.
	valid, err := h.coordinator.VerifyAttestationResult(result, request.Credential)
	require.NoError(t, err, "Verification should not error")
	assert.True(t, valid, "Completed result should verify")

	// Processing a third attestor after completion does not disturb the
	// retired request's outcome.
	err = h.coordinator.ProcessAttestation(requestID, "attestor-c", true, nil, nil)
	assert.ErrorIs(t, err, ErrRequestNotFound, "Completed request should be gone from the pending set")

	// A second completion attempt reports not found rather than recomputing.
	_, err = h.coordinator.TryCompleteAttestation(requestID)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	// The stored result stays retrievable.
	stored, err := h.coordinator.Result(requestID)
	require.NoError(t, err)
	assert.Equal(t, result.ParticipatingAttestors, stored.ParticipatingAttestors)

	snapshot, err = h.coordinator.RequestStatus(requestID)
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, snapshot.Status)
	assert.Equal(t, 2, snapshot.Approvals)

	// The registry flipped the credential to active.
	entry, err = h.ledger.Entry(request.Credential.CredentialID())
	require.NoError(t, err)
	assert.Equal(t, interfaces.CredentialActive, entry.Status)
	assert.Equal(t, 2, entry.AttestationCount)
}

func TestRejectionsDoNotCountTowardQuorum(t *testing.T) {
	h := newTestHarness(t)

	requestID, err := h.coordinator.SubmitRequest(testRequest())
	require.NoError(t, err)

	err = h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil)
	require.NoError(t, err)
	err = h.coordinator.ProcessAttestation(requestID, "attestor-b", false, nil,
		map[string]string{"reason": "document mismatch"})
	require.NoError(t, err)
	err = h.coordinator.ProcessAttestation(requestID, "attestor-c", false, nil,
		map[string]string{"reason": "stale document"})
	require.NoError(t, err)

	result, err := h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err, "Below-threshold completion attempt should not error")
	assert.Nil(t, result, "Rejections must not count toward the quorum")

	snapshot, err := h.coordinator.RequestStatus(requestID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Approvals)
	assert.Equal(t, 2, snapshot.Rejections)
	assert.Equal(t, ResultInProgress, snapshot.Status)
}

func TestDuplicateApprovalsCountOnce(t *testing.T) {
	h := newTestHarness(t)

	requestID, err := h.coordinator.SubmitRequest(testRequest())
	require.NoError(t, err)

	// The same attestor approving twice contributes one partial signature.
	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil))
	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil))

	result, err := h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err)
	assert.Nil(t, result, "One distinct approval must not satisfy a threshold of two")

	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-b", true, nil, nil))

	result, err = h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []interfaces.AttestorID{"attestor-a", "attestor-b"}, result.ParticipatingAttestors)
}

func TestProcessAttestationFailures(t *testing.T) {
	h := newTestHarness(t)

	requestID, err := h.coordinator.SubmitRequest(testRequest())
	require.NoError(t, err)

	t.Run("unknown request", func(t *testing.T) {
		err := h.coordinator.ProcessAttestation("no-such-request", "attestor-a", true, nil, nil)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("unknown attestor", func(t *testing.T) {
		err := h.coordinator.ProcessAttestation(requestID, "stranger", true, nil, nil)
		assert.ErrorIs(t, err, interfaces.ErrAttestorNotFound)
	})

	t.Run("attestor not named by request", func(t *testing.T) {
		err := h.directory.Register(interfaces.Attestor{
			ID:           "attestor-d",
			DID:          "did:example:attestor-d",
			Capabilities: []interfaces.Capability{interfaces.CapabilityKYC},
		})
		require.NoError(t, err)

		err = h.coordinator.ProcessAttestation(requestID, "attestor-d", true, nil, nil)
		assert.ErrorIs(t, err, interfaces.ErrAttestorNotFound)
	})

	t.Run("no key share bound", func(t *testing.T) {
		// attestor-e is known to the directory and named by a fresh request,
		// but holds no share.
		err := h.directory.Register(interfaces.Attestor{
			ID:           "attestor-e",
			DID:          "did:example:attestor-e",
			Capabilities: []interfaces.Capability{interfaces.CapabilityKYC},
		})
		require.NoError(t, err)

		request := testRequest()
		request.RequiredAttestors = []interfaces.AttestorID{"attestor-a", "attestor-e"}
		id, err := h.coordinator.SubmitRequest(request)
		require.NoError(t, err)

		err = h.coordinator.ProcessAttestation(id, "attestor-e", true, nil, nil)
		assert.ErrorIs(t, err, ErrNoKeyShare)

		// Rejections need no share.
		err = h.coordinator.ProcessAttestation(id, "attestor-e", false, nil, nil)
		assert.NoError(t, err, "Rejection should not require a key share")
	})
}

func TestRequestExpiryOnAccess(t *testing.T) {
	h := newTestHarness(t)

	request := testRequest()
	request.ExpiresAt = time.Now().Add(30 * time.Millisecond)

	requestID, err := h.coordinator.SubmitRequest(request)
	require.NoError(t, err, "Submission should succeed while the window is open")

	time.Sleep(60 * time.Millisecond)

	// The first access past expiry retires the request.
	err = h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil)
	assert.ErrorIs(t, err, ErrRequestExpired)

	// Subsequent operations keep reporting expiry, not absence.
	_, err = h.coordinator.TryCompleteAttestation(requestID)
	assert.ErrorIs(t, err, ErrRequestExpired)

	snapshot, err := h.coordinator.RequestStatus(requestID)
	require.NoError(t, err, "Status of an expired request stays queryable")
	assert.Equal(t, ResultExpired, snapshot.Status)

	result, err := h.coordinator.Result(requestID)
	require.NoError(t, err)
	assert.Equal(t, ResultExpired, result.Status)
	assert.Nil(t, result.ThresholdSignature, "Expired result carries no signature")

	// A signature-less result verifies to false without error.
	valid, err := h.coordinator.VerifyAttestationResult(result, request.Credential)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyAttestationResultWithoutSignature(t *testing.T) {
	h := newTestHarness(t)

	valid, err := h.coordinator.VerifyAttestationResult(nil, testCredential())
	require.NoError(t, err, "Nil result should not error")
	assert.False(t, valid)

	valid, err = h.coordinator.VerifyAttestationResult(&AttestationResult{
		RequestID: "some-request",
		Status:    ResultFailed,
	}, testCredential())
	require.NoError(t, err, "Signature-less result should not error")
	assert.False(t, valid)
}

func TestVerifyAttestationResultRejectsAlteredCredential(t *testing.T) {
	h := newTestHarness(t)

	request := testRequest()
	requestID, err := h.coordinator.SubmitRequest(request)
	require.NoError(t, err)

	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil))
	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-c", true, nil, nil))

	result, err := h.coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err)
	require.NotNil(t, result)

	altered := request.Credential
	altered.Subject.Claims = map[string]any{"kyc_level": "none"}

	valid, err := h.coordinator.VerifyAttestationResult(result, altered)
	require.NoError(t, err)
	assert.False(t, valid, "Signature must not verify over altered claims")
}

func TestBindSharesRejections(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err)
	shares, publicKey := scheme.GenerateShares()

	dir := directory.New(logger)
	coordinator := New(scheme, publicKey, dir, nil, logger)

	require.NoError(t, coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
		"attestor-a": shares[0],
	}))

	t.Run("rebinding an attestor", func(t *testing.T) {
		err := coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
			"attestor-a": shares[1],
		})
		assert.ErrorIs(t, err, ErrShareAlreadyBound)
	})

	t.Run("reusing a party index", func(t *testing.T) {
		err := coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
			"attestor-b": shares[0],
		})
		assert.ErrorIs(t, err, ErrShareAlreadyBound)
	})

	t.Run("foreign scheme share", func(t *testing.T) {
		foreign, err := threshold.NewScheme(2, 3)
		require.NoError(t, err)
		foreignShares, _ := foreign.GenerateShares()

		err = coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
			"attestor-b": foreignShares[1],
		})
		assert.ErrorIs(t, err, threshold.ErrSchemeMismatch)
	})

	t.Run("nothing bound on failure", func(t *testing.T) {
		err := coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
			"attestor-b": shares[1],
			"attestor-c": shares[1],
		})
		assert.ErrorIs(t, err, ErrShareAlreadyBound)

		// attestor-b must remain unbound after the failed batch.
		err = coordinator.BindShares(map[interfaces.AttestorID]threshold.KeyShare{
			"attestor-b": shares[1],
			"attestor-c": shares[2],
		})
		assert.NoError(t, err, "Clean batch should bind after a failed one")
	})
}

func TestRegistryFailureDoesNotBlockCompletion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err)
	keyShares, publicKey := scheme.GenerateShares()

	dir := directory.New(logger)
	shares := make(map[interfaces.AttestorID]threshold.KeyShare)
	for i, id := range testAttestorIDs {
		require.NoError(t, dir.Register(interfaces.Attestor{
			ID:           id,
			DID:          interfaces.DID(fmt.Sprintf("did:example:%s", id)),
			Capabilities: []interfaces.Capability{interfaces.CapabilityKYC},
		}))
		shares[id] = keyShares[i]
	}

	mockRegistry := new(registry.MockRegistry)
	mockRegistry.On("Register", mock.Anything).Return(errors.New("registry down"))
	mockRegistry.On("AddAttestation", mock.Anything, 2, 2).Return(errors.New("registry down"))

	coordinator := New(scheme, publicKey, dir, mockRegistry, logger)
	require.NoError(t, coordinator.BindShares(shares))

	requestID, err := coordinator.SubmitRequest(testRequest())
	require.NoError(t, err, "Registry failure must not block submission")

	require.NoError(t, coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil))
	require.NoError(t, coordinator.ProcessAttestation(requestID, "attestor-b", true, nil, nil))

	result, err := coordinator.TryCompleteAttestation(requestID)
	require.NoError(t, err, "Registry failure must not block completion")
	require.NotNil(t, result)
	assert.Equal(t, ResultCompleted, result.Status)

	mockRegistry.AssertExpectations(t)
}

func TestConcurrentRequestsProceedIndependently(t *testing.T) {
	h := newTestHarness(t)

	const requests = 8

	ids := make([]interfaces.RequestID, requests)
	for i := range ids {
		id, err := h.coordinator.SubmitRequest(testRequest())
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, requests*3)

	for _, id := range ids {
		for _, attestorID := range testAttestorIDs {
			wg.Add(1)
			go func(rid interfaces.RequestID, aid interfaces.AttestorID) {
				defer wg.Done()
				if err := h.coordinator.ProcessAttestation(rid, aid, true, nil, nil); err != nil {
					errs <- err
				}
			}(id, attestorID)
		}
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent ProcessAttestation failed: %v", err)
	}

	for _, id := range ids {
		result, err := h.coordinator.TryCompleteAttestation(id)
		require.NoError(t, err, "Completion should succeed for request %s", id)
		require.NotNil(t, result, "All three approvals exceed the threshold")
		assert.GreaterOrEqual(t, len(result.ParticipatingAttestors), 2)
	}
}

func TestConcurrentCompletionProducesOneResult(t *testing.T) {
	h := newTestHarness(t)

	requestID, err := h.coordinator.SubmitRequest(testRequest())
	require.NoError(t, err)

	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-a", true, nil, nil))
	require.NoError(t, h.coordinator.ProcessAttestation(requestID, "attestor-b", true, nil, nil))

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan *AttestationResult, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.coordinator.TryCompleteAttestation(requestID)
			if err == nil && result != nil {
				results <- result
			}
		}()
	}

	wg.Wait()
	close(results)

	produced := 0
	for range results {
		produced++
	}
	assert.Equal(t, 1, produced, "Exactly one caller may complete the request")
}
