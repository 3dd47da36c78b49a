package attestor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

func TestAttestationRequestJSONRoundTrip(t *testing.T) {
	request := testRequest()
	request.ID = NewRequestID()
	request.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(request)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"id", "credential", "required_attestors", "threshold", "created_at", "expires_at"} {
		assert.Contains(t, fields, key, "wire format must keep its field names")
	}

	var restored AttestationRequest
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, request.ID, restored.ID)
	assert.Equal(t, request.Threshold, restored.Threshold)
	assert.Equal(t, request.RequiredAttestors, restored.RequiredAttestors)
	assert.WithinDuration(t, request.CreatedAt, restored.CreatedAt, time.Second)
	assert.WithinDuration(t, request.ExpiresAt, restored.ExpiresAt, time.Second)

	// A restored request must still validate, and its credential must
	// canonicalize to the same bytes the submitter signed over.
	require.NoError(t, restored.Validate())
	want, err := request.Credential.CanonicalJSON()
	require.NoError(t, err)
	got, err := restored.Credential.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, want, got, "canonical form must survive the wire")
}

func TestAttestationJSONRoundTrip(t *testing.T) {
	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	credential := testCredential()
	message, err := credential.CanonicalJSON()
	require.NoError(t, err)

	p1, err := scheme.PartialSign(message, shares[0])
	require.NoError(t, err)

	attestation := Attestation{
		ID:               uuid.New(),
		RequestID:        NewRequestID(),
		AttestorID:       testAttestorIDs[0],
		Status:           AttestationApproved,
		PartialSignature: &p1,
		VerifiedClaims:   map[string]any{"kyc_level": "full"},
		Metadata:         map[string]string{"channel": "api"},
		CreatedAt:        time.Now().UTC(),
	}

	data, err := json.Marshal(attestation)
	require.NoError(t, err)

	var restored Attestation
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, attestation.ID, restored.ID)
	assert.Equal(t, attestation.RequestID, restored.RequestID)
	assert.Equal(t, attestation.AttestorID, restored.AttestorID)
	assert.Equal(t, attestation.Status, restored.Status)
	assert.Equal(t, attestation.VerifiedClaims, restored.VerifiedClaims)
	assert.Equal(t, attestation.Metadata, restored.Metadata)
	require.NotNil(t, restored.PartialSignature)
	assert.True(t, p1.Signature.Equal(restored.PartialSignature.Signature))

	// Restored partials are what remote attestors exchange; they must
	// combine exactly like the local originals.
	p2, err := scheme.PartialSign(message, shares[1])
	require.NoError(t, err)
	sig, err := scheme.Combine([]threshold.PartialSignature{*restored.PartialSignature, p2})
	require.NoError(t, err)
	ok, err := scheme.Verify(message, sig, pub)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttestationResultJSONRoundTrip(t *testing.T) {
	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	credential := testCredential()
	message, err := credential.CanonicalJSON()
	require.NoError(t, err)

	p1, err := scheme.PartialSign(message, shares[0])
	require.NoError(t, err)
	p2, err := scheme.PartialSign(message, shares[2])
	require.NoError(t, err)
	sig, err := scheme.Combine([]threshold.PartialSignature{p1, p2})
	require.NoError(t, err)

	result := AttestationResult{
		RequestID:              NewRequestID(),
		ThresholdSignature:     &sig,
		ParticipatingAttestors: []interfaces.AttestorID{testAttestorIDs[0], testAttestorIDs[2]},
		Status:                 ResultCompleted,
		CreatedAt:              time.Now().UTC(),
		Metadata:               map[string]string{"threshold_met": "true", "total_attestations": "2"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var restored AttestationResult
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, result.RequestID, restored.RequestID)
	assert.Equal(t, result.ParticipatingAttestors, restored.ParticipatingAttestors)
	assert.Equal(t, result.Status, restored.Status)
	assert.Equal(t, result.Metadata, restored.Metadata)

	require.NotNil(t, restored.ThresholdSignature)
	assert.Equal(t, sig.Signers, restored.ThresholdSignature.Signers)
	ok, err := scheme.Verify(message, *restored.ThresholdSignature, pub)
	require.NoError(t, err)
	assert.True(t, ok, "restored result signature must still verify")
}

func TestRequestRequires(t *testing.T) {
	request := testRequest()
	assert.True(t, request.Requires(testAttestorIDs[1]))
	assert.False(t, request.Requires(interfaces.AttestorID("attestor-z")))
}
