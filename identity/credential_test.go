package identity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestCredential() Credential {
	return NewCredential(
		"did:web:issuer.example.org",
		"did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
		"KycCredential",
		map[string]any{"kyc_level": "2", "country": "DE"},
	)
}

func TestNewCredential(t *testing.T) {
	cred := validTestCredential()

	assert.True(t, strings.HasPrefix(cred.ID, "urn:uuid:"), "id should be a urn:uuid")
	assert.Equal(t, []string{DefaultContext}, cred.Context)
	assert.Equal(t, []string{BaseCredentialType, "KycCredential"}, cred.Types)
	assert.Equal(t, "KycCredential", cred.PrimaryType())
	assert.False(t, cred.IssuanceDate.IsZero())
	require.NoError(t, cred.Validate())
}

func TestCredentialValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Credential)
	}{
		{"missing context", func(c *Credential) { c.Context = nil }},
		{"missing id", func(c *Credential) { c.ID = "" }},
		{"missing base type", func(c *Credential) { c.Types = []string{"KycCredential"} }},
		{"malformed issuer", func(c *Credential) { c.Issuer = "not-a-did" }},
		{"malformed subject", func(c *Credential) { c.Subject.ID = "did:" }},
		{"no claims", func(c *Credential) { c.Subject.Claims = nil }},
		{"zero issuance date", func(c *Credential) { c.IssuanceDate = time.Time{} }},
		{"expiry before issuance", func(c *Credential) {
			past := c.IssuanceDate.Add(-time.Hour)
			c.ExpirationDate = &past
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cred := validTestCredential()
			tc.mutate(&cred)
			err := cred.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestCredentialIsExpired(t *testing.T) {
	cred := validTestCredential()
	assert.False(t, cred.IsExpired(), "credential without expiry never expires")

	future := time.Now().Add(time.Hour)
	cred.ExpirationDate = &future
	assert.False(t, cred.IsExpired())

	past := time.Now().Add(-time.Minute)
	cred.ExpirationDate = &past
	assert.True(t, cred.IsExpired())
}

func TestCanonicalJSONIsDeterministic(t *testing.T) {
	cred := validTestCredential()

	first, err := cred.CanonicalJSON()
	require.NoError(t, err)
	second, err := cred.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second, "canonical bytes must be stable across calls")

	copied := cred
	copiedBytes, err := copied.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, first, copiedBytes, "equal content must canonicalize to equal bytes")
}

func TestCanonicalJSONExcludesProof(t *testing.T) {
	cred := validTestCredential()
	unsigned, err := cred.CanonicalJSON()
	require.NoError(t, err)

	cred.AttachProof("urn:scheme:pubkey", "00ff")
	signed, err := cred.CanonicalJSON()
	require.NoError(t, err)

	assert.Equal(t, unsigned, signed, "attaching a proof must not change the signed bytes")
	assert.NotNil(t, cred.Proof)
	assert.Equal(t, ProofTypeThresholdBLS, cred.Proof.Type)
}

func TestCredentialJSONRoundTrip(t *testing.T) {
	cred := validTestCredential()

	data, err := json.Marshal(&cred)
	require.NoError(t, err)

	// Claims must sit directly inside credentialSubject next to "id".
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	var subject map[string]any
	require.NoError(t, json.Unmarshal(raw["credentialSubject"], &subject))
	assert.Equal(t, "2", subject["kyc_level"])
	assert.Equal(t, string(cred.Subject.ID), subject["id"])

	var restored Credential
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, cred.ID, restored.ID)
	assert.Equal(t, cred.Issuer, restored.Issuer)
	assert.Equal(t, cred.Subject.ID, restored.Subject.ID)
	assert.Equal(t, cred.Subject.Claims, restored.Subject.Claims)
	assert.True(t, cred.IssuanceDate.Equal(restored.IssuanceDate))
	require.NoError(t, restored.Validate())

	// Canonical bytes survive the round trip.
	original, err := cred.CanonicalJSON()
	require.NoError(t, err)
	reparsed, err := restored.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, original, reparsed)
}

func TestPrimaryTypeFallsBackToBase(t *testing.T) {
	cred := validTestCredential()
	cred.Types = []string{BaseCredentialType}
	assert.Equal(t, BaseCredentialType, cred.PrimaryType())
}
