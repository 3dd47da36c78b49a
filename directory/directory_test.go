package directory

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory() *Directory {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func kycAttestor(id string) interfaces.Attestor {
	return interfaces.Attestor{
		ID:           interfaces.AttestorID(id),
		DID:          "did:web:" + id + ".example.org",
		Name:         "Attestor " + id,
		Organization: "Example Org",
		Capabilities: []interfaces.Capability{interfaces.CapabilityKYC},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	dir := newTestDirectory()

	require.NoError(t, dir.Register(kycAttestor("alpha")))

	att, err := dir.Attestor("alpha")
	require.NoError(t, err)
	assert.Equal(t, interfaces.AttestorID("alpha"), att.ID)
	assert.Equal(t, initialReputation, att.ReputationScore, "new attestors start at the initial score")
	assert.False(t, att.CreatedAt.IsZero())

	_, err = dir.Attestor("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrAttestorNotFound)
}

func TestRegisterRejectsBadRecords(t *testing.T) {
	dir := newTestDirectory()

	noID := kycAttestor("alpha")
	noID.ID = ""
	assert.ErrorIs(t, dir.Register(noID), ErrInvalidAttestor)

	badDID := kycAttestor("alpha")
	badDID.DID = "not-a-did"
	assert.ErrorIs(t, dir.Register(badDID), ErrInvalidAttestor)

	noCaps := kycAttestor("alpha")
	noCaps.Capabilities = nil
	assert.ErrorIs(t, dir.Register(noCaps), ErrInvalidAttestor)

	require.NoError(t, dir.Register(kycAttestor("alpha")))
	assert.ErrorIs(t, dir.Register(kycAttestor("alpha")), ErrAttestorExists)
}

func TestCanAttest(t *testing.T) {
	dir := newTestDirectory()
	require.NoError(t, dir.Register(kycAttestor("alpha")))

	custom := kycAttestor("beta")
	custom.Capabilities = []interfaces.Capability{"MembershipCredential"}
	require.NoError(t, dir.Register(custom))

	ok, err := dir.CanAttest("alpha", "KycCredential")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.CanAttest("alpha", "EducationCredential")
	require.NoError(t, err)
	assert.False(t, ok, "attestor without the capability must not qualify")

	ok, err = dir.CanAttest("beta", "MembershipCredential")
	require.NoError(t, err)
	assert.True(t, ok, "unknown credential types match custom capabilities by name")

	_, err = dir.CanAttest("missing", "KycCredential")
	assert.ErrorIs(t, err, interfaces.ErrAttestorNotFound)
}

func TestCapabilityForCredentialType(t *testing.T) {
	assert.Equal(t, interfaces.CapabilityKYC, CapabilityForCredentialType("KycCredential"))
	assert.Equal(t, interfaces.CapabilityAgeVerification, CapabilityForCredentialType("AgeVerificationCredential"))
	assert.Equal(t, interfaces.CapabilityEducation, CapabilityForCredentialType("DegreeCredential"))
	assert.Equal(t, interfaces.Capability("FooCredential"), CapabilityForCredentialType("FooCredential"))
}

func TestListIsOrdered(t *testing.T) {
	dir := newTestDirectory()
	for _, id := range []string{"charlie", "alpha", "beta"} {
		require.NoError(t, dir.Register(kycAttestor(id)))
	}

	listed := dir.List()
	require.Len(t, listed, 3)
	assert.Equal(t, interfaces.AttestorID("alpha"), listed[0].ID)
	assert.Equal(t, interfaces.AttestorID("beta"), listed[1].ID)
	assert.Equal(t, interfaces.AttestorID("charlie"), listed[2].ID)
}

func TestFindByCapability(t *testing.T) {
	dir := newTestDirectory()
	require.NoError(t, dir.Register(kycAttestor("alpha")))

	edu := kycAttestor("beta")
	edu.Capabilities = []interfaces.Capability{interfaces.CapabilityEducation}
	require.NoError(t, dir.Register(edu))

	both := kycAttestor("gamma")
	both.Capabilities = []interfaces.Capability{interfaces.CapabilityKYC, interfaces.CapabilityEducation}
	both.ReputationScore = 80
	require.NoError(t, dir.Register(both))

	kyc := dir.FindByCapability(interfaces.CapabilityKYC)
	require.Len(t, kyc, 2)
	assert.Equal(t, interfaces.AttestorID("gamma"), kyc[0].ID, "higher reputation sorts first")
}

func TestUpdateReputationClamps(t *testing.T) {
	dir := newTestDirectory()
	require.NoError(t, dir.Register(kycAttestor("alpha")))

	score, err := dir.UpdateReputation("alpha", 70)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score, "score clamps at 100")

	score, err = dir.UpdateReputation("alpha", -250)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score, "score clamps at 0")

	_, err = dir.UpdateReputation("missing", 5)
	assert.ErrorIs(t, err, interfaces.ErrAttestorNotFound)
}

func TestLookupReturnsCopies(t *testing.T) {
	dir := newTestDirectory()
	require.NoError(t, dir.Register(kycAttestor("alpha")))

	att, err := dir.Attestor("alpha")
	require.NoError(t, err)
	att.Capabilities[0] = "tampered"

	fresh, err := dir.Attestor("alpha")
	require.NoError(t, err)
	assert.Equal(t, interfaces.CapabilityKYC, fresh.Capabilities[0],
		"mutating a returned record must not affect the directory")
}
