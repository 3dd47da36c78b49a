package keyvault

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

func generateTestBundle(t *testing.T, passphrase []byte) (*ShareBundle, map[interfaces.AttestorID]threshold.KeyShare) {
	t.Helper()

	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err, "Failed to create scheme")

	shares, publicKey := scheme.GenerateShares()
	byAttestor := map[interfaces.AttestorID]threshold.KeyShare{
		"attestor-a": shares[0],
		"attestor-b": shares[1],
		"attestor-c": shares[2],
	}

	bundle, err := NewShareBundle(scheme.Params(), publicKey, byAttestor, passphrase)
	require.NoError(t, err, "NewShareBundle should succeed")

	return bundle, byAttestor
}

func TestShareBundleRoundTrip(t *testing.T) {
	passphrase := []byte("correct horse battery staple")
	bundle, original := generateTestBundle(t, passphrase)

	var buf bytes.Buffer
	require.NoError(t, WriteShareBundle(&buf, bundle), "WriteShareBundle should succeed")

	loaded, err := ReadShareBundle(&buf)
	require.NoError(t, err, "ReadShareBundle should succeed")

	assert.Equal(t, bundle.Params, loaded.Params, "Scheme parameters should survive the round trip")
	assert.Equal(t, bundle.PublicKey.SchemeID, loaded.PublicKey.SchemeID)
	assert.True(t, bundle.PublicKey.PublicKey.Equal(loaded.PublicKey.PublicKey),
		"Master public key should survive the round trip")

	opened, err := loaded.OpenShares(passphrase)
	require.NoError(t, err, "OpenShares should succeed with the right passphrase")
	require.Len(t, opened, len(original))

	for id, want := range original {
		got, ok := opened[id]
		require.True(t, ok, "Share for %s should be present", id)
		assert.Equal(t, want.PartyID, got.PartyID)
		assert.Equal(t, want.SchemeID, got.SchemeID)
		assert.True(t, want.PrivateShare.Equal(got.PrivateShare), "Private share for %s should survive", id)
	}
}

func TestOpenSharesWrongPassphrase(t *testing.T) {
	bundle, _ := generateTestBundle(t, []byte("right passphrase"))

	_, err := bundle.OpenShares([]byte("wrong passphrase"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestNewShareBundleRequiresShares(t *testing.T) {
	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err)
	_, publicKey := scheme.GenerateShares()

	_, err = NewShareBundle(scheme.Params(), publicKey, nil, []byte("passphrase"))
	assert.Error(t, err, "Sealing an empty share map should fail")
}

func TestReadShareBundleRejectsShareCountMismatch(t *testing.T) {
	bundle, _ := generateTestBundle(t, []byte("passphrase"))

	// Drop one sealed share; the count no longer matches the scheme shape.
	delete(bundle.SealedShares, "attestor-b")

	var buf bytes.Buffer
	require.NoError(t, WriteShareBundle(&buf, bundle))

	_, err := ReadShareBundle(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sealed shares")
}

func TestReadShareBundleRejectsInvalidParams(t *testing.T) {
	bundle, _ := generateTestBundle(t, []byte("passphrase"))
	bundle.Params.Threshold = 0

	var buf bytes.Buffer
	require.NoError(t, WriteShareBundle(&buf, bundle))

	_, err := ReadShareBundle(&buf)
	assert.ErrorIs(t, err, threshold.ErrInvalidConfig)
}

func TestReadShareBundleRejectsGarbage(t *testing.T) {
	_, err := ReadShareBundle(strings.NewReader("not a bundle"))
	assert.Error(t, err)
}
