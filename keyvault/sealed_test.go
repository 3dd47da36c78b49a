package keyvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

func generateTestShare(t *testing.T) threshold.KeyShare {
	t.Helper()

	scheme, err := threshold.NewScheme(2, 3)
	require.NoError(t, err, "Failed to create scheme")

	shares, _ := scheme.GenerateShares()
	return shares[0]
}

func TestSealOpenRoundTrip(t *testing.T) {
	share := generateTestShare(t)
	passphrase := []byte("correct horse battery staple")

	sealed, err := SealShare(share, passphrase)
	require.NoError(t, err, "SealShare should succeed")
	assert.NotEmpty(t, sealed, "Sealed blob should not be empty")

	opened, err := OpenShare(sealed, passphrase)
	require.NoError(t, err, "OpenShare should succeed with the right passphrase")

	assert.Equal(t, share.PartyID, opened.PartyID, "Party ID should survive sealing")
	assert.Equal(t, share.SchemeID, opened.SchemeID, "Scheme ID should survive sealing")
	assert.True(t, share.PrivateShare.Equal(opened.PrivateShare), "Private share should survive sealing")
	assert.True(t, share.PublicShare.Equal(opened.PublicShare), "Public share should survive sealing")
}

func TestOpenShareWrongPassphrase(t *testing.T) {
	share := generateTestShare(t)

	sealed, err := SealShare(share, []byte("right passphrase"))
	require.NoError(t, err)

	_, err = OpenShare(sealed, []byte("wrong passphrase"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenShareTampered(t *testing.T) {
	share := generateTestShare(t)
	passphrase := []byte("passphrase")

	sealed, err := SealShare(share, passphrase)
	require.NoError(t, err)

	// Flip a ciphertext byte. GCM authentication must reject it.
	sealed[len(sealed)-1] ^= 0xff

	_, err = OpenShare(sealed, passphrase)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenShareTruncated(t *testing.T) {
	_, err := OpenShare([]byte("too short"), []byte("passphrase"))
	assert.ErrorIs(t, err, ErrSealedShareCorrupted)
}

func TestSealProducesFreshBlobs(t *testing.T) {
	share := generateTestShare(t)
	passphrase := []byte("passphrase")

	first, err := SealShare(share, passphrase)
	require.NoError(t, err)

	second, err := SealShare(share, passphrase)
	require.NoError(t, err)

	// Fresh salt and nonce per seal, so identical inputs yield distinct blobs.
	assert.NotEqual(t, first, second, "Sealing twice should not produce identical blobs")
}
