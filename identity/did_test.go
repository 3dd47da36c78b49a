package identity

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDIDValidation(t *testing.T) {
	tests := []struct {
		name    string
		did     string
		wantErr bool
	}{
		{"web", "did:web:attestor.example.org", false},
		{"ethr", "did:ethr:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"key", "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", false},
		{"missing prefix", "web:attestor.example.org", true},
		{"empty method", "did::something", true},
		{"empty id", "did:web:", true},
		{"bare string", "attestor.example.org", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			did, err := interfaces.NewDID(tc.did)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, interfaces.ErrInvalidDID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.did, did.String())
		})
	}
}

func TestGenerateKeyDID(t *testing.T) {
	did, priv, err := GenerateKeyDID()
	require.NoError(t, err)
	require.NotNil(t, priv)

	assert.True(t, strings.HasPrefix(did.String(), "did:key:z"), "did:key must use the multibase z prefix")
	assert.Equal(t, "key", did.Method())
	require.NoError(t, did.Validate())

	// Same key, same identifier.
	again, err := NewKeyDID(priv.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, did, again)
}

func TestNewKeyDIDRejectsShortKeys(t *testing.T) {
	_, err := NewKeyDID(make(ed25519.PublicKey, 7))
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrInvalidDID)
}

func TestGenerateEthrDID(t *testing.T) {
	did, key, err := GenerateEthrDID()
	require.NoError(t, err)
	require.NotNil(t, key)

	assert.True(t, strings.HasPrefix(did.String(), "did:ethr:0x"))
	assert.Len(t, did.MethodSpecificID(), 42, "method-specific id should be a 0x-prefixed address")
	require.NoError(t, did.Validate())

	assert.Equal(t, did, NewEthrDID(&key.PublicKey), "identifier must be deterministic for a key")
}

func TestNewWebDID(t *testing.T) {
	did, err := NewWebDID("Attestor.Example.Org")
	require.NoError(t, err)
	assert.Equal(t, interfaces.DID("did:web:attestor.example.org"), did, "domains are lowercased")

	for _, bad := range []string{"", "https://attestor.example.org", "attestor.example.org/path", "localhost"} {
		_, err := NewWebDID(bad)
		assert.Error(t, err, "should reject %q", bad)
	}
}

func TestVerifyWebDIDRejectsOtherMethods(t *testing.T) {
	resolver := NewLinkageResolver("127.0.0.1:1")
	err := resolver.VerifyWebDID("did:ethr:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrInvalidDID)
}
