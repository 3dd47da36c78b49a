package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// ed25519Prefix is the multicodec tag for an ed25519 public key, as used by
// the did:key method.
var ed25519Prefix = []byte{0xed, 0x01}

// NewKeyDID derives a did:key identifier from an ed25519 public key. The
// method-specific id is the multibase base58btc encoding (z-prefixed) of the
// multicodec-tagged key bytes.
func NewKeyDID(pub ed25519.PublicKey) (interfaces.DID, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: ed25519 public key must be %d bytes, got %d",
			interfaces.ErrInvalidDID, ed25519.PublicKeySize, len(pub))
	}
	tagged := append(append([]byte{}, ed25519Prefix...), pub...)
	return interfaces.DID("did:key:z" + base58.Encode(tagged)), nil
}

// GenerateKeyDID creates a fresh ed25519 keypair and its did:key identifier.
func GenerateKeyDID() (interfaces.DID, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	did, err := NewKeyDID(pub)
	if err != nil {
		return "", nil, err
	}
	return did, priv, nil
}

// NewEthrDID derives a did:ethr identifier from a secp256k1 public key,
// using the key's checksummed Ethereum address.
func NewEthrDID(pub *ecdsa.PublicKey) interfaces.DID {
	return interfaces.DID("did:ethr:" + ethcrypto.PubkeyToAddress(*pub).Hex())
}

// GenerateEthrDID creates a fresh secp256k1 keypair and its did:ethr
// identifier.
func GenerateEthrDID() (interfaces.DID, *ecdsa.PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return "", nil, err
	}
	return NewEthrDID(&key.PublicKey), key, nil
}

// NewWebDID builds a did:web identifier for a bare domain name.
func NewWebDID(domain string) (interfaces.DID, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || strings.ContainsAny(domain, "/ \t") || !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: %q is not a bare domain name", interfaces.ErrInvalidDID, domain)
	}
	return interfaces.DID("did:web:" + domain), nil
}
