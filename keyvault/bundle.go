package keyvault

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

// ShareBundle is the on-disk form of a generated signing scheme: the scheme
// parameters and threshold public key in the clear, plus one sealed key
// share per attestor. The daemon loads the bundle at startup and opens the
// sealed shares with the passphrase, supplied directly or reconstructed
// from admin recovery shares.
type ShareBundle struct {
	Params       threshold.SchemeParameters       `json:"params"`
	PublicKey    threshold.ThresholdPublicKey     `json:"public_key"`
	SealedShares map[interfaces.AttestorID][]byte `json:"sealed_shares"`
}

// NewShareBundle seals one key share per attestor under the passphrase and
// packages them with the scheme's public material.
func NewShareBundle(params threshold.SchemeParameters, publicKey threshold.ThresholdPublicKey, shares map[interfaces.AttestorID]threshold.KeyShare, passphrase []byte) (*ShareBundle, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("no key shares to seal")
	}

	sealed := make(map[interfaces.AttestorID][]byte, len(shares))
	for id, share := range shares {
		blob, err := SealShare(share, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to seal share for %s: %w", id, err)
		}
		sealed[id] = blob
	}

	return &ShareBundle{
		Params:       params,
		PublicKey:    publicKey,
		SealedShares: sealed,
	}, nil
}

// OpenShares opens every sealed share in the bundle with the passphrase,
// returning the attestor-to-share bindings the coordinator needs.
func (b *ShareBundle) OpenShares(passphrase []byte) (map[interfaces.AttestorID]threshold.KeyShare, error) {
	bindings := make(map[interfaces.AttestorID]threshold.KeyShare, len(b.SealedShares))
	for id, blob := range b.SealedShares {
		share, err := OpenShare(blob, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to open share for %s: %w", id, err)
		}
		bindings[id] = share
	}
	return bindings, nil
}

// WriteShareBundle serializes the bundle as JSON.
func WriteShareBundle(w io.Writer, b *ShareBundle) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(b); err != nil {
		return fmt.Errorf("failed to encode share bundle: %w", err)
	}
	return nil
}

// ReadShareBundle parses a bundle written by WriteShareBundle and validates
// its scheme parameters.
func ReadShareBundle(r io.Reader) (*ShareBundle, error) {
	var bundle ShareBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode share bundle: %w", err)
	}

	if err := bundle.Params.Validate(); err != nil {
		return nil, err
	}
	if len(bundle.SealedShares) != bundle.Params.TotalParties {
		return nil, fmt.Errorf("share bundle carries %d sealed shares, scheme expects %d",
			len(bundle.SealedShares), bundle.Params.TotalParties)
	}

	return &bundle, nil
}
