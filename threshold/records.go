package threshold

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.dedis.ch/kyber/v4"
)

// KeyShare is one party's private slice of a scheme's signing key.
//
// PartyID is the 1-based polynomial evaluation point the share was issued
// for. PrivateShare is the scalar f(PartyID); PublicShare is its image in
// the key group and can be published freely.
type KeyShare struct {
	PartyID      int
	PrivateShare kyber.Scalar
	PublicShare  kyber.Point
	SchemeID     uuid.UUID
}

type keyShareWire struct {
	PartyID      int       `json:"party_id"`
	PrivateShare string    `json:"private_share"`
	PublicShare  string    `json:"public_share"`
	SchemeID     uuid.UUID `json:"scheme_id"`
}

// MarshalJSON encodes the share with hex-encoded group elements.
func (ks KeyShare) MarshalJSON() ([]byte, error) {
	priv, err := marshalScalar(ks.PrivateShare)
	if err != nil {
		return nil, err
	}
	pub, err := marshalPoint(ks.PublicShare)
	if err != nil {
		return nil, err
	}
	return json.Marshal(keyShareWire{
		PartyID:      ks.PartyID,
		PrivateShare: priv,
		PublicShare:  pub,
		SchemeID:     ks.SchemeID,
	})
}

// UnmarshalJSON decodes a share previously produced by MarshalJSON.
func (ks *KeyShare) UnmarshalJSON(data []byte) error {
	var w keyShareWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	priv, err := unmarshalScalar(w.PrivateShare)
	if err != nil {
		return err
	}
	pub, err := unmarshalPoint(suite.G2(), w.PublicShare)
	if err != nil {
		return err
	}
	*ks = KeyShare{
		PartyID:      w.PartyID,
		PrivateShare: priv,
		PublicShare:  pub,
		SchemeID:     w.SchemeID,
	}
	return nil
}

// ThresholdPublicKey is the master verification key of a scheme. It echoes
// the scheme parameters so verifiers need no side channel for them.
type ThresholdPublicKey struct {
	PublicKey    kyber.Point
	SchemeID     uuid.UUID
	Threshold    int
	TotalParties int
}

type thresholdPublicKeyWire struct {
	PublicKey    string    `json:"public_key"`
	SchemeID     uuid.UUID `json:"scheme_id"`
	Threshold    int       `json:"threshold"`
	TotalParties int       `json:"total_parties"`
}

// MarshalJSON encodes the key with a hex-encoded group element.
func (pk ThresholdPublicKey) MarshalJSON() ([]byte, error) {
	pub, err := marshalPoint(pk.PublicKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(thresholdPublicKeyWire{
		PublicKey:    pub,
		SchemeID:     pk.SchemeID,
		Threshold:    pk.Threshold,
		TotalParties: pk.TotalParties,
	})
}

// UnmarshalJSON decodes a key previously produced by MarshalJSON.
func (pk *ThresholdPublicKey) UnmarshalJSON(data []byte) error {
	var w thresholdPublicKeyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	pub, err := unmarshalPoint(suite.G2(), w.PublicKey)
	if err != nil {
		return err
	}
	*pk = ThresholdPublicKey{
		PublicKey:    pub,
		SchemeID:     w.SchemeID,
		Threshold:    w.Threshold,
		TotalParties: w.TotalParties,
	}
	return nil
}

// PartialSignature is one party's contribution to a threshold signature.
type PartialSignature struct {
	PartyID   int
	Signature kyber.Point
	SchemeID  uuid.UUID
}

type partialSignatureWire struct {
	PartyID   int       `json:"party_id"`
	Signature string    `json:"signature"`
	SchemeID  uuid.UUID `json:"scheme_id"`
}

// MarshalJSON encodes the partial signature with a hex-encoded group element.
func (ps PartialSignature) MarshalJSON() ([]byte, error) {
	sig, err := marshalPoint(ps.Signature)
	if err != nil {
		return nil, err
	}
	return json.Marshal(partialSignatureWire{
		PartyID:   ps.PartyID,
		Signature: sig,
		SchemeID:  ps.SchemeID,
	})
}

// UnmarshalJSON decodes a partial signature previously produced by MarshalJSON.
func (ps *PartialSignature) UnmarshalJSON(data []byte) error {
	var w partialSignatureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sig, err := unmarshalPoint(suite.G1(), w.Signature)
	if err != nil {
		return err
	}
	*ps = PartialSignature{
		PartyID:   w.PartyID,
		Signature: sig,
		SchemeID:  w.SchemeID,
	}
	return nil
}

// ThresholdSignature is a combined signature indistinguishable from one made
// with the unsplit secret. Signers records the quorum that produced it, in
// ascending party order; the signature point itself does not depend on the
// quorum.
type ThresholdSignature struct {
	Signature kyber.Point
	SchemeID  uuid.UUID
	Signers   []int
}

type thresholdSignatureWire struct {
	Signature string    `json:"signature"`
	SchemeID  uuid.UUID `json:"scheme_id"`
	Signers   []int     `json:"signers"`
}

// MarshalJSON encodes the signature with a hex-encoded group element.
func (ts ThresholdSignature) MarshalJSON() ([]byte, error) {
	sig, err := marshalPoint(ts.Signature)
	if err != nil {
		return nil, err
	}
	return json.Marshal(thresholdSignatureWire{
		Signature: sig,
		SchemeID:  ts.SchemeID,
		Signers:   ts.Signers,
	})
}

// UnmarshalJSON decodes a signature previously produced by MarshalJSON.
func (ts *ThresholdSignature) UnmarshalJSON(data []byte) error {
	var w thresholdSignatureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sig, err := unmarshalPoint(suite.G1(), w.Signature)
	if err != nil {
		return err
	}
	*ts = ThresholdSignature{
		Signature: sig,
		SchemeID:  w.SchemeID,
		Signers:   w.Signers,
	}
	return nil
}

func marshalScalar(s kyber.Scalar) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: nil scalar", ErrCrypto)
	}
	b, err := s.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return hex.EncodeToString(b), nil
}

func unmarshalScalar(encoded string) (kyber.Scalar, error) {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: scalar is not valid hex: %v", ErrCrypto, err)
	}
	s := suite.G1().Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return s, nil
}

func marshalPoint(p kyber.Point) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil point", ErrCrypto)
	}
	b, err := p.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return hex.EncodeToString(b), nil
}

func unmarshalPoint(g kyber.Group, encoded string) (kyber.Point, error) {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: point is not valid hex: %v", ErrCrypto, err)
	}
	p := g.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return p, nil
}
