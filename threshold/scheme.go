package threshold

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/pairing/bn256"
	"go.dedis.ch/kyber/v4/share"
)

// suite is the pairing suite all schemes operate over. Message hashes and
// signatures live in G1, public keys and share commitments in G2.
var suite = bn256.NewSuite()

// hashablePoint is implemented by curve points that support hashing
// arbitrary messages onto their group.
type hashablePoint interface {
	Hash(msg []byte) kyber.Point
}

var (
	// ErrInvalidConfig is returned when scheme parameters are unusable,
	// such as a zero threshold or a threshold above the party count.
	ErrInvalidConfig = errors.New("invalid scheme configuration")

	// ErrSchemeMismatch is returned when an operation mixes records issued
	// under different scheme identifiers.
	ErrSchemeMismatch = errors.New("scheme mismatch")

	// ErrThresholdNotMet is returned when fewer partial signatures or
	// signers are present than the scheme's threshold.
	ErrThresholdNotMet = errors.New("threshold not met")

	// ErrCrypto is returned when group arithmetic or encoding fails, or
	// when inputs would make it degenerate, such as duplicate party indices
	// during interpolation.
	ErrCrypto = errors.New("crypto operation failed")
)

// SchemeParameters fixes the shape of one threshold scheme. The SchemeID is
// drawn at creation time and stamps every record the scheme produces, so
// shares and signatures from different schemes can never be mixed silently.
type SchemeParameters struct {
	Threshold    int       `json:"threshold"`
	TotalParties int       `json:"total_parties"`
	SchemeID     uuid.UUID `json:"scheme_id"`
}

// NewSchemeParameters validates the threshold shape and assigns a fresh
// scheme identifier.
func NewSchemeParameters(threshold, totalParties int) (SchemeParameters, error) {
	if threshold < 1 {
		return SchemeParameters{}, fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, threshold)
	}
	if threshold > totalParties {
		return SchemeParameters{}, fmt.Errorf("%w: threshold %d exceeds total parties %d", ErrInvalidConfig, threshold, totalParties)
	}
	return SchemeParameters{
		Threshold:    threshold,
		TotalParties: totalParties,
		SchemeID:     uuid.New(),
	}, nil
}

// Validate checks the parameters describe a usable scheme.
func (p SchemeParameters) Validate() error {
	if p.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, p.Threshold)
	}
	if p.Threshold > p.TotalParties {
		return fmt.Errorf("%w: threshold %d exceeds total parties %d", ErrInvalidConfig, p.Threshold, p.TotalParties)
	}
	if p.SchemeID == uuid.Nil {
		return fmt.Errorf("%w: scheme id is unset", ErrInvalidConfig)
	}
	return nil
}

// Scheme is a threshold signature engine bound to one set of parameters.
// It holds no mutable state and is safe for concurrent use.
type Scheme struct {
	params SchemeParameters
}

// NewScheme creates a scheme with fresh parameters.
func NewScheme(threshold, totalParties int) (*Scheme, error) {
	params, err := NewSchemeParameters(threshold, totalParties)
	if err != nil {
		return nil, err
	}
	return &Scheme{params: params}, nil
}

// LoadScheme restores a scheme from previously generated parameters, as when
// a coordinator restarts with persisted configuration.
func LoadScheme(params SchemeParameters) (*Scheme, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scheme{params: params}, nil
}

// Params returns the scheme's parameters.
func (s *Scheme) Params() SchemeParameters {
	return s.params
}

// GenerateShares draws a uniformly random secret scalar, splits it with a
// Shamir polynomial of degree threshold-1, and returns one key share per
// party along with the master public key. Party IDs are the 1-based
// polynomial evaluation points, so no share is the secret itself.
func (s *Scheme) GenerateShares() ([]KeyShare, ThresholdPublicKey) {
	secret := suite.G1().Scalar().Pick(suite.RandomStream())
	priPoly := share.NewPriPoly(suite.G2(), s.params.Threshold, secret, suite.RandomStream())
	pubPoly := priPoly.Commit(suite.G2().Point().Base())

	priShares := priPoly.Shares(s.params.TotalParties)
	pubShares := pubPoly.Shares(s.params.TotalParties)

	shares := make([]KeyShare, 0, s.params.TotalParties)
	for k := range priShares {
		shares = append(shares, KeyShare{
			PartyID:      priShares[k].I + 1,
			PrivateShare: priShares[k].V,
			PublicShare:  pubShares[k].V,
			SchemeID:     s.params.SchemeID,
		})
	}

	publicKey := ThresholdPublicKey{
		PublicKey:    pubPoly.Commit(),
		SchemeID:     s.params.SchemeID,
		Threshold:    s.params.Threshold,
		TotalParties: s.params.TotalParties,
	}
	return shares, publicKey
}

// PartialSign maps the message onto the signature group and multiplies it by
// the share's private scalar. The hash is domain-separated by the scheme
// identifier, so signatures under different schemes over the same bytes are
// unlinkable.
func (s *Scheme) PartialSign(message []byte, ks KeyShare) (PartialSignature, error) {
	if ks.SchemeID != s.params.SchemeID {
		return PartialSignature{}, fmt.Errorf("%w: key share belongs to scheme %s, engine runs scheme %s",
			ErrSchemeMismatch, ks.SchemeID, s.params.SchemeID)
	}
	if ks.PartyID < 1 || ks.PartyID > s.params.TotalParties {
		return PartialSignature{}, fmt.Errorf("%w: key share party id %d outside 1..%d",
			ErrCrypto, ks.PartyID, s.params.TotalParties)
	}
	if ks.PrivateShare == nil {
		return PartialSignature{}, fmt.Errorf("%w: key share carries no private scalar", ErrCrypto)
	}

	hm, err := s.hashToPoint(message)
	if err != nil {
		return PartialSignature{}, err
	}

	return PartialSignature{
		PartyID:   ks.PartyID,
		Signature: suite.G1().Point().Mul(ks.PrivateShare, hm),
		SchemeID:  s.params.SchemeID,
	}, nil
}

// Combine interpolates a quorum of partial signatures into the threshold
// signature. The Lagrange basis is evaluated at zero over the exact set of
// contributing party indices, so any quorum of size >= threshold yields the
// same signature point. Duplicate party indices are rejected rather than
// silently dropped.
func (s *Scheme) Combine(partials []PartialSignature) (ThresholdSignature, error) {
	if len(partials) < s.params.Threshold {
		return ThresholdSignature{}, fmt.Errorf("%w: have %d partial signatures, need %d",
			ErrThresholdNotMet, len(partials), s.params.Threshold)
	}

	indices := make([]int, 0, len(partials))
	seen := make(map[int]bool, len(partials))
	for _, p := range partials {
		if p.SchemeID != s.params.SchemeID {
			return ThresholdSignature{}, fmt.Errorf("%w: partial signature from party %d belongs to scheme %s",
				ErrSchemeMismatch, p.PartyID, p.SchemeID)
		}
		if p.PartyID < 1 || p.PartyID > s.params.TotalParties {
			return ThresholdSignature{}, fmt.Errorf("%w: party id %d outside 1..%d",
				ErrCrypto, p.PartyID, s.params.TotalParties)
		}
		if p.Signature == nil {
			return ThresholdSignature{}, fmt.Errorf("%w: partial signature from party %d carries no point",
				ErrCrypto, p.PartyID)
		}
		if seen[p.PartyID] {
			return ThresholdSignature{}, fmt.Errorf("%w: duplicate partial signature for party %d",
				ErrCrypto, p.PartyID)
		}
		seen[p.PartyID] = true
		indices = append(indices, p.PartyID)
	}

	combined := suite.G1().Point().Null()
	for _, p := range partials {
		lambda := lagrangeCoefficient(p.PartyID, indices)
		combined.Add(combined, suite.G1().Point().Mul(lambda, p.Signature))
	}

	signers := append([]int(nil), indices...)
	sort.Ints(signers)

	return ThresholdSignature{
		Signature: combined,
		SchemeID:  s.params.SchemeID,
		Signers:   signers,
	}, nil
}

// Verify checks the pairing equation e(signature, g2) == e(H(message), pk).
// A false return means the signature does not verify; an error means the
// inputs could not be checked at all.
func (s *Scheme) Verify(message []byte, sig ThresholdSignature, pub ThresholdPublicKey) (bool, error) {
	if sig.SchemeID != s.params.SchemeID {
		return false, fmt.Errorf("%w: signature belongs to scheme %s, engine runs scheme %s",
			ErrSchemeMismatch, sig.SchemeID, s.params.SchemeID)
	}
	if pub.SchemeID != s.params.SchemeID {
		return false, fmt.Errorf("%w: public key belongs to scheme %s, engine runs scheme %s",
			ErrSchemeMismatch, pub.SchemeID, s.params.SchemeID)
	}
	if len(sig.Signers) < s.params.Threshold {
		return false, fmt.Errorf("%w: signature carries %d signers, need %d",
			ErrThresholdNotMet, len(sig.Signers), s.params.Threshold)
	}
	if sig.Signature == nil || pub.PublicKey == nil {
		return false, fmt.Errorf("%w: signature or public key carries no point", ErrCrypto)
	}

	hm, err := s.hashToPoint(message)
	if err != nil {
		return false, err
	}

	left := suite.Pair(sig.Signature, suite.G2().Point().Base())
	right := suite.Pair(hm, pub.PublicKey)
	return left.Equal(right), nil
}

// hashToPoint maps a message onto the signature group, framing it with the
// scheme identifier for domain separation.
func (s *Scheme) hashToPoint(message []byte) (kyber.Point, error) {
	hashable, ok := suite.G1().Point().(hashablePoint)
	if !ok {
		return nil, fmt.Errorf("%w: signature group does not support hash-to-curve", ErrCrypto)
	}
	framed := make([]byte, 0, len(s.params.SchemeID)+len(message))
	framed = append(framed, s.params.SchemeID[:]...)
	framed = append(framed, message...)
	return hashable.Hash(framed), nil
}

// lagrangeCoefficient evaluates party i's Lagrange basis polynomial at zero
// over the given index set: the product of x_j / (x_j - x_i) for all j != i.
// Indices must be distinct and non-zero.
func lagrangeCoefficient(i int, indices []int) kyber.Scalar {
	num := suite.G1().Scalar().One()
	den := suite.G1().Scalar().One()
	xi := suite.G1().Scalar().SetInt64(int64(i))
	for _, j := range indices {
		if j == i {
			continue
		}
		xj := suite.G1().Scalar().SetInt64(int64(j))
		num.Mul(num, xj)
		den.Mul(den, suite.G1().Scalar().Sub(xj, xi))
	}
	return num.Div(num, den)
}
