package threshold

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v4/share"
	"go.dedis.ch/kyber/v4/sign/bdn"
)

func TestNewSchemeParameters(t *testing.T) {
	tests := []struct {
		name         string
		threshold    int
		totalParties int
		wantErr      bool
	}{
		{"2-of-3", 2, 3, false},
		{"1-of-1", 1, 1, false},
		{"all-must-sign", 5, 5, false},
		{"zero threshold", 0, 3, true},
		{"negative threshold", -1, 3, true},
		{"threshold above parties", 4, 3, true},
		{"zero parties", 1, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params, err := NewSchemeParameters(tc.threshold, tc.totalParties)
			if tc.wantErr {
				require.Error(t, err, "expected invalid parameters to be rejected")
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.threshold, params.Threshold)
			assert.Equal(t, tc.totalParties, params.TotalParties)
			assert.NotEqual(t, uuid.Nil, params.SchemeID, "scheme id should be assigned")
		})
	}
}

func TestSchemeIDsAreUnique(t *testing.T) {
	a, err := NewSchemeParameters(2, 3)
	require.NoError(t, err)
	b, err := NewSchemeParameters(2, 3)
	require.NoError(t, err)
	assert.NotEqual(t, a.SchemeID, b.SchemeID, "each scheme should get its own id")
}

func TestLoadSchemeRejectsBrokenParameters(t *testing.T) {
	valid, err := NewSchemeParameters(2, 3)
	require.NoError(t, err)

	_, err = LoadScheme(valid)
	require.NoError(t, err)

	missingID := valid
	missingID.SchemeID = uuid.Nil
	_, err = LoadScheme(missingID)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	badThreshold := valid
	badThreshold.Threshold = 4
	_, err = LoadScheme(badThreshold)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerateShares(t *testing.T) {
	scheme, err := NewScheme(3, 5)
	require.NoError(t, err)

	shares, pub := scheme.GenerateShares()
	require.Len(t, shares, 5, "one share per party")

	seen := make(map[int]bool)
	for i, ks := range shares {
		assert.Equal(t, i+1, ks.PartyID, "party ids should be 1-based and ordered")
		assert.False(t, seen[ks.PartyID], "party ids must be unique")
		seen[ks.PartyID] = true
		assert.Equal(t, scheme.Params().SchemeID, ks.SchemeID)

		require.NotNil(t, ks.PrivateShare)
		require.NotNil(t, ks.PublicShare)
		expected := suite.G2().Point().Mul(ks.PrivateShare, nil)
		assert.True(t, expected.Equal(ks.PublicShare), "public share must be the image of the private scalar")
	}

	assert.Equal(t, scheme.Params().SchemeID, pub.SchemeID)
	assert.Equal(t, 3, pub.Threshold)
	assert.Equal(t, 5, pub.TotalParties)
	require.NotNil(t, pub.PublicKey)
}

func TestGenerateSharesMatchesRecoveredPublicPoly(t *testing.T) {
	scheme, err := NewScheme(3, 5)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	pubShares := make([]*share.PubShare, 0, len(shares))
	for _, ks := range shares {
		pubShares = append(pubShares, &share.PubShare{I: ks.PartyID - 1, V: ks.PublicShare})
	}

	recovered, err := share.RecoverPubPoly(suite.G2(), pubShares, 3, 5)
	require.NoError(t, err)
	assert.True(t, recovered.Commit().Equal(pub.PublicKey),
		"master public key must match the recovered polynomial commitment")
}

func TestSignCombineVerify(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("credential canonical bytes")

	p1, err := scheme.PartialSign(message, shares[0])
	require.NoError(t, err)
	p2, err := scheme.PartialSign(message, shares[1])
	require.NoError(t, err)

	sig, err := scheme.Combine([]PartialSignature{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sig.Signers)
	assert.Equal(t, scheme.Params().SchemeID, sig.SchemeID)

	ok, err := scheme.Verify(message, sig, pub)
	require.NoError(t, err)
	assert.True(t, ok, "threshold signature must verify against the master public key")
}

func TestQuorumIndependence(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("quorum independence")

	partials := make([]PartialSignature, len(shares))
	for i, ks := range shares {
		p, err := scheme.PartialSign(message, ks)
		require.NoError(t, err)
		partials[i] = p
	}

	quorums := [][]PartialSignature{
		{partials[0], partials[1]},
		{partials[0], partials[2]},
		{partials[1], partials[2]},
		{partials[0], partials[1], partials[2]},
	}

	var first ThresholdSignature
	for i, quorum := range quorums {
		sig, err := scheme.Combine(quorum)
		require.NoError(t, err, "quorum %d should combine", i)

		ok, err := scheme.Verify(message, sig, pub)
		require.NoError(t, err)
		assert.True(t, ok, "quorum %d signature should verify", i)

		if i == 0 {
			first = sig
			continue
		}
		assert.True(t, first.Signature.Equal(sig.Signature),
			"every quorum must interpolate to the same signature point")
	}
}

func TestThresholdOneBehavesLikePlainSignature(t *testing.T) {
	scheme, err := NewScheme(1, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("single signer quorum")
	for _, ks := range shares {
		p, err := scheme.PartialSign(message, ks)
		require.NoError(t, err)

		sig, err := scheme.Combine([]PartialSignature{p})
		require.NoError(t, err)
		assert.Equal(t, []int{ks.PartyID}, sig.Signers)

		ok, err := scheme.Verify(message, sig, pub)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestAllPartiesMustSign(t *testing.T) {
	scheme, err := NewScheme(3, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("unanimous quorum")
	partials := make([]PartialSignature, 0, 3)
	for _, ks := range shares {
		p, err := scheme.PartialSign(message, ks)
		require.NoError(t, err)
		partials = append(partials, p)
	}

	_, err = scheme.Combine(partials[:2])
	assert.ErrorIs(t, err, ErrThresholdNotMet)

	sig, err := scheme.Combine(partials)
	require.NoError(t, err)
	ok, err := scheme.Verify(message, sig, pub)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCombineRejectsBadInput(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	shares, _ := scheme.GenerateShares()

	message := []byte("combine rejects")
	p1, err := scheme.PartialSign(message, shares[0])
	require.NoError(t, err)
	p2, err := scheme.PartialSign(message, shares[1])
	require.NoError(t, err)

	t.Run("below threshold", func(t *testing.T) {
		_, err := scheme.Combine([]PartialSignature{p1})
		assert.ErrorIs(t, err, ErrThresholdNotMet)
	})

	t.Run("duplicate party", func(t *testing.T) {
		_, err := scheme.Combine([]PartialSignature{p1, p1})
		assert.ErrorIs(t, err, ErrCrypto)
	})

	t.Run("foreign scheme id", func(t *testing.T) {
		foreign := p2
		foreign.SchemeID = uuid.New()
		_, err := scheme.Combine([]PartialSignature{p1, foreign})
		assert.ErrorIs(t, err, ErrSchemeMismatch)
	})

	t.Run("party id out of range", func(t *testing.T) {
		rogue := p2
		rogue.PartyID = 9
		_, err := scheme.Combine([]PartialSignature{p1, rogue})
		assert.ErrorIs(t, err, ErrCrypto)
	})

	t.Run("missing signature point", func(t *testing.T) {
		hollow := p2
		hollow.Signature = nil
		_, err := scheme.Combine([]PartialSignature{p1, hollow})
		assert.ErrorIs(t, err, ErrCrypto)
	})
}

func TestPartialSignRejectsForeignShare(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	other, err := NewScheme(2, 3)
	require.NoError(t, err)

	otherShares, _ := other.GenerateShares()
	_, err = scheme.PartialSign([]byte("msg"), otherShares[0])
	assert.ErrorIs(t, err, ErrSchemeMismatch)
}

func TestVerifyRejections(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("verify rejections")
	p1, err := scheme.PartialSign(message, shares[0])
	require.NoError(t, err)
	p2, err := scheme.PartialSign(message, shares[1])
	require.NoError(t, err)
	sig, err := scheme.Combine([]PartialSignature{p1, p2})
	require.NoError(t, err)

	t.Run("tampered message", func(t *testing.T) {
		ok, err := scheme.Verify([]byte("different bytes"), sig, pub)
		require.NoError(t, err)
		assert.False(t, ok, "signature over other bytes must not verify")
	})

	t.Run("wrong public key", func(t *testing.T) {
		forged := pub
		forged.PublicKey = suite.G2().Point().Pick(suite.RandomStream())
		ok, err := scheme.Verify(message, sig, forged)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("foreign signature scheme", func(t *testing.T) {
		foreign := sig
		foreign.SchemeID = uuid.New()
		_, err := scheme.Verify(message, foreign, pub)
		assert.ErrorIs(t, err, ErrSchemeMismatch)
	})

	t.Run("foreign key scheme", func(t *testing.T) {
		foreign := pub
		foreign.SchemeID = uuid.New()
		_, err := scheme.Verify(message, sig, foreign)
		assert.ErrorIs(t, err, ErrSchemeMismatch)
	})

	t.Run("too few signers recorded", func(t *testing.T) {
		trimmed := sig
		trimmed.Signers = []int{1}
		_, err := scheme.Verify(message, trimmed, pub)
		assert.ErrorIs(t, err, ErrThresholdNotMet)
	})

	t.Run("missing signature point", func(t *testing.T) {
		hollow := sig
		hollow.Signature = nil
		_, err := scheme.Verify(message, hollow, pub)
		assert.ErrorIs(t, err, ErrCrypto)
	})
}

// The combined signature must be a plain BLS signature over the framed
// message, so kyber's own verifier has to accept it.
func TestCombinedSignatureVerifiesUnderBLS(t *testing.T) {
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	shares, pub := scheme.GenerateShares()

	message := []byte("interoperable signature")
	p1, err := scheme.PartialSign(message, shares[1])
	require.NoError(t, err)
	p2, err := scheme.PartialSign(message, shares[2])
	require.NoError(t, err)
	sig, err := scheme.Combine([]PartialSignature{p1, p2})
	require.NoError(t, err)

	sigBytes, err := sig.Signature.MarshalBinary()
	require.NoError(t, err)

	schemeID := scheme.Params().SchemeID
	framed := append(append([]byte{}, schemeID[:]...), message...)
	assert.NoError(t, bdn.Verify(suite, pub.PublicKey, framed, sigBytes),
		"combined signature should satisfy the standard BLS pairing check")
}

func TestHashToPointDomainSeparation(t *testing.T) {
	a, err := NewScheme(2, 3)
	require.NoError(t, err)
	b, err := NewScheme(2, 3)
	require.NoError(t, err)

	message := []byte("same bytes, different schemes")

	ha1, err := a.hashToPoint(message)
	require.NoError(t, err)
	ha2, err := a.hashToPoint(message)
	require.NoError(t, err)
	hb, err := b.hashToPoint(message)
	require.NoError(t, err)

	assert.True(t, ha1.Equal(ha2), "hash-to-curve must be deterministic within a scheme")
	assert.False(t, ha1.Equal(hb), "hash-to-curve must differ across schemes")
}
