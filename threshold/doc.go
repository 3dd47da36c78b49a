// Package threshold implements a k-of-n BLS threshold signature engine over
// a pairing-friendly curve.
//
// A Scheme is created with a threshold and a total party count and carries a
// unique scheme identifier. GenerateShares draws a random secret scalar and
// splits it with a Shamir polynomial: party i (1-based) holds the evaluation
// f(i) as its private share, together with the matching public commitment.
// The master public key is the curve image of the secret itself and never
// requires the secret to be reassembled.
//
// Signing is non-interactive. Each party calls PartialSign, which maps the
// message onto the signature group with a hash-to-curve function
// domain-separated by the scheme identifier and multiplies the resulting
// point by the party's private scalar. Combine takes any quorum of partial
// signatures and interpolates them with Lagrange coefficients computed over
// the exact set of contributing party indices, yielding a signature that is
// identical regardless of which quorum produced it. Verify checks the
// bilinear pairing equation
//
//	e(signature, g2) == e(H(message), public_key)
//
// against the master public key, so verification never depends on which
// parties signed.
//
// Group roles follow the kyber BLS convention: message hashes and signatures
// live in G1, public keys and share commitments in G2.
//
// All operations are safe for concurrent use; schemes hold no mutable state
// after construction.
package threshold
