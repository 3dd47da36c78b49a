// Package main (cmd/attestord) implements the attestation coordinator daemon.
//
// The daemon serves HTTP endpoints for submitting credential attestation
// requests, collecting attestor decisions, combining partial signatures into
// threshold signatures, and verifying completed results. Key shares are
// loaded from a sealed bundle produced by the offline key ceremony and are
// never written to disk unsealed.
//
// The daemon supports two ways of obtaining the bundle passphrase:
//
//   - passphrase: The hex-encoded passphrase is passed directly via flag or
//     environment variable. The attestation API is available immediately.
//     Suitable for development environments.
//
//   - recovery: The passphrase is reconstructed from Shamir recovery shares
//     held by administrators. The daemon starts with only the admin and
//     health endpoints active, and enables the attestation API once a
//     threshold of administrators have submitted valid signed shares.
//
// In recovery mode each administrator authenticates requests with their
// ECDSA private key, and every share is additionally verified against the
// administrator's registered public key before it counts toward the
// threshold.
//
// Configuration is handled through command-line flags, with separate
// settings for the attestor roster, result archiving, HTTP endpoints,
// logging, and performance tuning.
//
// The daemon implements graceful shutdown on receiving termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection, and
// optional profiling endpoints.
//
// Example usage with a direct passphrase:
//
//	attestord --listen-addr=0.0.0.0:8080 \
//	    --bundle-file=./share-bundle.json \
//	    --attestors-file=./attestors.json \
//	    --unlock-mode=passphrase \
//	    --share-passphrase=0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef
//
// Example usage with admin recovery:
//
//	attestord --listen-addr=0.0.0.0:8080 \
//	    --bundle-file=./share-bundle.json \
//	    --attestors-file=./attestors.json \
//	    --unlock-mode=recovery \
//	    --admin-keys-file=./admins.json \
//	    --recovery-threshold=2
package main
