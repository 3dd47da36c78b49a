// Package main (cmd/attestor-cli) implements a client for the coordinator's
// attestation API.
//
// The client provides command-line tools for requesters, attestors, and
// external verifiers. It speaks the coordinator's JSON API and prints every
// response as JSON, one document per line, so output can be piped into
// further tooling.
//
// The main commands:
//
//	scheme     - Print the coordinator's signing scheme (parameters and
//	             master public key), enabling offline verification.
//
//	credential - Build an unsigned W3C verifiable credential document from
//	             issuer, subject, type, and a claims file.
//
//	submit     - Submit a credential for multi-party attestation, naming the
//	             attestors allowed to respond and the approval threshold.
//
//	status     - Show a request's progress: approvals, rejections, and
//	             whether the quorum completed.
//
//	result     - Fetch the threshold-signed result of a completed request.
//
//	attest     - Record one attestor's approval or rejection. An approval
//	             contributes a partial signature; the decision that reaches
//	             the threshold returns the combined result inline.
//
//	verify     - Check a result document against a credential using the
//	             coordinator's verification endpoint.
//
//	did-keygen - Generate a did:key (ed25519) or did:ethr (secp256k1)
//	             identifier with its controlling private key.
//
// Attestor decisions are accepted on behalf of the named attestor without
// per-request authentication; deployments are expected to place the
// coordinator behind an authenticating proxy.
package main
