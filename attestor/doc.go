// Package attestor implements the attestation coordinator: the stateful
// protocol that collects approve/reject decisions from independent verifying
// parties and produces a combined threshold signature once a quorum of
// approvals is reached.
//
// # Request Lifecycle
//
// A caller submits an AttestationRequest naming a credential, the set of
// required attestors, and the approval threshold. Each attestor then responds
// through ProcessAttestation. Approvals carry a partial signature produced
// from that attestor's key share over the credential's canonical bytes;
// rejections are recorded without one. TryCompleteAttestation combines the
// partial signatures into a single threshold signature once enough distinct
// attestors have approved, emits an AttestationResult, and retires the
// request from the pending set. A completed request cannot be completed
// again.
//
// Requests expire passively: any operation against a request past its
// expires_at fails with ErrRequestExpired and retires the request. There is
// no background sweeper.
//
// # Concurrency
//
// The coordinator serializes operations per request while allowing different
// requests to proceed in parallel. Each pending request carries its own lock;
// the shared request table takes a coarser lock only for insert, lookup, and
// retire.
package attestor
