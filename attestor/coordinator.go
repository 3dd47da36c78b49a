package attestor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

var (
	// ErrInvalidRequest is returned when an attestation request fails
	// structural validation.
	ErrInvalidRequest = errors.New("invalid attestation request")

	// ErrRequestNotFound is returned for operations against a request the
	// coordinator does not hold in its pending set.
	ErrRequestNotFound = errors.New("attestation request not found")

	// ErrRequestExists is returned when submitting a request whose ID is
	// already registered.
	ErrRequestExists = errors.New("attestation request already exists")

	// ErrRequestExpired is returned for operations against a request past its
	// expiry time. Expiry is checked on access, not by a background sweep.
	ErrRequestExpired = errors.New("attestation request expired")

	// ErrNoKeyShare is returned when an attestor has no key share bound.
	ErrNoKeyShare = errors.New("no key share bound for attestor")

	// ErrShareAlreadyBound is returned when a binding would overwrite an
	// existing attestor-to-share assignment.
	ErrShareAlreadyBound = errors.New("key share already bound")
)

// requestState is one pending request and its collected attestations.
// The embedded mutex serializes all operations touching this request;
// different requests proceed independently.
type requestState struct {
	mu           sync.Mutex
	request      AttestationRequest
	attestations []Attestation
	retired      bool
}

// finishedRequest retains the outcome of a retired request for result
// retrieval and status queries.
type finishedRequest struct {
	snapshot RequestSnapshot
	result   *AttestationResult
}

// Coordinator tracks attestation requests, collects partial signatures from
// approving attestors, and combines them into threshold signatures once a
// quorum is reached. It delegates all curve arithmetic to the threshold
// scheme and never performs network or disk I/O itself.
type Coordinator struct {
	scheme    *threshold.Scheme
	publicKey threshold.ThresholdPublicKey
	directory interfaces.AttestorDirectory
	registry  interfaces.CredentialRegistry
	log       *slog.Logger

	mu       sync.RWMutex
	requests map[interfaces.RequestID]*requestState
	finished map[interfaces.RequestID]*finishedRequest
	shares   map[interfaces.AttestorID]threshold.KeyShare
	parties  map[int]interfaces.AttestorID
}

// New creates a coordinator for the given scheme. The registry is optional;
// when present it receives fire-and-forget lifecycle updates. The directory
// is consulted on every attestation to confirm the attestor exists.
func New(scheme *threshold.Scheme, publicKey threshold.ThresholdPublicKey, directory interfaces.AttestorDirectory, registry interfaces.CredentialRegistry, log *slog.Logger) *Coordinator {
	return &Coordinator{
		scheme:    scheme,
		publicKey: publicKey,
		directory: directory,
		registry:  registry,
		log:       log,
		requests:  make(map[interfaces.RequestID]*requestState),
		finished:  make(map[interfaces.RequestID]*finishedRequest),
		shares:    make(map[interfaces.AttestorID]threshold.KeyShare),
		parties:   make(map[int]interfaces.AttestorID),
	}
}

// SchemeParams returns the parameters of the scheme this coordinator signs
// under.
func (c *Coordinator) SchemeParams() threshold.SchemeParameters {
	return c.scheme.Params()
}

// PublicKey returns the threshold public key verifiers use against results
// produced by this coordinator.
func (c *Coordinator) PublicKey() threshold.ThresholdPublicKey {
	return c.publicKey
}

// BindShares establishes the attestor-to-key-share mapping. The mapping is
// injective and write-once: rebinding an attestor or reusing a party index
// fails, and no share from a foreign scheme is accepted. On any validation
// failure nothing is bound.
func (c *Coordinator) BindShares(bindings map[interfaces.AttestorID]threshold.KeyShare) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := c.scheme.Params()
	incoming := make(map[int]interfaces.AttestorID, len(bindings))

	for attestorID, share := range bindings {
		if share.SchemeID != params.SchemeID {
			return fmt.Errorf("%w: share for attestor %s belongs to scheme %s",
				threshold.ErrSchemeMismatch, attestorID, share.SchemeID)
		}
		if share.PartyID < 1 || share.PartyID > params.TotalParties {
			return fmt.Errorf("%w: party id %d outside [1, %d]",
				threshold.ErrCrypto, share.PartyID, params.TotalParties)
		}
		if _, bound := c.shares[attestorID]; bound {
			return fmt.Errorf("%w: attestor %s", ErrShareAlreadyBound, attestorID)
		}
		if holder, used := c.parties[share.PartyID]; used {
			return fmt.Errorf("%w: party %d is held by attestor %s",
				ErrShareAlreadyBound, share.PartyID, holder)
		}
		if holder, dup := incoming[share.PartyID]; dup {
			return fmt.Errorf("%w: party %d bound to both %s and %s",
				ErrShareAlreadyBound, share.PartyID, holder, attestorID)
		}
		incoming[share.PartyID] = attestorID
	}

	for attestorID, share := range bindings {
		c.shares[attestorID] = share
		c.parties[share.PartyID] = attestorID
	}

	c.log.Info("Bound key shares to attestors",
		slog.Int("count", len(bindings)),
		slog.String("scheme_id", params.SchemeID.String()))

	return nil
}

// SubmitRequest validates and registers a new attestation request with an
// empty attestation list, returning its ID. An already-expired request is
// rejected outright.
func (c *Coordinator) SubmitRequest(request AttestationRequest) (interfaces.RequestID, error) {
	if err := request.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if !now.Before(request.ExpiresAt) {
		return "", fmt.Errorf("%w: expires_at %s is not in the future",
			ErrRequestExpired, request.ExpiresAt.Format(time.RFC3339))
	}

	if request.ID == "" {
		request.ID = NewRequestID()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}

	c.mu.Lock()
	if _, pending := c.requests[request.ID]; pending {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrRequestExists, request.ID)
	}
	if _, done := c.finished[request.ID]; done {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrRequestExists, request.ID)
	}
	c.requests[request.ID] = &requestState{request: request}
	c.mu.Unlock()

	c.registerCredential(request)

	c.log.Info("Attestation request submitted",
		slog.String("request_id", string(request.ID)),
		slog.String("credential_id", request.Credential.ID),
		slog.Int("threshold", request.Threshold),
		slog.Int("required_attestors", len(request.RequiredAttestors)),
		slog.Time("expires_at", request.ExpiresAt))

	return request.ID, nil
}

// ProcessAttestation records one attestor's decision on a pending request.
// Approvals produce a partial signature over the credential's canonical
// bytes using the attestor's bound key share; rejections are recorded
// without one. On any failure the request state is left unchanged.
func (c *Coordinator) ProcessAttestation(requestID interfaces.RequestID, attestorID interfaces.AttestorID, approved bool, verifiedClaims map[string]any, metadata map[string]string) error {
	state, err := c.lookupState(requestID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.retired {
		return c.retiredError(requestID)
	}
	if time.Now().After(state.request.ExpiresAt) {
		c.retireExpired(state)
		return fmt.Errorf("%w: %s", ErrRequestExpired, requestID)
	}

	if _, err := c.directory.Attestor(attestorID); err != nil {
		return err
	}
	if !state.request.Requires(attestorID) {
		return fmt.Errorf("%w: attestor %s is not named by request %s",
			interfaces.ErrAttestorNotFound, attestorID, requestID)
	}

	attestation := Attestation{
		ID:             uuid.New(),
		RequestID:      requestID,
		AttestorID:     attestorID,
		VerifiedClaims: verifiedClaims,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}

	if approved {
		c.mu.RLock()
		share, bound := c.shares[attestorID]
		c.mu.RUnlock()
		if !bound {
			return fmt.Errorf("%w: %s", ErrNoKeyShare, attestorID)
		}

		canonical, err := state.request.Credential.CanonicalJSON()
		if err != nil {
			return err
		}

		partial, err := c.scheme.PartialSign(canonical, share)
		if err != nil {
			return err
		}

		attestation.Status = AttestationApproved
		attestation.PartialSignature = &partial
	} else {
		attestation.Status = AttestationRejected
	}

	state.attestations = append(state.attestations, attestation)

	c.log.Info("Recorded attestation",
		slog.String("request_id", string(requestID)),
		slog.String("attestor_id", string(attestorID)),
		slog.String("status", string(attestation.Status)))

	return nil
}

// TryCompleteAttestation combines the collected partial signatures into a
// threshold signature if enough distinct attestors have approved. It returns
// nil with no error while the request is below threshold. On success the
// request is retired from the pending set, so a second call reports
// ErrRequestNotFound rather than recomputing.
func (c *Coordinator) TryCompleteAttestation(requestID interfaces.RequestID) (*AttestationResult, error) {
	state, err := c.lookupState(requestID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.retired {
		return nil, c.retiredError(requestID)
	}
	if time.Now().After(state.request.ExpiresAt) {
		c.retireExpired(state)
		return nil, fmt.Errorf("%w: %s", ErrRequestExpired, requestID)
	}

	// One partial per attestor: duplicate responses are tolerated as
	// bookkeeping but never fed to the combiner twice.
	seen := make(map[interfaces.AttestorID]struct{})
	partials := make([]threshold.PartialSignature, 0, state.request.Threshold)
	participating := make([]interfaces.AttestorID, 0, state.request.Threshold)

	for _, att := range state.attestations {
		if att.Status != AttestationApproved || att.PartialSignature == nil {
			continue
		}
		if _, dup := seen[att.AttestorID]; dup {
			continue
		}
		seen[att.AttestorID] = struct{}{}
		partials = append(partials, *att.PartialSignature)
		participating = append(participating, att.AttestorID)
	}

	if len(partials) < state.request.Threshold {
		return nil, nil
	}

	signature, err := c.scheme.Combine(partials)
	if err != nil {
		return nil, err
	}

	sort.Slice(participating, func(i, j int) bool { return participating[i] < participating[j] })

	result := &AttestationResult{
		RequestID:              requestID,
		ThresholdSignature:     &signature,
		ParticipatingAttestors: participating,
		Status:                 ResultCompleted,
		CreatedAt:              time.Now().UTC(),
		Metadata: map[string]string{
			"threshold_met":      "true",
			"total_attestations": strconv.Itoa(len(state.attestations)),
		},
	}

	c.retire(state, result)
	c.updateRegistry(state.request, len(participating))

	c.log.Info("Attestation request completed",
		slog.String("request_id", string(requestID)),
		slog.Int("participating_attestors", len(participating)),
		slog.Int("threshold", state.request.Threshold))

	return cloneResult(result), nil
}

// VerifyAttestationResult checks the result's threshold signature against
// the credential's canonical bytes and the coordinator's public key. A
// result without a signature verifies to false, not an error.
func (c *Coordinator) VerifyAttestationResult(result *AttestationResult, credential identity.Credential) (bool, error) {
	if result == nil || result.ThresholdSignature == nil {
		return false, nil
	}

	canonical, err := credential.CanonicalJSON()
	if err != nil {
		return false, err
	}

	return c.scheme.Verify(canonical, *result.ThresholdSignature, c.publicKey)
}

// RequestStatus returns a point-in-time snapshot of a request, pending or
// retired. Expiry is applied on access like every other operation.
func (c *Coordinator) RequestStatus(requestID interfaces.RequestID) (RequestSnapshot, error) {
	c.mu.RLock()
	state, pending := c.requests[requestID]
	done, finishedOK := c.finished[requestID]
	c.mu.RUnlock()

	if pending {
		state.mu.Lock()
		defer state.mu.Unlock()

		if !state.retired {
			if time.Now().After(state.request.ExpiresAt) {
				c.retireExpired(state)
				return c.finishedSnapshot(requestID)
			}
			return snapshotLocked(state, ResultInProgress), nil
		}
		return c.finishedSnapshot(requestID)
	}

	if finishedOK {
		return done.snapshot, nil
	}

	return RequestSnapshot{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
}

// Result returns the outcome of a retired request. Pending requests have no
// result yet; asking for one reports ErrRequestNotFound.
func (c *Coordinator) Result(requestID interfaces.RequestID) (*AttestationResult, error) {
	c.mu.RLock()
	done, ok := c.finished[requestID]
	c.mu.RUnlock()

	if !ok || done.result == nil {
		return nil, fmt.Errorf("%w: no result for %s", ErrRequestNotFound, requestID)
	}

	return cloneResult(done.result), nil
}

// lookupState fetches the pending state for a request, translating retired
// and unknown requests into the appropriate error.
func (c *Coordinator) lookupState(requestID interfaces.RequestID) (*requestState, error) {
	c.mu.RLock()
	state, ok := c.requests[requestID]
	c.mu.RUnlock()

	if ok {
		return state, nil
	}

	return nil, c.retiredError(requestID)
}

// retiredError distinguishes expired requests from truly unknown ones.
func (c *Coordinator) retiredError(requestID interfaces.RequestID) error {
	c.mu.RLock()
	done, ok := c.finished[requestID]
	c.mu.RUnlock()

	if ok && done.snapshot.Status == ResultExpired {
		return fmt.Errorf("%w: %s", ErrRequestExpired, requestID)
	}
	return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
}

// retire moves a request from the pending set to the finished set.
// Callers must hold state.mu.
func (c *Coordinator) retire(state *requestState, result *AttestationResult) {
	state.retired = true

	done := &finishedRequest{
		snapshot: snapshotLocked(state, result.Status),
		result:   result,
	}

	c.mu.Lock()
	delete(c.requests, state.request.ID)
	c.finished[state.request.ID] = done
	c.mu.Unlock()
}

// retireExpired retires a request past its expiry window with an Expired
// result carrying no signature. Callers must hold state.mu.
func (c *Coordinator) retireExpired(state *requestState) {
	result := &AttestationResult{
		RequestID:              state.request.ID,
		ParticipatingAttestors: []interfaces.AttestorID{},
		Status:                 ResultExpired,
		CreatedAt:              time.Now().UTC(),
		Metadata:               map[string]string{"reason": "request expired"},
	}

	c.retire(state, result)

	c.log.Info("Attestation request expired",
		slog.String("request_id", string(state.request.ID)),
		slog.Time("expired_at", state.request.ExpiresAt))
}

// finishedSnapshot serves the retained snapshot for a retired request.
func (c *Coordinator) finishedSnapshot(requestID interfaces.RequestID) (RequestSnapshot, error) {
	c.mu.RLock()
	done, ok := c.finished[requestID]
	c.mu.RUnlock()

	if !ok {
		return RequestSnapshot{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return done.snapshot, nil
}

// registerCredential records the credential on the registry as pending.
// Registry failures are logged and never block attestation flow.
func (c *Coordinator) registerCredential(request AttestationRequest) {
	if c.registry == nil {
		return
	}

	canonical, err := request.Credential.CanonicalJSON()
	if err != nil {
		c.log.Warn("Failed to canonicalize credential for registry",
			slog.String("request_id", string(request.ID)),
			"err", err)
		return
	}

	entry := interfaces.CredentialEntry{
		ID:             request.Credential.CredentialID(),
		Issuer:         request.Credential.Issuer,
		Subject:        request.Credential.Subject.ID,
		CredentialType: request.Credential.PrimaryType(),
		CredentialHash: interfaces.ComputeID(canonical).String(),
		RequiredQuorum: request.Threshold,
		ExpiresAt:      request.Credential.ExpirationDate,
	}

	if err := c.registry.Register(entry); err != nil {
		c.log.Warn("Failed to register credential",
			slog.String("credential_id", string(entry.ID)),
			"err", err)
	}
}

// updateRegistry reports the final signature count to the registry.
// Fire-and-forget: failures do not roll back the completed attestation.
func (c *Coordinator) updateRegistry(request AttestationRequest, signatureCount int) {
	if c.registry == nil {
		return
	}

	id := request.Credential.CredentialID()
	if err := c.registry.AddAttestation(id, signatureCount, request.Threshold); err != nil {
		c.log.Warn("Failed to update credential registry",
			slog.String("credential_id", string(id)),
			slog.Int("signature_count", signatureCount),
			"err", err)
	}
}

// snapshotLocked builds a defensive copy of the request's progress.
// Callers must hold state.mu.
func snapshotLocked(state *requestState, status ResultStatus) RequestSnapshot {
	attestations := make([]Attestation, len(state.attestations))
	copy(attestations, state.attestations)

	approvals, rejections := 0, 0
	for _, att := range state.attestations {
		switch att.Status {
		case AttestationApproved:
			approvals++
		case AttestationRejected:
			rejections++
		}
	}

	return RequestSnapshot{
		Request:      state.request,
		Status:       status,
		Approvals:    approvals,
		Rejections:   rejections,
		Attestations: attestations,
	}
}

// cloneResult returns a copy whose slices and maps are detached from the
// coordinator's retained record.
func cloneResult(result *AttestationResult) *AttestationResult {
	clone := *result

	clone.ParticipatingAttestors = make([]interfaces.AttestorID, len(result.ParticipatingAttestors))
	copy(clone.ParticipatingAttestors, result.ParticipatingAttestors)

	if result.Metadata != nil {
		clone.Metadata = make(map[string]string, len(result.Metadata))
		for k, v := range result.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}
