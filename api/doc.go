/*
Package api defines the request and response types shared by the attestation
coordinator's HTTP server and its clients.

The API is split in two surfaces:

 1. Attestation API - submitting requests, recording attestor decisions,
    querying status and results, and verifying threshold signatures.
 2. Admin API - recovery-share submission used to unlock the coordinator's
    key material at startup.

# Attestation API

The AttestationService interface names the six operations every transport
must provide. The server side implements it on top of the coordinator; the
clients subpackage implements it over HTTP. All payloads are JSON with
snake_case field names, and every non-2xx response carries an ErrorResponse
body.

HTTP status codes map onto coordinator errors:

  - 400 for structurally invalid requests
  - 404 for unknown requests or attestors
  - 409 for scheme mismatches and duplicate submissions
  - 410 for requests past their expiry window

# Admin API

During recovery bootstrap the server only exposes the admin endpoints.
Admins authenticate by signing the request path and body with their
registered ECDSA key; the signature travels in the X-Admin-Signature
header next to X-Admin-ID. Once enough recovery shares have been
submitted, the coordinator unlocks and the attestation API comes up.
*/
package api
