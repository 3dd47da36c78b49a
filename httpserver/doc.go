/*
Package httpserver implements the HTTP server for the attestation
coordinator.

It exposes the attestation API over which issuers submit credentials for
multi-party signing, attestors record their decisions, and anyone can check
request progress, fetch results, and verify threshold signatures against the
published scheme.

The package includes two main components:

1. Attestation API - The primary API for requests, decisions, and results
2. Admin API - A separate API for unlocking the key vault after a restart

# Attestation API Features

  - Attestation request submission with structural validation
  - Attestor decision recording with partial signature generation
  - Automatic signature combination once a request reaches its threshold
  - Request status and result queries
  - Threshold signature verification against the scheme public key
  - Health and diagnostics endpoints

# Admin API Features (vault recovery bootstrap)

  - Recovery share submission authenticated per admin
  - Unlock state monitoring
  - Startup coordination: the attestation API answers 503 until the vault
    bundle is reconstructed

# Startup Modes

The server runs in one of two modes, mirroring how the daemon obtained its
key material:

  - Direct mode: the share passphrase is supplied at startup, the key shares
    are opened immediately, and the attestation API is live from the first
    request.
  - Recovery mode: the server starts with only the admin API usable.
    Administrators each submit their signed recovery share; when the
    threshold is reached the vault bundle is reconstructed, the daemon opens
    the sealed key shares, and the attestation API comes up via
    SetAttestationHandler.

# Error Mapping

Coordinator errors surface with the status codes documented in the api
package: 400 for invalid requests, 404 for unknown requests and attestors,
409 for scheme mismatches and duplicates, and 410 for expired requests.
Every non-2xx response carries an api.ErrorResponse body.
*/
package httpserver
