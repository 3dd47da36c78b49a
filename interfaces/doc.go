// Package interfaces defines core interfaces and types for the decentralized
// identity attestation system, separating interface definitions from
// implementations.
//
// The package provides the contracts between the key components:
//
// # Directory and Registry Interfaces
//
// AttestorDirectory: Resolves attestor records for the coordinator, including
// DID lookup and capability checks against credential types.
//
// CredentialRegistry: Records credential lifecycle state (pending, active,
// revoked, expired, suspended) and flips credentials to active once an
// attestation quorum is reached.
//
// # Storage Interfaces
//
// StorageBackend: Provides content-addressed storage for credential
// documents, attestation results, and sealed key share backups across
// multiple backend types (file, S3, IPFS, Vault).
//
// StorageBackendFactory: Creates storage backends from URI strings and
// manages multi-backend configurations for redundant storage.
//
// # Identifier Types
//
// The package also defines the identifier types shared across services:
//
//   - ContentID: 32-byte SHA-256 hash for content addressing
//   - DID: W3C decentralized identifier with shape validation
//   - AttestorID / RequestID / CredentialID: opaque stable identifiers
//   - Capability: a class of claims an attestor is trusted to verify
package interfaces
