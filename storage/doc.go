// Package storage provides a content-addressed storage system with pluggable backends.
//
// The storage package offers a unified interface for storing and retrieving content
// identified by SHA-256 hash across multiple storage backends:
//
//   - File system storage for local development and testing
//   - S3-compatible storage for cloud deployments
//   - IPFS storage for decentralized content distribution
//   - Vault storage for attestation results and credential backups
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/attestord/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/
//   - vault://vault.example.com:8200/secret/attestations?token=s.xxxx
//
// # Content Addressing
//
// Content is stored and retrieved using content addressing, where the content
// identifier is the SHA-256 hash of the data. Different content types
// (credentials, attestation results, and backups) are stored in separate
// namespaces, so the same bytes stored under two types never collide.
//
// # Types and Interfaces
//
// ContentID represents a unique identifier for any content in the system:
//
//	type ContentID [32]byte
//
// ContentType indicates what kind of content is being stored/retrieved:
//
//	type ContentType int
//
//	const (
//	    CredentialContent ContentType = iota
//	    ResultContent
//	    BackupContent
//	)
//
// # Vault Storage
//
// The VaultBackend stores content in HashiCorp Vault's KV v2 secrets engine
// under {mount}/data/{path}/{type}/{content_id}. A token with read/write
// access to the data path is passed as a query parameter:
//
//	vault://vault.example.com:8200/secret/attestations?token=s.xxxx
//
// # Multi-Backend Example
//
//	factory := storage.NewStorageBackendFactory(logger)
//
//	locations := []interfaces.StorageBackendLocation{
//	    "file:///var/lib/attestord/",
//	    "ipfs://localhost:5001/",
//	    "vault://vault.example.com:8200/secret/attestations?token=s.xxxx",
//	}
//	multiBackend, err := factory.CreateMultiBackend(locations)
//
// The multi-backend replicates writes to every available backend and serves
// reads from the first backend holding the content.
package storage
