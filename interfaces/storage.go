package interfaces

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ContentID is a 32-byte SHA-256 hash uniquely identifying stored content.
type ContentID [32]byte

// NewContentIDFromBytes creates a content ID from a raw 32-byte slice.
func NewContentIDFromBytes(source []byte) (ContentID, error) {
	if len(source) != 32 {
		return ContentID{}, errors.New("invalid ContentID conversion from bytes: incorrect length")
	}

	var hash [32]byte
	copy(hash[:], source)
	return ContentID(hash), nil
}

// NewContentIDFromHex creates a content ID from a 64-character hex string,
// with or without a 0x prefix.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash [32]byte
	copy(hash[:], hashBytes)
	return ContentID(hash), nil
}

// ComputeID calculates the content ID of data.
func ComputeID(data []byte) ContentID {
	hash := sha256.Sum256(data)
	return ContentID(hash)
}

// String returns the hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte hash.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Equal compares two content IDs.
func (id ContentID) Equal(other ContentID) bool {
	return bytes.Equal(id[:], other[:])
}

// ContentType indicates the storage namespace content belongs to.
type ContentType int

const (
	// CredentialContent for verifiable credential documents.
	CredentialContent ContentType = iota
	// ResultContent for completed attestation results.
	ResultContent
	// BackupContent for sealed key share backups.
	BackupContent
)

// String returns the namespace name.
func (ct ContentType) String() string {
	switch ct {
	case CredentialContent:
		return "credential"
	case ResultContent:
		return "result"
	case BackupContent:
		return "backup"
	default:
		return "unknown"
	}
}

// StorageBackendLocation is a URI identifying a storage backend, in the
// form [scheme]://[auth@]host[:port][/path][?params].
type StorageBackendLocation string

// Validate parses the URI and checks the scheme is one the factory supports.
func (loc StorageBackendLocation) Validate() error {
	parsed, err := url.Parse(string(loc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "file", "s3", "ipfs", "vault":
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}
}

// String returns the URI string.
func (loc StorageBackendLocation) String() string {
	return string(loc)
}

var (
	// ErrContentNotFound is returned when requested content cannot be found
	// in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible, whether from network issues, authentication failures, or
	// service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or names an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides content-addressed data storage.
type StorageBackend interface {
	// Fetch retrieves data by content ID and type.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends from location URIs.
type StorageBackendFactory interface {
	// StorageBackendFor creates a backend from a URI.
	// Supports file://, s3://, ipfs://, and vault://.
	StorageBackendFor(locationURI StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates an aggregated storage backend that
	// replicates stores and races fetches across all reachable backends.
	CreateMultiBackend(locationURIs []StorageBackendLocation) (StorageBackend, error)
}
