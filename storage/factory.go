package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// StorageBackendFactory creates storage backends from URI strings and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StorageBackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS distributed storage
//   - vault:// - HashiCorp Vault KV v2 secrets engine
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StorageBackendFor(locationURI interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	u, err := url.Parse(string(locationURI))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return sf.createIPFSBackend(u)
	case "s3":
		return sf.createS3Backend(u)
	case "vault":
		return sf.createVaultBackend(u)
	case "file":
		return sf.createFileBackend(u)
	default:
		return nil, fmt.Errorf("unsupported backend scheme: %s", u.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of location URIs.
// The multi-backend aggregates all valid backends, providing redundancy for storage operations.
// It will store content to all available backends and fetch from the first one that has the content.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiBackend(locationURIs []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locationURIs))

	for _, uri := range locationURIs {
		backend, err := sf.StorageBackendFor(uri)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("location_uri", string(uri)))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/?gateway=true&timeout=30s
// The backend can connect to either an IPFS node or a gateway.
func (sf *StorageBackendFactory) createIPFSBackend(u *url.URL) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	query := u.Query()
	useGateway := query.Get("gateway") == "true"

	timeout := query.Get("timeout")
	if timeout == "" {
		timeout = "30s"
	}

	return NewIPFSBackend(host, port, useGateway, timeout, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
// The backend supports both public buckets (read-only) and authenticated access.
func (sf *StorageBackendFactory) createS3Backend(u *url.URL) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", u.String()))

	bucketName := u.Host
	path := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		sf.log.Debug("Using embedded credentials for write access")
	} else {
		sf.log.Debug("No credentials provided, S3 bucket assumed to be public, write operations may fail")
	}

	return NewS3Backend(bucketName, path, region, endpoint, accessKey, secretKey, sf.log)
}

// createVaultBackend creates a HashiCorp Vault storage backend.
// URI format: vault://host:port/mount/data-path?token=s.xxxx&tls=disabled
// The first path segment is the KV v2 mount, the remainder is the data path.
// TLS is assumed unless tls=disabled is set.
func (sf *StorageBackendFactory) createVaultBackend(u *url.URL) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("uri", u.Redacted()))

	query := u.Query()

	scheme := "https"
	if query.Get("tls") == "disabled" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("invalid Vault URI format, expected vault://host:port/mount/path")
	}

	mountPath := parts[0]
	dataPath := "attestations"
	if len(parts) == 2 && parts[1] != "" {
		dataPath = parts[1]
	}

	token := query.Get("token")
	if token == "" {
		return nil, fmt.Errorf("vault URI requires a token query parameter")
	}

	return NewVaultBackend(address, mountPath, dataPath, token, sf.log)
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
// The backend stores content in a directory structure organized by content type.
func (sf *StorageBackendFactory) createFileBackend(u *url.URL) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		// Handle Windows-style paths like file://C:/path
		if strings.HasPrefix(u.Host, "C:") || strings.HasPrefix(u.Host, "D:") {
			path = u.Host + path
		} else {
			path = u.Host + "/" + strings.TrimPrefix(path, "/")
		}
	}

	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileBackend(path, sf.log)
}
