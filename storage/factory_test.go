package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory() *StorageBackendFactory {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStorageBackendFactory(logger)
}

func TestStorageBackendForSchemes(t *testing.T) {
	factory := newTestFactory()
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		uri         string
		expectError bool
		backendName string
	}{
		{
			name:        "file backend",
			uri:         "file://" + tmpDir,
			expectError: false,
			backendName: "file-",
		},
		{
			name:        "ipfs backend",
			uri:         "ipfs://localhost:5001/",
			expectError: false,
			backendName: "ipfs-localhost-5001",
		},
		{
			name:        "ipfs backend default port",
			uri:         "ipfs://localhost/",
			expectError: false,
			backendName: "ipfs-localhost-5001",
		},
		{
			name:        "s3 backend",
			uri:         "s3://my-bucket/attestations/?region=eu-west-1",
			expectError: false,
			backendName: "s3-my-bucket",
		},
		{
			name:        "vault backend",
			uri:         "vault://localhost:8200/secret/attestations?token=test-token",
			expectError: false,
			backendName: "vault-secret-attestations",
		},
		{
			name:        "vault backend without token",
			uri:         "vault://localhost:8200/secret/attestations",
			expectError: true,
		},
		{
			name:        "vault backend without mount",
			uri:         "vault://localhost:8200?token=test-token",
			expectError: true,
		},
		{
			name:        "unsupported scheme",
			uri:         "ftp://example.com/data",
			expectError: true,
		},
		{
			name:        "empty file path",
			uri:         "file://",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(interfaces.StorageBackendLocation(tt.uri))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err, "Backend creation should succeed for %s", tt.uri)
			assert.Contains(t, backend.Name(), tt.backendName)
		})
	}
}

func TestCreateMultiBackendSkipsInvalid(t *testing.T) {
	factory := newTestFactory()
	tmpDir := t.TempDir()

	uris := []interfaces.StorageBackendLocation{
		interfaces.StorageBackendLocation("file://" + tmpDir),
		"ftp://not-supported.example.com/",
	}

	backend, err := factory.CreateMultiBackend(uris)
	require.NoError(t, err, "Multi-backend should be created from the valid URIs")
	assert.Equal(t, "multi-storage", backend.Name())
}

func TestCreateMultiBackendAllInvalid(t *testing.T) {
	factory := newTestFactory()

	uris := []interfaces.StorageBackendLocation{
		"ftp://one.example.com/",
		"gopher://two.example.com/",
	}

	_, err := factory.CreateMultiBackend(uris)
	assert.Error(t, err, "Multi-backend creation should fail when no URI is usable")
}
