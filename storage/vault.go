package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/hashicorp/vault/api"
)

// VaultBackend implements a storage backend using HashiCorp Vault's KV v2
// secrets engine. Attestation results and credential backups stored here
// benefit from Vault's encryption at rest and audit logging.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault storage backend authenticated with the
// given token.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: Vault mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "attestations")
//   - token: Vault token with read/write access to the data path
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.TrimPrefix(dataPath, "/")
	dataPath = strings.TrimSuffix(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Fetch retrieves data from Vault by its content identifier and type.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	contentIDStr := id.String()

	path := b.getSecretPath(id, contentType)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("Content not found in Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, interfaces.ErrContentNotFound
	}

	// KV v2 wraps the payload in a "data" envelope.
	data, ok := secret.Data["data"]
	if !ok {
		b.log.Error("Invalid data format in Vault response",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data.(map[string]interface{})["content"]
	if !ok {
		b.log.Error("Content key not found in Vault data",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	contentStr, ok := content.(string)
	if !ok {
		b.log.Error("Invalid content format in Vault data",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, fmt.Errorf("invalid content format in Vault data")
	}

	b.log.Info("Successfully fetched content from Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return []byte(contentStr), nil
}

// Store saves data to Vault and returns its content identifier.
// The content ID is the SHA-256 hash of the data.
func (b *VaultBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	start := time.Now()

	id := interfaces.ComputeID(data)
	contentIDStr := id.String()

	path := b.getSecretPath(id, contentType)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	}

	_, err := b.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return id, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Info("Successfully stored content in Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return id, nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// getSecretPath generates a Vault KV v2 path for a content ID and type.
func (b *VaultBackend) getSecretPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", b.mountPath, b.dataPath, contentType.String(), id.String())
}
