package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Content is stored in a directory structure organized by content type.
type FileBackend struct {
	baseDir     string
	prefixes    map[interfaces.ContentType]string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend rooted at baseDir, creating
// one subdirectory per content type if missing.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	prefixes := map[interfaces.ContentType]string{
		interfaces.CredentialContent: "credentials",
		interfaces.ResultContent:     "results",
		interfaces.BackupContent:     "backups",
	}
	for _, subdir := range prefixes {
		if err := os.MkdirAll(filepath.Join(baseDir, subdir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		prefixes:    prefixes,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves data from the file system by its content identifier and
// type. Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	filePath := b.getFilePath(id, contentType)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, interfaces.ErrContentNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves data to the file system and returns its content identifier,
// the SHA-256 hash of the data.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	filePath := b.getFilePath(id, contentType)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return id, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return id, fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("content_id", id.String()))

	return id, nil
}

// Available checks if the backend is accessible by verifying the base
// directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath generates a file path for a content ID and type.
func (b *FileBackend) getFilePath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	subdir := b.prefixes[contentType]
	return filepath.Join(b.baseDir, subdir, id.String())
}
