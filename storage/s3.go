package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Backend implements a storage backend using Amazon S3 or compatible services.
// It supports both public read-only access and authenticated write access.
type S3Backend struct {
	client         *s3.S3
	writeClient    *s3.S3
	bucketName     string
	prefix         string
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// NewS3Backend creates a new S3 storage backend.
// If accessKey and secretKey are provided, the backend will have write access.
// Otherwise, it will be read-only for publicly accessible objects.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}
	if accessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", accessKey, bucketName, prefix, region)
		if endpoint != "" {
			uri += fmt.Sprintf("&endpoint=%s", endpoint)
		}
	}

	baseCfg := aws.Config{
		Region: aws.String(region),
	}

	if endpoint != "" {
		baseCfg.Endpoint = aws.String(endpoint)
	}

	// Read operations need no credentials for public buckets.
	baseSess, err := session.NewSession(&baseCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	readClient := s3.New(baseSess)

	hasWriteAccess := accessKey != "" && secretKey != ""
	var writeClient *s3.S3

	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")

		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS write session: %w", err)
		}

		writeClient = s3.New(writeSess)
	} else {
		// May still work for public writable buckets; not recommended.
		writeClient = readClient
		log.Warn("No S3 credentials provided - write operations may fail unless bucket is public writable")
	}

	return &S3Backend{
		client:         readClient,
		writeClient:    writeClient,
		bucketName:     bucketName,
		prefix:         strings.TrimSuffix(prefix, "/"),
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Fetch retrieves an object from S3 by its content identifier and type.
// Returns ErrContentNotFound if the object doesn't exist.
func (b *S3Backend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	key := b.getObjectKey(id, contentType)
	contentIDStr := fmt.Sprintf("%x", id[:8])

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})

	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			b.log.Debug("Content not found in S3",
				slog.String("content_id", contentIDStr),
				slog.String("bucket", b.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("content_id", contentIDStr),
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		b.log.Error("Failed to read object body",
			slog.String("content_id", contentIDStr),
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched content from S3",
		slog.String("content_id", contentIDStr),
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store saves data to S3 and returns its content identifier.
// The identifier is the SHA-256 hash of the data.
// Objects are stored with public-read ACL by default.
func (b *S3Backend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	key := b.getObjectKey(id, contentType)

	_, err := b.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
		ACL:    aws.String("public-read"),
	})
	if err != nil {
		if !b.hasWriteAccess {
			return id, fmt.Errorf("failed to upload object to S3 (no write credentials provided): %w", err)
		}
		return id, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored content in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.String("content_id", id.String()))

	return id, nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})

	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

// getObjectKey generates an S3 object key based on content ID and type.
// Objects are namespaced by content type so credentials, results, and
// backups never collide within a shared bucket prefix.
func (b *S3Backend) getObjectKey(id interfaces.ContentID, contentType interfaces.ContentType) string {
	typed := path.Join(contentType.String(), id.String())

	if b.prefix == "" {
		return typed
	}

	return path.Join(b.prefix, typed)
}
