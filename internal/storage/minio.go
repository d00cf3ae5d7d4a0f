package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinioStore stores objects in an S3-compatible bucket.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
	now           func() time.Time
}

// NewMinioStore wraps an existing client. When publicBaseURL is empty the
// client's endpoint URL plus the bucket name is used.
func NewMinioStore(client *minio.Client, bucket, publicBaseURL string, logger *slog.Logger) *MinioStore {
	if publicBaseURL == "" {
		publicBaseURL = joinURL(client.EndpointURL().String(), bucket)
	}
	return &MinioStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		logger:        logger,
		now:           time.Now,
	}
}

// EnsureBucket creates the bucket on first start.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("Created storage bucket", "bucket", s.bucket)
	return nil
}

func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: CacheControlNoCache,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", path, err)
	}

	s.logger.Debug("Stored object", "bucket", s.bucket, "path", path, "size", info.Size, "etag", info.ETag)
	return withVersion(s.URL(path), s.now()), nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *MinioStore) URL(path string) string {
	return joinURL(s.publicBaseURL, path)
}
