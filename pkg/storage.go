package pkg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m11312045/pneumatic-app/internal/config"
	"github.com/m11312045/pneumatic-app/internal/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewObjectStore builds the answer image store. For the local store the
// returned directory must be served at cfg.PublicBaseURL.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.ObjectStore, string, error) {
	switch cfg.Type {
	case "local":
		store := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
		logger.Info("Using local object store", "dir", store.Root())
		return store, store.Root(), nil
	case "minio", "":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create minio client: %w", err)
		}

		store := storage.NewMinioStore(client, cfg.Bucket, cfg.PublicBaseURL, logger)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		logger.Info("Using minio object store", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
