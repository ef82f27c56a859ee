// internal/storage/storage.go
package storage

import (
	"context"
	"io"

	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
)

// Store abstracts where uploaded bytes live. Callers never see which backend
// served a request except through the Type value recorded on the document.
type Store interface {
	// Save writes the file under the given name and returns its storage path.
	Save(ctx context.Context, fileName string, r io.Reader) (string, error)
	// Open returns the stored bytes for a previously saved path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove deletes stored bytes. Used for the no-orphaned-files cleanup.
	Remove(ctx context.Context, path string) error
	// Type reports the backend identifier recorded on documents.
	Type() string
}

// Select picks the backend: S3 when credentials are configured, local disk
// otherwise.
func Select(ctx context.Context, cfg config.StorageConfig, region string, log logger.Logger) (Store, error) {
	if cfg.S3Configured() {
		s3Region := cfg.S3.Region
		if s3Region == "" {
			s3Region = region
		}
		store, err := NewS3Store(ctx, cfg.S3.Bucket, s3Region)
		if err != nil {
			return nil, err
		}
		log.Info("using S3 storage backend", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
			"region": s3Region,
		})
		return store, nil
	}

	store, err := NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	log.Info("using local storage backend", map[string]interface{}{
		"dir": cfg.UploadDir,
	})
	return store, nil
}
