package blob

import (
	"context"
	"fmt"

	"flighttracker/internal/platform/config"
)

// Storage backend names accepted by STORAGE_TYPE.
const (
	TypeMemory = "memory"
	TypeFS     = "fs"
	TypeS3     = "s3"
	TypeGCS    = "gcs"
)

// NewFromConfig builds the Store selected by cfg.Type.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemory(), nil
	case TypeFS, "":
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		return NewFileStore(dataDir)
	case TypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("STORAGE_BUCKET is required for S3 storage")
		}
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   cfg.Bucket,
			Region:   region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	case TypeGCS:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("STORAGE_BUCKET is required for GCS storage")
		}
		return newGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
