// Package storage publishes rendered graphs and exported documents to an
// artifact store.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/leak-analysis/pkg/config"
)

// ArtifactStore holds rendered graphs and exports under slash separated keys.
type ArtifactStore interface {
	// Put stores r under key. contentType may be empty.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns where key can be fetched from.
	URL(key string) string
}

// Backend names accepted in storage.type.
const (
	BackendLocal = "local"
	BackendCOS   = "cos"
)

// Open returns the store described by cfg. An empty type means local.
func Open(cfg *config.StorageConfig) (ArtifactStore, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Type == BackendCOS {
		return NewBucketStore(BucketOptions{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	}
	return NewDirStore(cfg.LocalPath)
}

// ValidateConfig checks that the selected backend has what it needs.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	switch cfg.Type {
	case "", BackendLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case BackendCOS:
		switch {
		case cfg.Bucket == "":
			return fmt.Errorf("COS bucket is required")
		case cfg.Region == "":
			return fmt.Errorf("COS region is required")
		case cfg.SecretID == "" || cfg.SecretKey == "":
			return fmt.Errorf("COS credentials are required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return nil
}
