// Package storage uploads local video and thumbnail files to object storage
// so the backend can be given a URL instead of file contents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/vidfriends/vidclient/internal/config"
)

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// ErrAssetStorageUnavailable indicates no bucket is configured.
var ErrAssetStorageUnavailable = errors.New("asset storage unavailable: set VIDCLIENT_OBJECT_STORE_BUCKET")

// AssetStorage persists an object and returns the location to hand to the backend.
type AssetStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
}

// New builds the storage selected by cfg.Driver.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (AssetStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrAssetStorageUnavailable
	}
	switch strings.ToLower(cfg.Driver) {
	case "", DriverS3:
		return NewS3Storage(ctx, cfg)
	case DriverMinio:
		return NewMinioStorage(cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// location joins the public base URL and key. Without a base URL the
// fallback is returned.
func location(baseURL, key, fallback string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return fallback
	}
	return baseURL + "/" + key
}

func normalizeKey(name string) (string, error) {
	key := strings.TrimLeft(name, "/")
	if key == "" {
		return "", errors.New("storage: empty key")
	}
	return key, nil
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
