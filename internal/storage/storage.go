package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/internal/domain"
)

// ErrObjectNotFound is wrapped by GetObject when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore captures the S3-compatible operations the archive pipeline needs.
// Implementations hold no per-request state and are safe for concurrent use.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	CreateMultipartUpload(ctx context.Context, key string) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, body []byte) (string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []domain.PartDescriptor) (string, error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// NewObjectStore builds the driver selected by cfg.Driver.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.DriverS3, "":
		return NewS3Client(ctx, cfg)
	case config.DriverMinio:
		return NewMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// endpointURL makes sure a custom endpoint carries a scheme.
func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "https"
	if !useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimPrefix(endpoint, "//"))
}

// endpointHost strips the scheme from an endpoint and reports whether it asked for TLS.
func endpointHost(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "//"), "/"), useSSL
	}
}
