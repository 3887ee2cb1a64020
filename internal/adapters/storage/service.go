// Package storage keeps generated documents in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Object is one document to store.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
	// FileName, when set, becomes the Content-Disposition download name.
	FileName string
	// Metadata is stored as user metadata (x-amz-meta-*).
	Metadata map[string]string
}

// ObjectStore stores whole objects under caller-chosen keys.
type ObjectStore interface {
	// PutObject writes obj, replacing any previous object under the same key.
	PutObject(ctx context.Context, bucket string, obj Object) error
	// GetObject reads the whole object. Missing keys yield ErrObjectNotFound.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	// DeleteObject removes an object. Missing keys are not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
