package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const codeNoSuchKey = "NoSuchKey"

// MinIOService implements ObjectStore using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

var _ ObjectStore = (*MinIOService)(nil)

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// Ping lists buckets to prove the endpoint and credentials work.
func (s *MinIOService) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("minio ping: %w", err)
	}
	return nil
}

// PutObject uploads obj under its exact key.
func (s *MinIOService) PutObject(ctx context.Context, bucket string, obj Object) error {
	if err := validateObject(obj, s.maxFileSize); err != nil {
		return err
	}

	opts := minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	}
	if obj.FileName != "" {
		opts.ContentDisposition = mime.FormatMediaType("attachment", map[string]string{"filename": obj.FileName})
	}

	size := int64(len(obj.Data))
	if _, err := s.client.PutObject(ctx, bucket, obj.Key, bytes.NewReader(obj.Data), size, opts); err != nil {
		return fmt.Errorf("upload object %s: %w", obj.Key, err)
	}
	return nil
}

// GetObject downloads a whole object.
func (s *MinIOService) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	defer func() { _ = obj.Close() }()

	// minio-go reports a missing key on the first read, not on GetObject.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	return data, nil
}

// DeleteObject removes an object from storage.
func (s *MinIOService) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func mapObjectError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == codeNoSuchKey {
		return ErrObjectNotFound
	}
	return fmt.Errorf("read object %s: %w", key, err)
}
