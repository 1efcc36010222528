package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// MinioStore stores media objects in the configured MinIO bucket.
type MinioStore struct {
	bucket string
}

// NewMinioStore creates a MinioStore for the bucket. InitMinio must have
// been called first.
func NewMinioStore(bucket string) *MinioStore {
	return &MinioStore{bucket: bucket}
}

// Put uploads an object under the given path.
func (s *MinioStore) Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	}
	if _, err := client.PutObject(ctx, s.bucket, objectPath, r, size, opts); err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (s *MinioStore) Remove(ctx context.Context, objectPath string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object from MinIO: %w", err)
	}
	return nil
}

// SafeObjectName builds a collision-free object name from an uploaded
// filename, keeping its extension.
func SafeObjectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	baseName := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	baseName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, baseName)

	return baseName + "-" + uuid.NewString() + ext
}
