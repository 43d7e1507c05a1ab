package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"polyglot-transcriber/backend/internal/config"
)

// MinioStore keeps objects in a MinIO (or S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket %q exists: %w", cfg.Bucket, err)
	}
	if !exists {
		log.Info().Str("bucket", cfg.Bucket).Msg("MinIO bucket does not exist, creating it")
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := newObjectName(originalFilename)

	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectName, s.bucket, err)
	}

	log.Debug().Str("object", objectName).Int64("size", info.Size).Msg("Stored upload in MinIO")
	return objectName, nil
}

func (s *MinioStore) Get(ctx context.Context, objectName string) (io.ReadCloser, int64, string, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to get object %s from bucket %s: %w", objectName, s.bucket, err)
	}

	stat, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, "", fmt.Errorf("failed to stat object %s: %w", objectName, err)
	}

	return object, stat.Size, stat.ContentType, nil
}

// Materialize downloads the object to a temporary file so the transcoder
// and the engine can read it from local disk; cleanup removes the copy.
func (s *MinioStore) Materialize(ctx context.Context, objectName string) (string, func(), error) {
	object, _, _, err := s.Get(ctx, objectName)
	if err != nil {
		return "", nil, err
	}
	defer object.Close()

	tmp, err := os.CreateTemp("", "transcriber-*"+filepath.Ext(objectName))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file for object %s: %w", objectName, err)
	}

	if _, err := io.Copy(tmp, object); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to download object %s: %w", objectName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to finalize temporary copy of %s: %w", objectName, err)
	}

	path := tmp.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove temporary audio copy")
		}
	}
	return path, cleanup, nil
}

func (s *MinioStore) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", objectName, s.bucket, err)
	}
	return nil
}
