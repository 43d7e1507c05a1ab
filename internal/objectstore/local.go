package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// LocalStore keeps objects as plain files under a base directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// pathFor resolves an object name inside the base directory, refusing
// names that would escape it.
func (s *LocalStore) pathFor(objectName string) (string, error) {
	if objectName == "" || objectName != filepath.Base(objectName) {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.baseDir, objectName), nil
}

func (s *LocalStore) Put(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := newObjectName(originalFilename)
	path, err := s.pathFor(objectName)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debug().Str("object", objectName).Int64("size", written).Msg("Stored upload on local disk")
	return objectName, nil
}

func (s *LocalStore) Get(ctx context.Context, objectName string) (io.ReadCloser, int64, string, error) {
	path, err := s.pathFor(objectName)
	if err != nil {
		return nil, 0, "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to open object %s: %w", objectName, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, "", fmt.Errorf("failed to stat object %s: %w", objectName, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(objectName))
	return file, stat.Size(), contentType, nil
}

// Materialize is the identity for local objects.
func (s *LocalStore) Materialize(ctx context.Context, objectName string) (string, func(), error) {
	path, err := s.pathFor(objectName)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("object %s not found: %w", objectName, err)
	}
	return path, func() {}, nil
}

func (s *LocalStore) Delete(ctx context.Context, objectName string) error {
	path, err := s.pathFor(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectName, err)
	}
	return nil
}
