// Package objectstore stores uploaded audio files and serves them back
// as artifacts. Two backends exist: local disk (default, the upload
// directory doubles as the artifact store) and MinIO.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"polyglot-transcriber/backend/internal/config"
)

// Store is the artifact storage boundary.
type Store interface {
	// Put stores the content under a unique object name derived from the
	// original filename's extension and returns that name.
	Put(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error)
	// Get opens the stored object for reading. The caller closes the
	// returned reader.
	Get(ctx context.Context, objectName string) (io.ReadCloser, int64, string, error)
	// Materialize makes the object available at a local filesystem path
	// for the transcoder and the engine. cleanup removes any temporary
	// copy; it is a no-op when the object already lives on local disk.
	Materialize(ctx context.Context, objectName string) (path string, cleanup func(), err error)
	// Delete removes the stored object.
	Delete(ctx context.Context, objectName string) error
}

// New builds the store selected by the configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStore(cfg.UploadDir)
	case config.StorageMinio:
		return NewMinioStore(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newObjectName generates a unique object name, preserving the original
// file extension so format detection by extension keeps working.
func newObjectName(originalFilename string) string {
	return uuid.New().String() + filepath.Ext(originalFilename)
}
