// blobstore.go - Backing stores of opaque named blobs.
//
// A BlobStore holds the uploaded files under their storage names. The default
// backend is a flat local directory; an S3-compatible backend lives in
// minio.go. Both treat a missing blob as already deleted wherever the caller
// is racing with the retention sweep.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlobNotFound is returned by Get when the named blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the storage collaborator of the file index.
type BlobStore interface {
	// List returns all blob names. Order is unspecified.
	List(ctx context.Context) ([]string, error)
	// Put writes a blob, silently overwriting any blob of the same name.
	Put(ctx context.Context, name string, content []byte) error
	// Get returns the blob's content, ErrBlobNotFound if absent.
	Get(ctx context.Context, name string) ([]byte, error)
	// Size returns the blob's length in bytes, 0 if it vanished.
	Size(ctx context.Context, name string) (int64, error)
	// Delete removes the blob; deleting an absent blob is not an error.
	Delete(ctx context.Context, name string) error
}

// dirBlobStore keeps blobs as files in one flat directory.
type dirBlobStore struct {
	dir string
}

// NewDirBlobStore returns a directory-backed store rooted at dir, creating
// the directory if needed.
func NewDirBlobStore(dir string) (BlobStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("blobstore: create directory: %w", err)
	}
	return &dirBlobStore{dir: dir}, nil
}

func (s *dirBlobStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Dotfiles are in-flight temp writes, never stored blobs.
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *dirBlobStore) Put(ctx context.Context, name string, content []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("blobstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("blobstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("blobstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("blobstore: rename temp file: %w", err)
	}
	return nil
}

func (s *dirBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", name, err)
	}
	return data, nil
}

func (s *dirBlobStore) Size(ctx context.Context, name string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("blobstore: stat %s: %w", name, err)
	}
	return info.Size(), nil
}

func (s *dirBlobStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore: remove %s: %w", name, err)
	}
	return nil
}
