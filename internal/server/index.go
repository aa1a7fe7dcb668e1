// index.go - The saved-file index.
//
// Stored files live in a BlobStore under the storage name
// <64-hex-public-key><original filename>. The index resolves public and
// private keys to storage names by scanning the store. Private-key lookup
// recomputes each entry's HMAC, so it is O(n) per call; fine at the expected
// file counts, callers must not assume it scales.
package server

import (
	"context"
	"errors"
)

// FileIndex maps public and private keys to entries in a backing blob store.
type FileIndex struct {
	store  BlobStore
	secret string
}

// NewFileIndex returns an index over store. secret is the server secret used
// to recompute private keys during lookup.
func NewFileIndex(store BlobStore, secret string) *FileIndex {
	return &FileIndex{store: store, secret: secret}
}

// Entries returns all storage names currently in the backing store.
// Order is unspecified.
func (ix *FileIndex) Entries(ctx context.Context) ([]string, error) {
	return ix.store.List(ctx)
}

// FindByPublicKey returns the first entry whose name is prefixed by the
// 64-character public key. If two entries ever shared a prefix through a hash
// coincidence this would pick an arbitrary one; that risk is accepted.
func (ix *FileIndex) FindByPublicKey(ctx context.Context, publicKey string) (string, bool, error) {
	entries, err := ix.store.List(ctx)
	if err != nil {
		return "", false, err
	}
	for _, name := range entries {
		if len(name) >= keyHexLen && name[:keyHexLen] == publicKey {
			return name, true, nil
		}
	}
	return "", false, nil
}

// FindByPrivateKey returns the first entry whose recomputed private key
// matches the supplied one.
func (ix *FileIndex) FindByPrivateKey(ctx context.Context, privateKey string) (string, bool, error) {
	entries, err := ix.store.List(ctx)
	if err != nil {
		return "", false, err
	}
	for _, name := range entries {
		if len(name) < keyHexLen {
			continue
		}
		if DerivePrivateKey(name[:keyHexLen], ix.secret) == privateKey {
			return name, true, nil
		}
	}
	return "", false, nil
}

// Insert stores content under publicKey+filename, silently overwriting an
// identical name. Uploading the same content with the same filename twice is
// therefore idempotent.
func (ix *FileIndex) Insert(ctx context.Context, publicKey, filename string, content []byte) error {
	return ix.store.Put(ctx, publicKey+filename, content)
}

// Content returns the entry's bytes, ErrBlobNotFound if it vanished between
// lookup and read.
func (ix *FileIndex) Content(ctx context.Context, name string) ([]byte, error) {
	return ix.store.Get(ctx, name)
}

// Delete removes the entry. Deleting an entry that is already gone is a
// no-op, tolerating races with the retention sweep.
func (ix *FileIndex) Delete(ctx context.Context, name string) error {
	return ix.store.Delete(ctx, name)
}

// SizeOf returns the entry's byte length, 0 if it vanished between lookup
// and stat.
func (ix *FileIndex) SizeOf(ctx context.Context, name string) (int64, error) {
	return ix.store.Size(ctx, name)
}

// OriginalFilename strips the 64-character public-key prefix from a storage
// name.
func (ix *FileIndex) OriginalFilename(name string) string {
	if len(name) <= keyHexLen {
		return name
	}
	return name[keyHexLen:]
}

// ClearAll deletes every entry. Entries that disappear mid-sweep are treated
// as already deleted, not errors.
func (ix *FileIndex) ClearAll(ctx context.Context) (int, error) {
	entries, err := ix.store.List(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	var errs []error
	for _, name := range entries {
		if err := ix.store.Delete(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
