package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-server-secret"

func newTestIndex(t *testing.T) *FileIndex {
	t.Helper()
	store, err := NewDirBlobStore(t.TempDir())
	require.NoError(t, err)
	return NewFileIndex(store, testSecret)
}

// insertFile stores content under its derived keys and returns them.
func insertFile(t *testing.T, ix *FileIndex, filename string, content []byte) (publicKey, privateKey string) {
	t.Helper()
	publicKey = DerivePublicKey(content)
	privateKey = DerivePrivateKey(publicKey, testSecret)
	require.NoError(t, ix.Insert(context.Background(), publicKey, filename, content))
	return publicKey, privateKey
}

func TestFileIndex_FindByPublicKey(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	pub, _ := insertFile(t, ix, "report.pdf", []byte("pdf bytes"))
	insertFile(t, ix, "other.txt", []byte("other"))

	entry, found, err := ix.FindByPublicKey(ctx, pub)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, pub+"report.pdf", entry)
}

func TestFileIndex_FindByPublicKey_Missing(t *testing.T) {
	ix := newTestIndex(t)

	_, found, err := ix.FindByPublicKey(context.Background(), DerivePublicKey([]byte("never stored")))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileIndex_FindByPrivateKey(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	insertFile(t, ix, "a.txt", []byte("aaa"))
	pub, priv := insertFile(t, ix, "b.txt", []byte("bbb"))

	entry, found, err := ix.FindByPrivateKey(ctx, priv)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, pub+"b.txt", entry)
}

func TestFileIndex_FindByPrivateKey_WrongSecret(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	pub, _ := insertFile(t, ix, "a.txt", []byte("aaa"))

	// A private key derived with a different secret must not validate.
	forged := DerivePrivateKey(pub, "some-other-secret")
	_, found, err := ix.FindByPrivateKey(ctx, forged)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileIndex_InsertIdenticalOverwrites(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	insertFile(t, ix, "same.txt", []byte("same content"))
	insertFile(t, ix, "same.txt", []byte("same content"))

	entries, err := ix.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileIndex_SizeOf(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	pub, _ := insertFile(t, ix, "f.bin", []byte("123456789"))

	entry, found, err := ix.FindByPublicKey(ctx, pub)
	require.NoError(t, err)
	require.True(t, found)

	size, err := ix.SizeOf(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	// Entry vanished between lookup and stat: size is 0, not an error.
	require.NoError(t, ix.Delete(ctx, entry))
	size, err = ix.SizeOf(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestFileIndex_OriginalFilename(t *testing.T) {
	ix := newTestIndex(t)

	pub := DerivePublicKey([]byte("content"))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"normal entry", pub + "notes.txt", "notes.txt"},
		{"filename with spaces", pub + "my notes.txt", "my notes.txt"},
		{"bare key", pub, pub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.OriginalFilename(tt.in))
		})
	}
}

func TestFileIndex_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	pub, _ := insertFile(t, ix, "f.txt", []byte("x"))
	entry := pub + "f.txt"

	require.NoError(t, ix.Delete(ctx, entry))
	require.NoError(t, ix.Delete(ctx, entry))
}

func TestFileIndex_ClearAll(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	insertFile(t, ix, "a.txt", []byte("a"))
	insertFile(t, ix, "b.txt", []byte("b"))
	insertFile(t, ix, "c.txt", []byte("c"))

	deleted, err := ix.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	entries, err := ix.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
