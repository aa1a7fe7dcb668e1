// quotapersist.go - Persistence collaborators for the quota snapshot.
//
// The quota store reads and rewrites its snapshot wholesale, so persistence
// is just Load/Save of one opaque byte slice. The default backend is a JSON
// file replaced atomically via rename; a bbolt backend is available for
// deployments that prefer a crash-safe single-file database.
package server

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// QuotaPersistence stores the quota snapshot as a single blob.
type QuotaPersistence interface {
	// Load returns the stored snapshot bytes, or (nil, nil) when nothing has
	// been stored yet.
	Load() ([]byte, error)
	Save(data []byte) error
}

// fileQuotaPersistence keeps the snapshot in one file on local disk.
type fileQuotaPersistence struct {
	path string
}

// NewFileQuotaPersistence returns file-backed persistence at path. The parent
// directory is created if it does not exist.
func NewFileQuotaPersistence(path string) (QuotaPersistence, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("quota: create directory: %w", err)
		}
	}
	return &fileQuotaPersistence{path: path}, nil
}

func (p *fileQuotaPersistence) Load() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quota: read %s: %w", p.path, err)
	}
	return data, nil
}

func (p *fileQuotaPersistence) Save(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".quota-*")
	if err != nil {
		return fmt.Errorf("quota: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("quota: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("quota: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("quota: rename temp file: %w", err)
	}
	return nil
}

var (
	boltQuotaBucket = []byte("quota")
	boltQuotaKey    = []byte("snapshot")
)

// boltQuotaPersistence keeps the snapshot under one key in a bbolt bucket.
type boltQuotaPersistence struct {
	db *bbolt.DB
}

// OpenBoltQuotaPersistence opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltQuotaPersistence(dbPath string) (QuotaPersistence, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("quota: create directory: %w", err)
		}
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("quota: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltQuotaBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("quota: create bucket: %w", err)
	}
	return &boltQuotaPersistence{db: db}, nil
}

func (p *boltQuotaPersistence) Load() ([]byte, error) {
	var data []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltQuotaBucket).Get(boltQuotaKey)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("quota: bolt read: %w", err)
	}
	return data, nil
}

func (p *boltQuotaPersistence) Save(data []byte) error {
	err := p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltQuotaBucket).Put(boltQuotaKey, data)
	})
	if err != nil {
		return fmt.Errorf("quota: bolt write: %w", err)
	}
	return nil
}
