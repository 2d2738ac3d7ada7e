package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/mrz1836/ccdwallet/internal/fileutil"
)

const filePerm = 0o600

// FileStore keeps one JSON file per key under dir.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, fileutil.DirPerm); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads key's file.
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok, err := fileutil.ReadOptional(s.path(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(key)
	}
	return data, nil
}

// Put atomically replaces key's file.
func (s *FileStore) Put(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.WriteAtomic(s.path(key), value, filePerm)
}

// Delete removes key's file.
func (s *FileStore) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.RemoveIfExists(s.path(key))
}

// Has reports whether key's file exists.
func (s *FileStore) Has(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
