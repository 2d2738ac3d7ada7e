// Package storage persists the wallet record in a local key-value store.
// Three backends share the KV interface: a directory of JSON files, a
// Badger database and an in-memory map for tests.
package storage

import (
	"fmt"
	"path/filepath"
	"regexp"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// KV is a minimal string-keyed store.
type KV interface {
	// Get returns the value for key or an error matching
	// walleterr.ErrNotFound when the key is absent.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Has(key string) (bool, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"key": key})
	}
	return nil
}

func notFound(key string) error {
	return walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"key": key})
}

// Open returns the named backend rooted at home.
func Open(backend, home string) (KV, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(home, "data"))
	case BackendBadger:
		return OpenBadger(filepath.Join(home, "db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
		"storage": fmt.Sprintf("unknown backend %q", backend),
	})
}
