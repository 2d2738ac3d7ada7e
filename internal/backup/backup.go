package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"filippo.io/age"

	"github.com/mrz1836/ccdwallet/internal/fileutil"
	"github.com/mrz1836/ccdwallet/internal/secretstore"
	"github.com/mrz1836/ccdwallet/internal/storage"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	// Extension is the file extension for backups.
	Extension = ".ccdbackup"

	// FilePermissions is the permission mode for backup files.
	FilePermissions = 0o600
)

// scryptWorkFactor is the log2 scrypt cost for new backups; 0 keeps
// age's default.
var scryptWorkFactor atomic.Int32 //nolint:gochecknoglobals // test hook

// SetScryptWorkFactor overrides the scrypt cost of new backups. Tests
// use a small value.
func SetScryptWorkFactor(logN int) {
	scryptWorkFactor.Store(int32(logN)) //nolint:gosec // small positive value
}

// Service provides backup operations for one record store.
type Service struct {
	dir   string
	store *storage.RecordStore
	now   func() time.Time
}

// NewService creates a backup service writing into dir.
func NewService(dir string, store *storage.RecordStore) *Service {
	return &Service{dir: dir, store: store, now: time.Now}
}

// Create encrypts the stored wallet record under password and writes it
// to a new file in the backup directory. The caller zeroes password.
func (s *Service) Create(password []byte) (*Backup, string, error) {
	rec, err := s.store.Load()
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "", walleterr.ErrNoWalletData
	}
	raw, err := s.store.Raw()
	if err != nil {
		return nil, "", fmt.Errorf("reading wallet record: %w", err)
	}

	encrypted, err := encrypt(raw, password)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	b := New(NewManifest(rec, now), encrypted)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("serializing backup: %w", err)
	}
	name := fmt.Sprintf("ccdwallet-%s-%s%s", rec.Network, now.UTC().Format("2006-01-02-150405"), Extension)
	path := filepath.Join(s.dir, name)
	if err := fileutil.WriteAtomic(path, data, FilePermissions); err != nil {
		return nil, "", fmt.Errorf("writing backup file: %w", err)
	}
	return b, path, nil
}

// Verify checks a backup file's structure and checksum without
// decrypting it.
func (s *Service) Verify(path string) (*Manifest, error) {
	b, err := readBackup(path)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b.Manifest, nil
}

// VerifyWithDecryption is Verify plus a trial decryption and record
// validation.
func (s *Service) VerifyWithDecryption(path string, password []byte) (*Manifest, error) {
	b, err := readBackup(path)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	raw, err := decrypt(b.EncryptedData, password)
	if err != nil {
		return nil, err
	}
	defer secretstore.Zero(raw)

	var rec storage.WalletRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{"reason": err.Error()})
	}
	if err := rec.Validate(); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{"reason": err.Error()})
	}
	return &b.Manifest, nil
}

// Restore writes the backed up record into the store. An existing record
// is only replaced when overwrite is set.
func (s *Service) Restore(path string, password []byte, overwrite bool) (*Manifest, error) {
	b, err := readBackup(path)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists()
	if err != nil {
		return nil, err
	}
	if exists && !overwrite {
		return nil, walleterr.WithSuggestion(walleterr.ErrWalletExists, "reset the wallet or pass --force to replace it")
	}

	raw, err := decrypt(b.EncryptedData, password)
	if err != nil {
		return nil, err
	}
	defer secretstore.Zero(raw)

	if err := s.store.RestoreRaw(raw); err != nil {
		return nil, err
	}
	return &b.Manifest, nil
}

// List returns backup file names in the backup directory, oldest first.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == Extension {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the full path of a backup file name.
func (s *Service) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func readBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is from user input
	if errors.Is(err, os.ErrNotExist) {
		return nil, walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"backup": path})
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"backup": err.Error()})
	}
	return &b, nil
}

func encrypt(plaintext, password []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(string(password))
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if logN := scryptWorkFactor.Load(); logN > 0 {
		recipient.SetWorkFactor(int(logN))
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext, password []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(string(password))
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrAuthentication, "decrypting backup")
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrAuthentication, "reading decrypted backup")
	}
	return plaintext, nil
}
