// Package backup exports the persisted wallet record as an age-encrypted
// file and restores it.
package backup

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mrz1836/ccdwallet/internal/storage"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Version is the current backup format version.
const Version = 1

// Backup is a complete wallet backup as written to disk.
type Backup struct {
	Version  int      `json:"version"`
	Manifest Manifest `json:"manifest"`

	// EncryptedData is the age-encrypted wallet record.
	EncryptedData []byte `json:"encrypted_data"`

	// Checksum is the BLAKE3 hash of EncryptedData.
	Checksum string `json:"checksum"`
}

// Manifest describes a backup without revealing its contents.
type Manifest struct {
	CreatedAt           time.Time      `json:"created_at"`
	Network             wallet.Network `json:"network"`
	AccountCount        int            `json:"account_count"`
	AccountIndexCounter uint32         `json:"account_index_counter"`
	EncryptionMethod    string         `json:"encryption_method"`
	ChecksumAlgorithm   string         `json:"checksum_algorithm"`
}

// NewManifest summarizes rec.
func NewManifest(rec *storage.WalletRecord, now time.Time) Manifest {
	return Manifest{
		CreatedAt:           now.UTC(),
		Network:             rec.Network,
		AccountCount:        len(rec.Accounts),
		AccountIndexCounter: rec.AccountIndexCounter,
		EncryptionMethod:    "age-scrypt",
		ChecksumAlgorithm:   "blake3",
	}
}

// CalculateChecksum computes the BLAKE3 checksum of data.
func CalculateChecksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum verifies that data matches the expected checksum.
func VerifyChecksum(data []byte, expected string) error {
	if actual := CalculateChecksum(data); actual != expected {
		return walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{
			"expected": expected,
			"actual":   actual,
		})
	}
	return nil
}

// New builds a backup around already encrypted data.
func New(manifest Manifest, encryptedData []byte) *Backup {
	return &Backup{
		Version:       Version,
		Manifest:      manifest,
		EncryptedData: encryptedData,
		Checksum:      CalculateChecksum(encryptedData),
	}
}

// Validate checks the version, presence of data and the checksum.
func (b *Backup) Validate() error {
	if b.Version != Version {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"backup": fmt.Sprintf("unsupported version %d", b.Version),
		})
	}
	if !b.Manifest.Network.Valid() {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"backup": fmt.Sprintf("unknown network %q", b.Manifest.Network),
		})
	}
	if len(b.EncryptedData) == 0 {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"backup": "no encrypted data"})
	}
	return VerifyChecksum(b.EncryptedData, b.Checksum)
}
