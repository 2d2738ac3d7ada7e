package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// RecordKey is the key the wallet record is stored under.
const RecordKey = "concordium_wallet_data"

// StoredAccount is an account as persisted. It has no signing key field.
type StoredAccount struct {
	Address      string         `json:"address"`
	PublicKey    string         `json:"publicKey"`
	AccountIndex uint32         `json:"accountIndex"`
	Network      wallet.Network `json:"network"`
}

// WalletRecord is the persisted wallet.
type WalletRecord struct {
	EncryptedSeed       string          `json:"encryptedSeed"`
	Accounts            []StoredAccount `json:"accounts"`
	AccountIndexCounter uint32          `json:"accountIndexCounter"`
	Network             wallet.Network  `json:"network"`
}

// Validate checks the record's internal consistency: the counter is
// above every stored index and no index appears twice.
func (r *WalletRecord) Validate() error {
	if r.EncryptedSeed == "" {
		return errors.New("encryptedSeed is empty")
	}
	if !r.Network.Valid() {
		return fmt.Errorf("unknown network %q", r.Network)
	}
	seen := make(map[uint32]bool, len(r.Accounts))
	for i, a := range r.Accounts {
		if seen[a.AccountIndex] {
			return fmt.Errorf("accounts[%d]: duplicate account index %d", i, a.AccountIndex)
		}
		seen[a.AccountIndex] = true
		if a.AccountIndex >= r.AccountIndexCounter {
			return fmt.Errorf("accounts[%d]: index %d not below counter %d", i, a.AccountIndex, r.AccountIndexCounter)
		}
	}
	return nil
}

// StoredAccounts converts in-memory accounts, dropping signing keys.
func StoredAccounts(accounts []wallet.Account) []StoredAccount {
	out := make([]StoredAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, StoredAccount{
			Address:      a.Address,
			PublicKey:    a.PublicKey,
			AccountIndex: a.AccountIndex,
			Network:      a.Network,
		})
	}
	return out
}

// WalletAccounts converts stored accounts back, without signing keys.
func (r *WalletRecord) WalletAccounts() []wallet.Account {
	out := make([]wallet.Account, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		out = append(out, wallet.Account{
			Address:      a.Address,
			PublicKey:    a.PublicKey,
			AccountIndex: a.AccountIndex,
			Network:      a.Network,
		})
	}
	return out
}

// RecordStore reads and writes the WalletRecord in a KV.
type RecordStore struct {
	kv KV
}

// NewRecordStore wraps kv.
func NewRecordStore(kv KV) *RecordStore {
	return &RecordStore{kv: kv}
}

// Load returns the stored record, or nil with no error when none exists.
// A record that cannot be parsed or fails validation is an
// ErrMalformedResponse.
func (s *RecordStore) Load() (*WalletRecord, error) {
	data, err := s.kv.Get(RecordKey)
	if errors.Is(err, walleterr.ErrNotFound) {
		return nil, nil //nolint:nilnil // absent record is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("loading wallet record: %w", err)
	}

	var rec WalletRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, walleterr.Wrap(walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"reason": err.Error(),
		}), "no usable wallet data")
	}
	if err := rec.Validate(); err != nil {
		return nil, walleterr.Wrap(walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"reason": err.Error(),
		}), "no usable wallet data")
	}
	if rec.Accounts == nil {
		rec.Accounts = []StoredAccount{}
	}
	return &rec, nil
}

// Save validates and writes rec.
func (s *RecordStore) Save(rec *WalletRecord) error {
	if rec == nil {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"record": "nil"})
	}
	if err := rec.Validate(); err != nil {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"record": err.Error()})
	}
	if rec.Accounts == nil {
		rec.Accounts = []StoredAccount{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding wallet record: %w", err)
	}
	if err := s.kv.Put(RecordKey, data); err != nil {
		return fmt.Errorf("saving wallet record: %w", err)
	}
	return nil
}

// Exists reports whether a record is stored.
func (s *RecordStore) Exists() (bool, error) {
	return s.kv.Has(RecordKey)
}

// Clear deletes the record.
func (s *RecordStore) Clear() error {
	if err := s.kv.Delete(RecordKey); err != nil {
		return fmt.Errorf("clearing wallet record: %w", err)
	}
	return nil
}

// Raw returns the stored bytes for backup.
func (s *RecordStore) Raw() ([]byte, error) {
	return s.kv.Get(RecordKey)
}

// RestoreRaw parses and validates data before writing it.
func (s *RecordStore) RestoreRaw(data []byte) error {
	var rec WalletRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{"reason": err.Error()})
	}
	return s.Save(&rec)
}
