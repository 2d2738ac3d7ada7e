package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func sampleRecord() *WalletRecord {
	return &WalletRecord{
		EncryptedSeed: "c2VlZA==",
		Accounts: []StoredAccount{
			{Address: "addr0", PublicKey: "aa", AccountIndex: 0, Network: wallet.Testnet},
			{Address: "addr2", PublicKey: "bb", AccountIndex: 2, Network: wallet.Testnet},
		},
		AccountIndexCounter: 3,
		Network:             wallet.Testnet,
	}
}

func TestRecordStore_LoadAbsent(t *testing.T) {
	t.Parallel()
	rs := NewRecordStore(NewMemoryStore())

	rec, err := rs.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)

	ok, err := rs.Exists()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordStore_SaveLoadClear(t *testing.T) {
	t.Parallel()
	kv := NewMemoryStore()
	rs := NewRecordStore(kv)

	require.NoError(t, rs.Save(sampleRecord()))

	raw, err := kv.Get(RecordKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"encryptedSeed": "c2VlZA==",
		"accounts": [
			{"address": "addr0", "publicKey": "aa", "accountIndex": 0, "network": "Testnet"},
			{"address": "addr2", "publicKey": "bb", "accountIndex": 2, "network": "Testnet"}
		],
		"accountIndexCounter": 3,
		"network": "Testnet"
	}`, string(raw))

	rec, err := rs.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), rec)

	require.NoError(t, rs.Clear())
	rec, err = rs.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordStore_EmptyAccountsEncodeAsArray(t *testing.T) {
	t.Parallel()
	kv := NewMemoryStore()
	rs := NewRecordStore(kv)

	require.NoError(t, rs.Save(&WalletRecord{EncryptedSeed: "x", Network: wallet.Mainnet}))
	raw, err := kv.Get(RecordKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"accounts":[]`)
}

func TestRecordStore_LoadCorrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"no seed", `{"accounts":[],"accountIndexCounter":0,"network":"Testnet"}`},
		{"bad network", `{"encryptedSeed":"x","accounts":[],"accountIndexCounter":0,"network":"Devnet"}`},
		{"counter behind", `{"encryptedSeed":"x","accounts":[{"accountIndex":4}],"accountIndexCounter":4,"network":"Testnet"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			kv := NewMemoryStore()
			require.NoError(t, kv.Put(RecordKey, []byte(tc.data)))
			_, err := NewRecordStore(kv).Load()
			require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
		})
	}
}

func TestWalletRecord_Validate(t *testing.T) {
	t.Parallel()

	rec := sampleRecord()
	require.NoError(t, rec.Validate())

	rec.Accounts = append(rec.Accounts, StoredAccount{AccountIndex: 0})
	require.Error(t, rec.Validate())
}

func TestRecordStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()
	rs := NewRecordStore(NewMemoryStore())
	require.ErrorIs(t, rs.Save(nil), walleterr.ErrInvalidInput)
	require.ErrorIs(t, rs.Save(&WalletRecord{Network: wallet.Testnet}), walleterr.ErrInvalidInput)
}

func TestAccountConversion(t *testing.T) {
	t.Parallel()

	accounts := []wallet.Account{{
		Address: "addr", PublicKey: "pk", SigningKey: "secret", AccountIndex: 5, Network: wallet.Mainnet,
	}}
	stored := StoredAccounts(accounts)
	require.Len(t, stored, 1)
	assert.Equal(t, StoredAccount{Address: "addr", PublicKey: "pk", AccountIndex: 5, Network: wallet.Mainnet}, stored[0])

	rec := &WalletRecord{Accounts: stored}
	back := rec.WalletAccounts()
	require.Len(t, back, 1)
	assert.Empty(t, back[0].SigningKey)
	assert.Equal(t, uint32(5), back[0].AccountIndex)
}

func TestRecordStore_RestoreRaw(t *testing.T) {
	t.Parallel()
	rs := NewRecordStore(NewMemoryStore())

	require.ErrorIs(t, rs.RestoreRaw([]byte("garbage")), walleterr.ErrBackupCorrupted)
	require.NoError(t, rs.RestoreRaw([]byte(`{"encryptedSeed":"x","accounts":[],"accountIndexCounter":1,"network":"Testnet"}`)))

	raw, err := rs.Raw()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"accountIndexCounter":1`)
}
