package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func TestWalletInfo_NoWallet(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)

	require.NoError(t, runWalletInfo(nil, nil))
	info := decodeJSON[infoResult](t, buf)
	assert.Equal(t, "uninitialized", info.Status)
	assert.Empty(t, info.Network)
	assert.Equal(t, 0, info.Accounts)
}

func TestWalletCreate_Generated(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)
	createWords = 12
	createNetwork = "Mainnet"

	require.NoError(t, runWalletCreate(nil, nil))
	res := decodeJSON[createResult](t, buf)
	assert.Equal(t, wallet.Mainnet, res.Network)
	assert.False(t, res.Restored)
	assert.Len(t, strings.Fields(res.Mnemonic), 12)
	require.NoError(t, wallet.ValidateMnemonic(res.Mnemonic))

	require.NoError(t, runWalletInfo(nil, nil))
	info := decodeJSON[infoResult](t, buf)
	assert.Equal(t, "locked", info.Status)
	assert.Equal(t, wallet.Mainnet, info.Network)

	err := runWalletCreate(nil, nil)
	require.ErrorIs(t, err, walleterr.ErrWalletExists)
}

func TestWalletCreate_TextShowsMnemonicGrid(t *testing.T) {
	buf := setupTestEnv(t, output.FormatText)
	createWords = 24

	require.NoError(t, runWalletCreate(nil, nil))
	text := buf.String()
	assert.Contains(t, text, "Wallet created on Testnet")
	assert.Contains(t, text, " 1. ")
	assert.Contains(t, text, "24. ")
}

func TestWalletCreate_Restore(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)
	createRestore = true

	require.NoError(t, runWalletCreate(nil, nil))
	res := decodeJSON[createResult](t, buf)
	assert.True(t, res.Restored)
	assert.Empty(t, res.Mnemonic)
}

func TestWalletCreate_Rejections(t *testing.T) {
	t.Run("bad network", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		createNetwork = "Devnet"
		require.Error(t, runWalletCreate(nil, nil))
	})

	t.Run("bad word count", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		createWords = 15
		require.Error(t, runWalletCreate(nil, nil))
	})

	t.Run("mistyped phrase", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		createRestore = true
		promptMnemonicFn = func() (string, error) {
			return checkMnemonic(strings.Replace(testPhrase, "about", "aboutt", 1))
		}
		err := runWalletCreate(nil, nil)
		require.ErrorIs(t, err, walleterr.ErrInvalidSeed)
		assert.Contains(t, output.Describe(err).Suggestion, "did you mean 'about'?")
	})
}

func TestWalletReset(t *testing.T) {
	t.Run("no wallet", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		require.ErrorIs(t, runWalletReset(nil, nil), walleterr.ErrNoWalletData)
	})

	t.Run("declined", func(t *testing.T) {
		buf := setupTestEnv(t, output.FormatJSON)
		createTestWallet(t)
		buf.Reset()
		promptConfirmFn = func(string) bool { return false }

		require.ErrorIs(t, runWalletReset(nil, nil), walleterr.ErrInvalidInput)
		require.NoError(t, runWalletInfo(nil, nil))
		assert.Equal(t, "locked", decodeJSON[infoResult](t, buf).Status)
	})

	t.Run("confirmed", func(t *testing.T) {
		buf := setupTestEnv(t, output.FormatJSON)
		createTestWallet(t)
		buf.Reset()

		require.NoError(t, runWalletReset(nil, nil))
		buf.Reset()
		require.NoError(t, runWalletInfo(nil, nil))
		assert.Equal(t, "uninitialized", decodeJSON[infoResult](t, buf).Status)
	})
}

func TestWalletBackupRestore(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)
	createTestWallet(t)
	addAddress = testAddress(1)
	require.NoError(t, runAccountAdd(nil, nil))
	buf.Reset()

	require.NoError(t, runWalletBackup(nil, nil))
	res := decodeJSON[backupResult](t, buf)
	require.FileExists(t, res.Path)
	assert.Equal(t, filepath.Join(cfg.GetHome(), "backups"), filepath.Dir(res.Path))
	assert.Equal(t, 1, res.Manifest.AccountCount)

	backupList = true
	require.NoError(t, runWalletBackup(nil, nil))
	assert.Equal(t, []string{filepath.Base(res.Path)}, decodeJSON[[]string](t, buf))
	backupList = false

	restoreInput = res.Path
	require.ErrorIs(t, runWalletRestore(nil, nil), walleterr.ErrWalletExists)
	buf.Reset()

	restoreVerify = true
	require.NoError(t, runWalletRestore(nil, nil))
	assert.False(t, decodeJSON[backupResult](t, buf).Restored)
	restoreVerify = false

	resetForce = true
	require.NoError(t, runWalletReset(nil, nil))
	buf.Reset()

	require.NoError(t, runWalletRestore(nil, nil))
	assert.True(t, decodeJSON[backupResult](t, buf).Restored)

	require.NoError(t, runAccountList(nil, nil))
	rows := decodeJSON[[]accountRow](t, buf)
	require.Len(t, rows, 1)
	assert.Equal(t, testAddress(1), rows[0].Address)
}

func TestWalletRestore_CorruptFile(t *testing.T) {
	setupTestEnv(t, output.FormatJSON)
	path := filepath.Join(t.TempDir(), "bad.ccdbackup")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	restoreInput = path
	require.ErrorIs(t, runWalletRestore(nil, nil), walleterr.ErrInvalidInput)
}

func TestWalletRestore_WrongPassword(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)
	createTestWallet(t)
	buf.Reset()
	require.NoError(t, runWalletBackup(nil, nil))
	res := decodeJSON[backupResult](t, buf)

	promptPasswordFn = func(string) ([]byte, error) { return []byte("not the password"), nil }
	restoreInput, restoreVerify = res.Path, true
	require.ErrorIs(t, runWalletRestore(nil, nil), walleterr.ErrAuthentication)
}
