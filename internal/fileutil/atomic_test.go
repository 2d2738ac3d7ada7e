package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_ReplacesContent(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644)) //nolint:gosec // test file

	require.NoError(t, WriteAtomic(target, []byte("new"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // t.TempDir path
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriteAtomic_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "nested", "home", "wallet.json")
	require.NoError(t, WriteAtomic(target, []byte("x"), 0o600))

	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteAtomic_FailureLeavesOriginalFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "wallet.json")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644)) //nolint:gosec // test file

	require.NoError(t, os.Chmod(tmpDir, 0o500)) //nolint:gosec // intentionally read-only
	defer func() {
		_ = os.Chmod(tmpDir, 0o700) //nolint:gosec // restore
	}()

	require.Error(t, WriteAtomic(target, []byte("replacement"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // t.TempDir path
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestEmptyPath(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, WriteAtomic("", []byte("data"), 0o600), ErrEmptyPath)
	_, _, err := ReadOptional("")
	require.ErrorIs(t, err, ErrEmptyPath)
	require.ErrorIs(t, RemoveIfExists(""), ErrEmptyPath)
}

func TestReadOptionalAndRemove(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "wallet.json")

	data, ok, err := ReadOptional(target)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)

	require.NoError(t, WriteAtomic(target, []byte("hello"), 0o600))
	data, ok, err = ReadOptional(target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, RemoveIfExists(target))
	require.NoError(t, RemoveIfExists(target))
	_, ok, err = ReadOptional(target)
	require.NoError(t, err)
	assert.False(t, ok)
}
