package secretstore

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func sealLegacy(t *testing.T, plaintext, password []byte) string {
	t.Helper()
	iv, err := RandomBytes(NonceSize)
	require.NoError(t, err)
	gcm, err := newGCM(deriveKey(password, []byte(LegacySalt)))
	require.NoError(t, err)
	out := gcm.Seal(append([]byte(nil), iv...), iv, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out)
}

func TestEncryptOpenRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"seed phrase", []byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x20}},
		{"empty", []byte{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sealed, err := Encrypt(tc.plaintext, []byte("hunter22"))
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(sealed)
			require.NoError(t, err)
			assert.Len(t, raw, SaltSize+NonceSize+len(tc.plaintext)+16)

			got, format, err := Open(sealed, []byte("hunter22"))
			require.NoError(t, err)
			assert.Equal(t, FormatCurrent, format)
			assert.True(t, bytes.Equal(tc.plaintext, got))
		})
	}
}

func TestEncryptUsesFreshSalt(t *testing.T) {
	t.Parallel()
	a, err := Encrypt([]byte("same"), []byte("pw"))
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), []byte("pw"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenWrongPassword(t *testing.T) {
	t.Parallel()
	sealed, err := Encrypt([]byte("secret"), []byte("right"))
	require.NoError(t, err)

	_, _, err = Open(sealed, []byte("wrong"))
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestOpenDetectsTampering(t *testing.T) {
	t.Parallel()
	sealed, err := Encrypt([]byte("secret seed material"), []byte("pw"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)

	// Salt, nonce, ciphertext and tag: any single flipped bit must fail.
	for idx := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[idx] ^= 0x01
		_, _, err := Open(base64.StdEncoding.EncodeToString(tampered), []byte("pw"))
		require.ErrorIs(t, err, walleterr.ErrAuthentication, "flipped byte %d", idx)
	}
}

func TestOpenLegacyFallback(t *testing.T) {
	t.Parallel()
	legacy := sealLegacy(t, []byte("old wallet seed"), []byte("pw"))

	got, format, err := Open(legacy, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, format)
	assert.Equal(t, []byte("old wallet seed"), got)

	_, _, err = Open(legacy, []byte("nope"))
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestOpenMalformedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!"},
		{"empty", ""},
		{"too short", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Open(tc.encoded, []byte("pw"))
			require.ErrorIs(t, err, walleterr.ErrAuthentication)
		})
	}
}

func TestOpenWithCustomOrder(t *testing.T) {
	t.Parallel()
	sealed, err := Encrypt([]byte("x"), []byte("pw"))
	require.NoError(t, err)

	_, _, err = OpenWith(sealed, []byte("pw"), []Strategy{legacyStrategy{}})
	require.ErrorIs(t, err, walleterr.ErrAuthentication)

	_, _, err = OpenWith(sealed, []byte("pw"), nil)
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestOpenSecure(t *testing.T) {
	t.Parallel()
	sealed, err := Encrypt([]byte("seed"), []byte("pw"))
	require.NoError(t, err)

	sb, format, err := OpenSecure(sealed, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, format)
	assert.Equal(t, []byte("seed"), sb.Bytes())
	sb.Destroy()
	assert.True(t, sb.Destroyed())
}
