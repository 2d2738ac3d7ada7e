package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2-SHA256 iteration count.
	KDFIterations = 100_000

	// SaltSize is the per-record salt length.
	SaltSize = 16

	// NonceSize is the AES-GCM IV length.
	NonceSize = 12

	// KeySize selects AES-256.
	KeySize = 32

	// LegacySalt is the static salt used by records written before
	// per-record salts were introduced.
	LegacySalt = "concordium-wallet-salt"
)

// deriveKey stretches password into an AES-256 key.
func deriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, KDFIterations, KeySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return gcm, nil
}
