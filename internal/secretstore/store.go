package secretstore

import (
	"encoding/base64"
	"errors"
	"fmt"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Format names reported by Open.
const (
	FormatCurrent = "salted"
	FormatLegacy  = "legacy"
)

var errTooShort = errors.New("sealed record too short")

// Strategy opens one on-disk layout of a sealed record.
type Strategy interface {
	Name() string
	Open(raw, password []byte) ([]byte, error)
}

// saltedStrategy reads salt16 | iv12 | ciphertext+tag.
type saltedStrategy struct{}

func (saltedStrategy) Name() string { return FormatCurrent }

func (saltedStrategy) Open(raw, password []byte) ([]byte, error) {
	if len(raw) < SaltSize+NonceSize {
		return nil, errTooShort
	}
	salt := raw[:SaltSize]
	iv := raw[SaltSize : SaltSize+NonceSize]
	return openGCM(deriveKey(password, salt), iv, raw[SaltSize+NonceSize:])
}

// legacyStrategy reads iv12 | ciphertext+tag keyed with LegacySalt.
type legacyStrategy struct{}

func (legacyStrategy) Name() string { return FormatLegacy }

func (legacyStrategy) Open(raw, password []byte) ([]byte, error) {
	if len(raw) < NonceSize {
		return nil, errTooShort
	}
	return openGCM(deriveKey(password, []byte(LegacySalt)), raw[:NonceSize], raw[NonceSize:])
}

func openGCM(key, iv, ct []byte) ([]byte, error) {
	defer Zero(key)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv, ct, nil)
}

// DefaultStrategies lists the layouts tried on open, newest first.
func DefaultStrategies() []Strategy {
	return []Strategy{saltedStrategy{}, legacyStrategy{}}
}

// Encrypt encrypts plaintext under password and returns
// base64(salt16 | iv12 | ciphertext+tag).
func Encrypt(plaintext, password []byte) (string, error) {
	salt, err := RandomBytes(SaltSize)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	iv, err := RandomBytes(NonceSize)
	if err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	key := deriveKey(password, salt)
	defer Zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, iv...)
	out = gcm.Seal(out, iv, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed record, trying each of DefaultStrategies in
// order. It returns the plaintext and the name of the layout that matched.
// Any failure, including a bad encoding, is reported as ErrAuthentication.
func Open(encoded string, password []byte) ([]byte, string, error) {
	return OpenWith(encoded, password, DefaultStrategies())
}

// OpenWith is Open with an explicit strategy list.
func OpenWith(encoded string, password []byte, strategies []Strategy) ([]byte, string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", walleterr.Wrap(walleterr.ErrAuthentication, "decoding sealed record")
	}

	for _, s := range strategies {
		plaintext, openErr := s.Open(raw, password)
		if openErr == nil {
			return plaintext, s.Name(), nil
		}
	}
	return nil, "", walleterr.ErrAuthentication
}

// OpenSecure is Open with the plaintext moved into a SecureBytes.
func OpenSecure(encoded string, password []byte) (*SecureBytes, string, error) {
	plaintext, format, err := Open(encoded, password)
	if err != nil {
		return nil, "", err
	}
	defer Zero(plaintext)
	return SecureBytesFromSlice(plaintext), format, nil
}

// Decrypt is Open without the layout name.
func Decrypt(encoded string, password []byte) ([]byte, error) {
	plaintext, _, err := Open(encoded, password)
	return plaintext, err
}
