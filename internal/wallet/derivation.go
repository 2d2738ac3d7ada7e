package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	hardenedOffset uint32 = 0x80000000

	// purpose'/coin'/identityProvider'/identity'/0'/account'
	purpose          uint32 = 44
	identityProvider uint32 = 0
	identityIndex    uint32 = 0
	accountBranch    uint32 = 0

	// MinSeedLen and MaxSeedLen bound a raw seed per BIP32.
	MinSeedLen = 16
	MaxSeedLen = 64
)

var ed25519Curve = []byte("ed25519 seed")

// KeyPair is an account's ed25519 key pair, hex encoded.
// SigningKey is the 32-byte private seed, never the expanded key.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	SigningKey string `json:"signingKey"`
}

// PrivateKey expands the signing key for use with crypto/ed25519.
func (k KeyPair) PrivateKey() (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(k.SigningKey)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: malformed signing key", walleterr.ErrInvalidInput)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// DerivationPath returns the human-readable path for an account.
func DerivationPath(network Network, accountIndex uint32) (string, error) {
	coin, err := network.CoinType()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("m/%d'/%d'/%d'/%d'/%d'/%d'",
		purpose, coin, identityProvider, identityIndex, accountBranch, accountIndex), nil
}

// Derive returns the key pair for accountIndex on network from a seed
// phrase. The same inputs always produce the same pair. A phrase that fails
// validation yields ErrInvalidSeed.
func Derive(phrase string, network Network, accountIndex uint32) (KeyPair, error) {
	seed, err := MnemonicToSeed(phrase, "")
	if err != nil {
		return KeyPair{}, err
	}
	defer zero(seed)
	return DeriveFromSeed(seed, network, accountIndex)
}

// DeriveFromSeed is Derive for an already expanded seed.
func DeriveFromSeed(seed []byte, network Network, accountIndex uint32) (KeyPair, error) {
	if len(seed) < MinSeedLen || len(seed) > MaxSeedLen {
		return KeyPair{}, walleterr.WithDetails(walleterr.ErrInvalidSeed, map[string]string{
			"reason": fmt.Sprintf("seed must be %d-%d bytes", MinSeedLen, MaxSeedLen),
		})
	}
	coin, err := network.CoinType()
	if err != nil {
		return KeyPair{}, err
	}
	if accountIndex >= hardenedOffset {
		return KeyPair{}, fmt.Errorf("%w: account index %d out of range", walleterr.ErrInvalidInput, accountIndex)
	}

	key, chainCode := masterKey(seed)
	for _, idx := range []uint32{purpose, coin, identityProvider, identityIndex, accountBranch, accountIndex} {
		nextKey, nextCode := childKey(key, chainCode, idx)
		zero(key)
		zero(chainCode)
		key, chainCode = nextKey, nextCode
	}
	defer zero(key)
	defer zero(chainCode)

	priv := ed25519.NewKeyFromSeed(key)
	defer zero(priv)
	pub, _ := priv.Public().(ed25519.PublicKey)

	return KeyPair{
		PublicKey:  hex.EncodeToString(pub),
		SigningKey: hex.EncodeToString(key),
	}, nil
}

// masterKey implements the SLIP-0010 master key generation for ed25519.
func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, ed25519Curve)
	_, _ = mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// childKey derives the hardened child at index. ed25519 has no
// non-hardened derivation, so index is always hardened.
func childKey(key, chainCode []byte, index uint32) (childKey, childCode []byte) {
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index|hardenedOffset)

	mac := hmac.New(sha512.New, chainCode)
	_, _ = mac.Write(data)
	zero(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
