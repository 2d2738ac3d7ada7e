package wallet

import (
	"fmt"
	"strings"

	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Account is a deployed on-chain account controlled by the wallet.
// SigningKey is held only while unlocked and is never serialized.
type Account struct {
	Address      string  `json:"address"`
	PublicKey    string  `json:"publicKey"`
	SigningKey   string  `json:"-"`
	AccountIndex uint32  `json:"accountIndex"`
	Network      Network `json:"network"`
}

// Validate checks that the account's address and key are well formed.
func (a Account) Validate() error {
	if _, err := wire.ParseAccountAddress(a.Address); err != nil {
		return err
	}
	pub, err := wire.HexToBytes(a.PublicKey)
	if err != nil || len(pub) != 32 {
		return fmt.Errorf("%w: public key must be 32 hex bytes", walleterr.ErrInvalidInput)
	}
	if !a.Network.Valid() {
		return fmt.Errorf("%w: unknown network %q", walleterr.ErrInvalidInput, string(a.Network))
	}
	return nil
}

// Keys returns the account's key pair.
func (a Account) Keys() KeyPair {
	return KeyPair{PublicKey: a.PublicKey, SigningKey: a.SigningKey}
}

// Redacted returns a copy without the signing key.
func (a Account) Redacted() Account {
	a.SigningKey = ""
	return a
}

// ShortAddress abbreviates an address for display.
func ShortAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}
