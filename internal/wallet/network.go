package wallet

import (
	"fmt"
	"strings"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Network selects the Concordium chain a wallet operates on.
type Network string

// Supported networks.
const (
	Testnet Network = "Testnet"
	Mainnet Network = "Mainnet"
)

// Coin types used in the key derivation path.
const (
	CoinTypeMainnet uint32 = 919
	CoinTypeTestnet uint32 = 1
)

// ParseNetwork accepts a network name in any case.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testnet":
		return Testnet, nil
	case "mainnet":
		return Mainnet, nil
	}
	return "", walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"network": s})
}

// Valid reports whether n is a known network.
func (n Network) Valid() bool {
	return n == Testnet || n == Mainnet
}

// CoinType returns the derivation coin type for n.
func (n Network) CoinType() (uint32, error) {
	switch n {
	case Mainnet:
		return CoinTypeMainnet, nil
	case Testnet:
		return CoinTypeTestnet, nil
	}
	return 0, fmt.Errorf("%w: unknown network %q", walleterr.ErrInvalidInput, string(n))
}

func (n Network) String() string {
	return string(n)
}
