// Package token discovers the CIS-2 tokens an account holds and sends
// token transfers.
package token

import (
	"sort"
	"strings"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/wire"
)

// Metadata is the display information known for a token.
type Metadata struct {
	Name     string   `json:"name,omitempty"`
	Symbol   string   `json:"symbol,omitempty"`
	Decimals int      `json:"decimals"`
	IconURLs []string `json:"iconUrls,omitempty"`
}

func metadataFrom(m *proxy.TokenMetadata) *Metadata {
	if m == nil {
		return nil
	}
	return &Metadata{
		Name:     m.Name,
		Symbol:   m.Symbol,
		Decimals: m.Decimals,
		IconURLs: m.IconURLs(),
	}
}

// Identity names one token type within one contract instance.
type Identity struct {
	ContractIndex    uint64 `json:"contractIndex"`
	ContractSubindex uint64 `json:"contractSubindex"`
	TokenID          string `json:"tokenId"`
}

// Contract returns the token's contract address.
func (id Identity) Contract() wire.ContractAddress {
	return wire.ContractAddress{Index: id.ContractIndex, Subindex: id.ContractSubindex}
}

// Key is "index:subindex/tokenId".
func (id Identity) Key() string {
	return id.Contract().Key() + "/" + id.TokenID
}

// Holding is a token with a positive live balance.
type Holding struct {
	Identity
	Balance      string    `json:"balance"`
	Metadata     *Metadata `json:"metadata,omitempty"`
	ContractName string    `json:"contractName,omitempty"`
	PLT          bool      `json:"plt,omitempty"`
}

// Decimals returns the metadata decimals, or 0.
func (h Holding) Decimals() int {
	if h.Metadata == nil {
		return 0
	}
	return h.Metadata.Decimals
}

// Symbol returns the metadata symbol, falling back to the token id or
// the contract address.
func (h Holding) Symbol() string {
	if h.Metadata != nil && h.Metadata.Symbol != "" {
		return h.Metadata.Symbol
	}
	if h.TokenID != "" {
		return h.TokenID
	}
	return h.Contract().String()
}

// DisplayAmount formats the raw balance with the token's decimals.
func (h Holding) DisplayAmount() string {
	return chain.FormatTokenAmount(h.Balance, h.Decimals())
}

// SortHoldings orders by contract index, subindex, then token id.
func SortHoldings(hs []Holding) {
	sort.SliceStable(hs, func(i, j int) bool {
		a, b := hs[i], hs[j]
		if a.ContractIndex != b.ContractIndex {
			return a.ContractIndex < b.ContractIndex
		}
		if a.ContractSubindex != b.ContractSubindex {
			return a.ContractSubindex < b.ContractSubindex
		}
		return a.TokenID < b.TokenID
	})
}

// NormalizeTokenID lowercases a hex token id and drops any 0x prefix.
func NormalizeTokenID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '0' && (id[1] == 'x' || id[1] == 'X') {
		id = id[2:]
	}
	return strings.ToLower(id)
}

// SnapshotHoldings converts the proxy's balance snapshot into holdings
// without confirming them on chain. Zero and unparseable balances are
// left out.
func SnapshotHoldings(b *proxy.AccountBalance) []Holding {
	if b == nil {
		return nil
	}
	out := make([]Holding, 0, len(b.Tokens))
	for _, t := range b.Tokens {
		if t.Balance == "" || strings.TrimLeft(t.Balance, "0") == "" {
			continue
		}
		out = append(out, Holding{
			Identity: Identity{
				ContractIndex:    uint64(t.ContractIndex),
				ContractSubindex: uint64(t.ContractSubindex),
				TokenID:          NormalizeTokenID(t.TokenID),
			},
			Balance:  t.Balance,
			Metadata: metadataFrom(t.Metadata),
		})
	}
	SortHoldings(out)
	return out
}
