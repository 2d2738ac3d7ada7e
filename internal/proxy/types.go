package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Uint64 decodes from either a JSON number or a decimal string; the proxy
// uses both for contract indices.
type Uint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not an unsigned integer", walleterr.ErrMalformedResponse, s)
	}
	*u = Uint64(v)
	return nil
}

// URLRef is a metadata link object.
type URLRef struct {
	URL string `json:"url,omitempty"`
}

// TokenMetadata is the display metadata the proxy attaches to tokens.
type TokenMetadata struct {
	Name        string  `json:"name,omitempty"`
	Symbol      string  `json:"symbol,omitempty"`
	Decimals    int     `json:"decimals,omitempty"`
	Description string  `json:"description,omitempty"`
	Thumbnail   *URLRef `json:"thumbnail,omitempty"`
	Display     *URLRef `json:"display,omitempty"`
}

// IconURLs returns the non-empty thumbnail and display URLs.
func (m *TokenMetadata) IconURLs() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, ref := range []*URLRef{m.Thumbnail, m.Display} {
		if ref != nil && ref.URL != "" {
			out = append(out, ref.URL)
		}
	}
	return out
}

func (m *TokenMetadata) validate() error {
	if m == nil {
		return nil
	}
	if m.Decimals < 0 || m.Decimals > 255 {
		return fmt.Errorf("decimals %d out of range", m.Decimals)
	}
	return nil
}

// TokenBalance is one token entry in an account balance snapshot.
type TokenBalance struct {
	TokenID          string         `json:"tokenId"`
	ContractIndex    Uint64         `json:"contractIndex"`
	ContractSubindex Uint64         `json:"contractSubindex"`
	Balance          string         `json:"balance"`
	Metadata         *TokenMetadata `json:"metadata,omitempty"`
}

// Contract returns the entry's contract address.
func (t TokenBalance) Contract() wire.ContractAddress {
	return wire.ContractAddress{Index: uint64(t.ContractIndex), Subindex: uint64(t.ContractSubindex)}
}

// AccountBalance is the /v2/accBalance response.
type AccountBalance struct {
	FinalizedBalance string         `json:"finalizedBalance"`
	CurrentBalance   string         `json:"currentBalance"`
	StakedAmount     string         `json:"stakedAmount,omitempty"`
	ScheduledBalance string         `json:"scheduledBalance,omitempty"`
	Tokens           []TokenBalance `json:"tokens,omitempty"`
}

// Validate checks amounts and token entries.
func (b *AccountBalance) Validate() error {
	for name, v := range map[string]string{
		"finalizedBalance": b.FinalizedBalance,
		"currentBalance":   b.CurrentBalance,
		"stakedAmount":     b.StakedAmount,
		"scheduledBalance": b.ScheduledBalance,
	} {
		if v != "" && !isUnsigned(v) {
			return fmt.Errorf("%s %q is not an amount", name, v)
		}
	}
	for i, t := range b.Tokens {
		if err := validateTokenID(t.TokenID); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if t.Balance != "" && !isUnsigned(t.Balance) {
			return fmt.Errorf("tokens[%d]: balance %q is not an amount", i, t.Balance)
		}
		if err := t.Metadata.validate(); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
	}
	return nil
}

// PLTToken is an entry of the curated protocol-level token registry.
type PLTToken struct {
	TokenID          string         `json:"tokenId"`
	ContractIndex    Uint64         `json:"contractIndex"`
	ContractSubindex Uint64         `json:"contractSubindex"`
	Metadata         *TokenMetadata `json:"metadata,omitempty"`
}

// Contract returns the registry entry's contract address.
func (t PLTToken) Contract() wire.ContractAddress {
	return wire.ContractAddress{Index: uint64(t.ContractIndex), Subindex: uint64(t.ContractSubindex)}
}

// PLTTokenList is the /v0/plt/tokens response.
type PLTTokenList []PLTToken

// Validate drops registry entries that cannot be queried as CIS-2 tokens,
// such as protocol-level ids given as symbols. The rest of the registry
// stays usable.
func (l *PLTTokenList) Validate() error {
	kept := (*l)[:0]
	for _, t := range *l {
		if validateTokenID(t.TokenID) != nil || t.Metadata.validate() != nil {
			continue
		}
		kept = append(kept, t)
	}
	*l = kept
	return nil
}

// CIS2Token is one token a contract reports.
type CIS2Token struct {
	TokenID  string         `json:"tokenId"`
	Metadata *TokenMetadata `json:"metadata,omitempty"`
}

// CIS2TokenList is the /v0/CIS2Tokens response. The proxy has served
// both a bare array and an object with a tokens field.
type CIS2TokenList []CIS2Token

// UnmarshalJSON implements json.Unmarshaler.
func (l *CIS2TokenList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []CIS2Token
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var wrapped struct {
		Tokens []struct {
			TokenID  string         `json:"tokenId"`
			Token    string         `json:"token"`
			Metadata *TokenMetadata `json:"metadata,omitempty"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	list := make([]CIS2Token, 0, len(wrapped.Tokens))
	for _, t := range wrapped.Tokens {
		id := t.TokenID
		if id == "" {
			id = t.Token
		}
		list = append(list, CIS2Token{TokenID: id, Metadata: t.Metadata})
	}
	*l = list
	return nil
}

// Validate checks every token id.
func (l CIS2TokenList) Validate() error {
	for i, t := range l {
		if err := validateTokenID(t.TokenID); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		if err := t.Metadata.validate(); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

// SubmissionStatus is the /v0/submissionStatus response.
type SubmissionStatus struct {
	Status      string   `json:"status"`
	Outcome     string   `json:"outcome,omitempty"`
	BlockHashes []string `json:"blockHashes,omitempty"`
}

// Submission states.
const (
	StatusAbsent    = "absent"
	StatusReceived  = "received"
	StatusCommitted = "committed"
	StatusFinalized = "finalized"
)

// Validate checks the status is one the proxy documents.
func (s *SubmissionStatus) Validate() error {
	switch s.Status {
	case StatusAbsent, StatusReceived, StatusCommitted, StatusFinalized:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	switch s.Outcome {
	case "", OutcomeSuccess, OutcomeReject:
	default:
		return fmt.Errorf("unknown outcome %q", s.Outcome)
	}
	return nil
}

// TransactionCost is the /v0/transactionCost response.
type TransactionCost struct {
	Cost   string `json:"cost"`
	Energy uint64 `json:"energy"`
}

// Validate checks the cost is an amount.
func (c *TransactionCost) Validate() error {
	if !isUnsigned(c.Cost) {
		return fmt.Errorf("cost %q is not an amount", c.Cost)
	}
	return nil
}

func validateTokenID(id string) error {
	b, err := wire.HexToBytes(id)
	if err != nil {
		return fmt.Errorf("token id %q is not hex", id)
	}
	if len(b) > 255 {
		return fmt.Errorf("token id is %d bytes", len(b))
	}
	return nil
}

func isUnsigned(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && v.Sign() >= 0
}
