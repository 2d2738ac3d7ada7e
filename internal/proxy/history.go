package proxy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrz1836/ccdwallet/internal/wire"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeReject  = "reject"
)

// Transaction kinds as reported in type.contents.
const (
	KindTransfer             = "transfer"
	KindTransferWithMemo     = "transferWithMemo"
	KindUpdate               = "update"
	KindInitContract         = "initContract"
	KindDeployModule         = "deployModule"
	KindCredentialDeployment = "credentialDeployment"
)

// TransactionType names the kind of a history entry.
type TransactionType struct {
	Type     string `json:"type"`
	Contents string `json:"contents"`
}

// TransactionResult is the on-chain outcome.
type TransactionResult struct {
	Outcome      string          `json:"outcome"`
	RejectReason json.RawMessage `json:"rejectReason,omitempty"`
}

// TokenTransfer is the structured CIS-2 transfer the proxy extracts from
// some contract updates.
type TokenTransfer struct {
	ContractIndex    Uint64 `json:"contractIndex"`
	ContractSubindex Uint64 `json:"contractSubindex"`
	TokenID          string `json:"tokenId"`
	Amount           string `json:"amount"`
	From             string `json:"from,omitempty"`
	To               string `json:"to,omitempty"`
}

// Contract returns the transfer's contract.
func (t TokenTransfer) Contract() wire.ContractAddress {
	return wire.ContractAddress{Index: uint64(t.ContractIndex), Subindex: uint64(t.ContractSubindex)}
}

// TransactionDetails holds kind-specific fields.
type TransactionDetails struct {
	Type                string            `json:"type"`
	Description         string            `json:"description"`
	Outcome             string            `json:"outcome"`
	TransferSource      string            `json:"transferSource,omitempty"`
	TransferDestination string            `json:"transferDestination,omitempty"`
	TransferAmount      string            `json:"transferAmount,omitempty"`
	TokenTransfer       *TokenTransfer    `json:"tokenTransfer,omitempty"`
	Events              []json.RawMessage `json:"events,omitempty"`
}

// Transaction is one entry of /v3/accTransactions.
type Transaction struct {
	ID              int64              `json:"id"`
	BlockHash       string             `json:"blockHash"`
	BlockTime       float64            `json:"blockTime"`
	TransactionHash string             `json:"transactionHash"`
	Sender          string             `json:"sender,omitempty"`
	Cost            string             `json:"cost,omitempty"`
	EnergyCost      uint64             `json:"energyCost,omitempty"`
	Type            TransactionType    `json:"type"`
	Result          TransactionResult  `json:"result"`
	Details         TransactionDetails `json:"details"`
	Total           string             `json:"total,omitempty"`
	Subtotal        string             `json:"subtotal,omitempty"`
}

// TransactionHistory is the /v3/accTransactions response.
type TransactionHistory struct {
	Transactions []Transaction `json:"transactions"`
	Count        int           `json:"count"`
	Limit        int           `json:"limit"`
	Order        string        `json:"order"`
}

// Validate checks each entry's outcome and structured transfer.
func (h *TransactionHistory) Validate() error {
	for i, tx := range h.Transactions {
		switch tx.Result.Outcome {
		case OutcomeSuccess, OutcomeReject, "":
		default:
			return fmt.Errorf("transactions[%d]: unknown outcome %q", i, tx.Result.Outcome)
		}
		if tt := tx.Details.TokenTransfer; tt != nil {
			if err := validateTokenID(tt.TokenID); err != nil {
				return fmt.Errorf("transactions[%d].tokenTransfer: %w", i, err)
			}
		}
	}
	return nil
}

// ContractEvent is a "contract updated" entry of a transaction's event
// list, carrying the hex-encoded events the contract logged.
type ContractEvent struct {
	Address struct {
		Index    Uint64 `json:"index"`
		Subindex Uint64 `json:"subindex"`
	} `json:"address"`
	Events []string `json:"events"`
}

// Contract returns the emitting contract.
func (e ContractEvent) Contract() wire.ContractAddress {
	return wire.ContractAddress{Index: uint64(e.Address.Index), Subindex: uint64(e.Address.Subindex)}
}

// ContractEvents returns the contract-updated entries among tx's events.
// Plain description strings and other shapes are skipped.
func (tx *Transaction) ContractEvents() []ContractEvent {
	var out []ContractEvent
	for _, raw := range tx.Details.Events {
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var shape struct {
			Address *json.RawMessage `json:"address"`
		}
		if err := json.Unmarshal(raw, &shape); err != nil || shape.Address == nil {
			continue
		}
		var ev ContractEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Summary is the flattened view of a history entry used for display
// and filtering.
type Summary struct {
	Hash        string    `json:"hash"`
	Kind        string    `json:"type"`
	Sender      string    `json:"sender,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Cost        string    `json:"cost,omitempty"`
	BlockTime   time.Time `json:"blockTime"`
	Success     bool      `json:"success"`
}

// Summarize flattens tx.
func (tx *Transaction) Summarize() Summary {
	sender := tx.Sender
	if sender == "" {
		sender = tx.Details.TransferSource
	}
	sec := int64(tx.BlockTime)
	nsec := int64((tx.BlockTime - float64(sec)) * float64(time.Second))
	return Summary{
		Hash:        tx.TransactionHash,
		Kind:        tx.Type.Contents,
		Sender:      sender,
		Destination: tx.Details.TransferDestination,
		Amount:      tx.Details.TransferAmount,
		Cost:        tx.Cost,
		BlockTime:   time.Unix(sec, nsec).UTC(),
		Success:     tx.Result.Outcome != OutcomeReject,
	}
}

// Filter selects a subset of history.
type Filter string

// Filters.
const (
	FilterAll      Filter = "all"
	FilterSent     Filter = "sent"
	FilterReceived Filter = "received"
	FilterContract Filter = "contract"
)

// ParseFilter validates a filter name; empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterSent, FilterReceived, FilterContract:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, sent, received or contract)", s)
}

// FilterTransactions returns the summaries matching f from owner's
// point of view.
func FilterTransactions(list []Summary, f Filter, owner string) []Summary {
	out := make([]Summary, 0, len(list))
	for _, s := range list {
		var keep bool
		switch f {
		case FilterSent:
			keep = s.Sender == owner
		case FilterReceived:
			keep = s.Destination == owner
		case FilterContract:
			keep = s.Kind == KindUpdate || s.Kind == KindInitContract
		default:
			keep = true
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}
