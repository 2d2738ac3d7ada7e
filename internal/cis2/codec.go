// Package cis2 encodes and decodes the binary parameters and logged events
// of CIS-2 token contracts.
package cis2

import (
	"fmt"
	"math"
	"math/big"

	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Event tags logged by CIS-2 contracts.
const (
	TagTransfer       byte = 0xFF
	TagMint           byte = 0xFE
	TagBurn           byte = 0xFD
	TagUpdateOperator byte = 0xFC
	TagTokenMetadata  byte = 0xFB
)

// Address tags.
const (
	AddressAccount  byte = 0
	AddressContract byte = 1
)

// MaxTokenIDLen is the largest token id a u8 length prefix can carry.
const MaxTokenIDLen = 255

// Entrypoints.
const (
	EntrypointTransfer = "transfer"
	EntrypointBalance  = "balanceOf"
)

// TransferEvent is a decoded CIS-2 transfer log entry. From and To hold
// base58 account addresses, or are empty when the endpoint is a contract.
type TransferEvent struct {
	TokenID string
	Amount  *big.Int
	From    string
	To      string
}

// EncodeTransferParam builds the parameter for a single-transfer call to
// the transfer entrypoint. tokenID is hex and may carry a 0x prefix.
func EncodeTransferParam(tokenID string, amount *big.Int, from, to wire.AccountAddress) ([]byte, error) {
	id, err := tokenIDBytes(tokenID)
	if err != nil {
		return nil, err
	}

	w := wire.NewWriter(2 + 1 + len(id) + wire.MaxLEB128Len + 2*(1+wire.AccountAddressLen) + 2)
	w.U16LE(1)
	w.U8(uint8(len(id)))
	w.Raw(id)
	if err := w.ULEB128(amount); err != nil {
		return nil, fmt.Errorf("%w: %w", walleterr.ErrInvalidAmount, err)
	}
	w.U8(AddressAccount)
	w.Raw(from[:])
	w.U8(AddressAccount)
	w.Raw(to[:])
	w.U16LE(0)
	return w.Bytes(), nil
}

// EncodeBalanceQueryParam builds the parameter for a single balanceOf query.
func EncodeBalanceQueryParam(tokenID string, addr wire.AccountAddress) ([]byte, error) {
	id, err := tokenIDBytes(tokenID)
	if err != nil {
		return nil, err
	}

	w := wire.NewWriter(2 + 1 + len(id) + 1 + wire.AccountAddressLen)
	w.U16LE(1)
	w.U8(uint8(len(id)))
	w.Raw(id)
	w.U8(AddressAccount)
	w.Raw(addr[:])
	return w.Bytes(), nil
}

// DecodeBalanceResponse returns the first amount of a balanceOf result.
func DecodeBalanceResponse(b []byte) (*big.Int, error) {
	if len(b) < 2 {
		return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"reason": fmt.Sprintf("balance response has %d bytes", len(b)),
		})
	}
	r := wire.NewReader(b)
	if err := r.Skip(2); err != nil {
		return nil, err
	}
	amount, err := r.ULEB128()
	if err != nil {
		return nil, fmt.Errorf("decoding balance: %w", err)
	}
	return amount, nil
}

// EncodeBalanceResponse builds a balanceOf result holding amounts in order.
// The count prefix is a u16, so at most math.MaxUint16 amounts fit.
func EncodeBalanceResponse(amounts ...*big.Int) ([]byte, error) {
	if len(amounts) > math.MaxUint16 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidInput, "%d amounts exceed the u16 count", len(amounts))
	}
	w := wire.NewWriter(2 + len(amounts)*4)
	w.U16LE(uint16(len(amounts))) //nolint:gosec // bounded above
	for _, a := range amounts {
		if err := w.ULEB128(a); err != nil {
			return nil, fmt.Errorf("%w: %w", walleterr.ErrInvalidAmount, err)
		}
	}
	return w.Bytes(), nil
}

// DecodeTransferEvent decodes a logged event. It returns nil without error
// when the event is not a transfer.
func DecodeTransferEvent(b []byte) (*TransferEvent, error) {
	if len(b) == 0 || b[0] != TagTransfer {
		return nil, nil //nolint:nilnil // not a transfer event
	}

	r := wire.NewReader(b[1:])
	idLen, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("decoding transfer event: %w", err)
	}
	id, err := r.Bytes(int(idLen))
	if err != nil {
		return nil, fmt.Errorf("decoding transfer event: %w", err)
	}
	amount, err := r.ULEB128()
	if err != nil {
		return nil, fmt.Errorf("decoding transfer event: %w", err)
	}
	from, err := readAddress(r)
	if err != nil {
		return nil, fmt.Errorf("decoding transfer event sender: %w", err)
	}
	to, err := readAddress(r)
	if err != nil {
		return nil, fmt.Errorf("decoding transfer event receiver: %w", err)
	}

	return &TransferEvent{
		TokenID: wire.BytesToHex(id),
		Amount:  amount,
		From:    from,
		To:      to,
	}, nil
}

// EncodeTransferEvent builds the log entry a contract emits for a transfer
// between two accounts.
func EncodeTransferEvent(tokenID string, amount *big.Int, from, to wire.AccountAddress) ([]byte, error) {
	id, err := tokenIDBytes(tokenID)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(1 + 1 + len(id) + wire.MaxLEB128Len + 2*(1+wire.AccountAddressLen))
	w.U8(TagTransfer)
	w.U8(uint8(len(id)))
	w.Raw(id)
	if err := w.ULEB128(amount); err != nil {
		return nil, fmt.Errorf("%w: %w", walleterr.ErrInvalidAmount, err)
	}
	w.U8(AddressAccount)
	w.Raw(from[:])
	w.U8(AddressAccount)
	w.Raw(to[:])
	return w.Bytes(), nil
}

// readAddress reads a tagged address. Contract addresses are consumed
// and reported as empty.
func readAddress(r *wire.Reader) (string, error) {
	tag, err := r.U8()
	if err != nil {
		return "", err
	}
	switch tag {
	case AddressAccount:
		raw, err := r.Bytes(wire.AccountAddressLen)
		if err != nil {
			return "", err
		}
		addr, err := wire.AccountAddressFromBytes(raw)
		if err != nil {
			return "", err
		}
		return addr.String(), nil
	case AddressContract:
		return "", r.Skip(wire.ContractAddressLen)
	default:
		return "", walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"reason": fmt.Sprintf("unknown address tag %d", tag),
		})
	}
}

func tokenIDBytes(tokenID string) ([]byte, error) {
	id, err := wire.HexToBytes(tokenID)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrInvalidInput, "token id %q is not hex", tokenID)
	}
	if len(id) > MaxTokenIDLen {
		return nil, walleterr.Wrap(walleterr.ErrInvalidInput, "token id is %d bytes, limit %d", len(id), MaxTokenIDLen)
	}
	return id, nil
}
