package chain

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	// DefaultExpiry is how long a signed transaction stays valid.
	DefaultExpiry = 5 * time.Minute

	// DefaultMaxContractEnergy bounds execution of a token transfer.
	DefaultMaxContractEnergy uint64 = 30_000

	payloadUpdate byte = 2

	headerSize         = 32 + 8 + 8 + 4 + 8
	energyPerSignature = 100
	maxReceiveNameLen  = 100
	maxParameterLen    = 65535
	transferAmountZero = 0
)

// UpdateTx is an account transaction calling a contract receive function.
type UpdateTx struct {
	Sender    wire.AccountAddress
	Nonce     uint64
	Expiry    time.Time
	Amount    uint64 // microCCD sent along with the call
	Contract  wire.ContractAddress
	Receive   string
	Parameter []byte
	MaxEnergy uint64 // contract execution energy, excluding base cost
}

// NewTokenTransferTx builds a zero-CCD update transaction with default
// expiry and energy.
func NewTokenTransferTx(sender wire.AccountAddress, nonce uint64, contract wire.ContractAddress, contractName string, param []byte, now time.Time) *UpdateTx {
	return &UpdateTx{
		Sender:    sender,
		Nonce:     nonce,
		Expiry:    now.Add(DefaultExpiry),
		Amount:    transferAmountZero,
		Contract:  contract,
		Receive:   ReceiveName(contractName, "transfer"),
		Parameter: param,
		MaxEnergy: DefaultMaxContractEnergy,
	}
}

// Payload serializes the update payload.
func (tx *UpdateTx) Payload() ([]byte, error) {
	if len(tx.Receive) == 0 || len(tx.Receive) > maxReceiveNameLen {
		return nil, fmt.Errorf("%w: receive name length %d", walleterr.ErrInvalidInput, len(tx.Receive))
	}
	if len(tx.Parameter) > maxParameterLen {
		return nil, fmt.Errorf("%w: parameter length %d", walleterr.ErrInvalidInput, len(tx.Parameter))
	}

	w := wire.NewWriter(1 + 8 + 16 + 2 + len(tx.Receive) + 2 + len(tx.Parameter))
	w.U8(payloadUpdate)
	w.U64BE(tx.Amount)
	w.U64BE(tx.Contract.Index)
	w.U64BE(tx.Contract.Subindex)
	w.U16BE(uint16(len(tx.Receive)))
	w.Raw([]byte(tx.Receive))
	w.U16BE(uint16(len(tx.Parameter)))
	w.Raw(tx.Parameter)
	return w.Bytes(), nil
}

// Energy returns the total energy budget for a single-signature sender:
// base cost plus the contract execution allowance.
func (tx *UpdateTx) Energy(payloadLen int) uint64 {
	return energyPerSignature + uint64(headerSize+payloadLen) + tx.MaxEnergy
}

// Serialize returns header || payload, the bytes that are signed.
func (tx *UpdateTx) Serialize() ([]byte, error) {
	payload, err := tx.Payload()
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(headerSize + len(payload))
	w.Raw(tx.Sender[:])
	w.U64BE(tx.Nonce)
	w.U64BE(tx.Energy(len(payload)))
	w.U32BE(uint32(len(payload)))
	w.U64BE(uint64(tx.Expiry.Unix()))
	w.Raw(payload)
	return w.Bytes(), nil
}

// SignDigest returns the SHA-256 digest a sender signs.
func (tx *UpdateTx) SignDigest() ([]byte, error) {
	b, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Sign signs the transaction digest with key. A missing key means the
// wallet is locked.
func (tx *UpdateTx) Sign(key ed25519.PrivateKey) ([]byte, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, walleterr.ErrWalletLocked
	}
	digest, err := tx.SignDigest()
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(key, digest), nil
}
