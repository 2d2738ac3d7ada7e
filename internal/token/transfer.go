package token

import (
	"context"
	"math/big"
	"time"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/cis2"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// TransferClient is the node subset a token transfer needs.
type TransferClient interface {
	chain.NonceReader
	chain.ContractResolver
	chain.TransactionSubmitter
}

// TransferRequest describes a single CIS-2 transfer from one of the
// wallet's accounts.
type TransferRequest struct {
	From     wallet.Account
	To       string
	Contract wire.ContractAddress
	TokenID  string
	Amount   *big.Int
}

// TransferResult is what the node returned for a submitted transfer.
type TransferResult struct {
	Hash   string          `json:"hash"`
	Tx     *chain.UpdateTx `json:"-"`
	Expiry time.Time       `json:"expiry"`
}

// SendTransfer signs and submits req. It fails with ErrWalletLocked when
// the sending account carries no signing key.
func SendTransfer(ctx context.Context, client TransferClient, req TransferRequest, now time.Time) (*TransferResult, error) {
	if req.From.SigningKey == "" {
		return nil, walleterr.ErrWalletLocked
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": "must be positive"})
	}
	from, err := wire.ParseAccountAddress(req.From.Address)
	if err != nil {
		return nil, err
	}
	to, err := wire.ParseAccountAddress(req.To)
	if err != nil {
		return nil, err
	}

	param, err := cis2.EncodeTransferParam(req.TokenID, req.Amount, from, to)
	if err != nil {
		return nil, err
	}

	initName, err := client.ResolveContractName(ctx, req.Contract)
	if err != nil {
		return nil, walleterr.Remote("chain", err)
	}
	name := chain.ContractNameFromInit(initName)
	if name == "" {
		return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"contract": req.Contract.String()})
	}

	nonce, err := client.NextNonce(ctx, req.From.Address)
	if err != nil {
		return nil, walleterr.Remote("chain", err)
	}

	tx := chain.NewTokenTransferTx(from, nonce, req.Contract, name, param, now)

	key, err := req.From.Keys().PrivateKey()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrWalletLocked, "signing key unusable")
	}
	sig, err := tx.Sign(key)
	clear(key)
	if err != nil {
		return nil, err
	}

	hash, err := client.SubmitTransaction(ctx, tx, sig)
	if err != nil {
		return nil, walleterr.Remote("chain", err)
	}
	return &TransferResult{Hash: hash, Tx: tx, Expiry: tx.Expiry}, nil
}
