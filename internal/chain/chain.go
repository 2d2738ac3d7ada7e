// Package chain defines the node capabilities the wallet consumes and the
// account transaction format it signs.
package chain

import (
	"context"
	"strings"

	"github.com/mrz1836/ccdwallet/internal/wire"
)

// BalanceReader returns an account's CCD balance in microCCD.
type BalanceReader interface {
	AccountBalance(ctx context.Context, address string) (uint64, error)
}

// NonceReader returns the next sequence number for an account.
type NonceReader interface {
	NextNonce(ctx context.Context, address string) (uint64, error)
}

// ContractResolver returns a contract instance's name without the init_ prefix.
type ContractResolver interface {
	ResolveContractName(ctx context.Context, contract wire.ContractAddress) (string, error)
}

// ContractInvoker runs a receive function without committing state.
type ContractInvoker interface {
	InvokeContract(ctx context.Context, req InvokeRequest) ([]byte, error)
}

// TransactionSubmitter sends a signed account transaction and returns its hash.
type TransactionSubmitter interface {
	SubmitTransaction(ctx context.Context, tx *UpdateTx, signature []byte) (string, error)
}

// Client is the full node capability set. Implementations are supplied by
// the caller; the wallet holds no global client.
type Client interface {
	BalanceReader
	NonceReader
	ContractResolver
	ContractInvoker
	TransactionSubmitter
}

// InvokeRequest describes a read-only contract call.
type InvokeRequest struct {
	Contract  wire.ContractAddress
	Method    string // full receive name, e.g. "cis2_multi.balanceOf"
	Parameter []byte
	Invoker   string // optional account address
}

// ContractNameFromInit strips the init_ prefix from an instance's init name.
func ContractNameFromInit(initName string) string {
	return strings.TrimPrefix(initName, "init_")
}

// ReceiveName joins a contract name and entrypoint.
func ReceiveName(contractName, entrypoint string) string {
	return contractName + "." + entrypoint
}
