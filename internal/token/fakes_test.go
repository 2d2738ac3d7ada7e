package token_test

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/cis2"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/wire"
)

var errOffline = errors.New("offline")

func testAddress(seed byte) wire.AccountAddress {
	var a wire.AccountAddress
	for i := range a {
		a[i] = seed + byte(i)
	}
	return a
}

type fakeProxy struct {
	snapshot    *proxy.AccountBalance
	snapshotErr error
	registry    proxy.PLTTokenList
	registryErr error
	cis2        map[string]proxy.CIS2TokenList // contract key -> tokens
}

func (f *fakeProxy) AccountBalance(context.Context, string) (*proxy.AccountBalance, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeProxy) PLTTokens(context.Context) (proxy.PLTTokenList, error) {
	if f.registryErr != nil {
		return nil, f.registryErr
	}
	return f.registry, nil
}

func (f *fakeProxy) CIS2Tokens(_ context.Context, index, subindex uint64) (proxy.CIS2TokenList, error) {
	key := wire.ContractAddress{Index: index, Subindex: subindex}.Key()
	list, ok := f.cis2[key]
	if !ok {
		return nil, errOffline
	}
	return list, nil
}

// fakeChain answers balanceOf from balances keyed "index:subindex/tokenId".
type fakeChain struct {
	mu           sync.Mutex
	names        map[string]string // contract key -> init name
	balances     map[string]*big.Int
	failPairs    map[string]bool
	blockPairs   map[string]bool
	resolves     int
	queried      []string
	nonce        uint64
	submitErr    error
	submitted    *chain.UpdateTx
	submittedSig []byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		names:      map[string]string{},
		balances:   map[string]*big.Int{},
		failPairs:  map[string]bool{},
		blockPairs: map[string]bool{},
	}
}

func (f *fakeChain) ResolveContractName(_ context.Context, c wire.ContractAddress) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	name, ok := f.names[c.Key()]
	if !ok {
		return "", errOffline
	}
	return name, nil
}

func (f *fakeChain) InvokeContract(ctx context.Context, req chain.InvokeRequest) ([]byte, error) {
	// parameter: u16 count | u8 len | id | ...
	idLen := int(req.Parameter[2])
	tokenID := wire.BytesToHex(req.Parameter[3 : 3+idLen])
	pair := req.Contract.Key() + "/" + tokenID

	f.mu.Lock()
	f.queried = append(f.queried, pair)
	fail := f.failPairs[pair]
	block := f.blockPairs[pair]
	amount := f.balances[pair]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, errOffline
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	return cis2.EncodeBalanceResponse(amount)
}

func (f *fakeChain) NextNonce(context.Context, string) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) SubmitTransaction(_ context.Context, tx *chain.UpdateTx, sig []byte) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = tx
	f.submittedSig = sig
	return "c0ffee", nil
}

func (f *fakeChain) queriedPairs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queried...)
}
