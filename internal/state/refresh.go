package state

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/ccdwallet/internal/cache"
	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/token"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// refreshConcurrency bounds concurrent per-account balance reads.
const refreshConcurrency = 4

// BalanceResult is one account's refresh outcome.
type BalanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Err     error  `json:"-"`
}

// HistorySource is the proxy subset FetchTransactions reads.
type HistorySource interface {
	TransactionHistory(ctx context.Context, address string, limit int, from *int64) (*proxy.TransactionHistory, error)
}

// TokenDiscoverer finds an account's token holdings.
type TokenDiscoverer interface {
	Discover(ctx context.Context, address string, network wallet.Network, known []proxy.Transaction) ([]token.Holding, error)
}

// RefreshBalances reads every account's CCD balance concurrently, each
// under its own timeout. One account's failure is reported in its result
// and does not hold up the rest. Results follow account order.
func (m *Machine) RefreshBalances(ctx context.Context, reader chain.BalanceReader, timeout time.Duration) []BalanceResult {
	gen := m.gen.Load()
	network := m.Network()
	accounts := m.Accounts()
	results := make([]BalanceResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for i, a := range accounts {
		g.Go(func() error {
			qctx, cancel := withTimeout(ctx, timeout)
			defer cancel()

			bal, err := reader.AccountBalance(qctx, a.Address)
			results[i] = BalanceResult{Address: a.Address, Balance: bal, Err: err}
			if err != nil {
				m.logger.Error("state: balance refresh for %s failed: %v", wallet.ShortAddress(a.Address), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.cacheIfCurrent(gen, func(c cache.Cache) {
		for _, r := range results {
			if r.Err == nil {
				c.SetBalance(cache.BalanceEntry{Network: network, Address: r.Address, Current: r.Balance})
			}
		}
	})
	return results
}

// FetchTransactions loads the active account's most recent transactions
// into the session cache.
func (m *Machine) FetchTransactions(ctx context.Context, src HistorySource, limit int) ([]proxy.Transaction, error) {
	gen := m.gen.Load()
	network := m.Network()
	account, ok := m.ActiveAccount()
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"account": "no active account"})
	}

	hist, err := src.TransactionHistory(ctx, account.Address, limit, nil)
	if err != nil {
		return nil, err
	}

	m.cacheIfCurrent(gen, func(c cache.Cache) {
		c.SetHistory(cache.HistoryEntry{Network: network, Address: account.Address, Transactions: hist.Transactions})
	})
	return hist.Transactions, nil
}

// RefreshTokens runs discovery for the active account, feeding it the
// cached transaction history, and caches the holdings.
func (m *Machine) RefreshTokens(ctx context.Context, d TokenDiscoverer) ([]token.Holding, error) {
	gen := m.gen.Load()
	network := m.Network()
	account, ok := m.ActiveAccount()
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"account": "no active account"})
	}

	known := m.cache.KnownTransactions(network, account.Address)
	holdings, err := d.Discover(ctx, account.Address, network, known)
	if err != nil {
		return nil, err
	}

	m.cacheIfCurrent(gen, func(c cache.Cache) {
		c.SetTokens(cache.TokensEntry{Network: network, Address: account.Address, Holdings: holdings})
	})
	return holdings, nil
}

// cacheIfCurrent runs fn only while the wallet is unlocked and the session
// has not been wiped since gen was read. A locked wallet keeps an empty cache.
func (m *Machine) cacheIfCurrent(gen uint64, fn func(cache.Cache)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen.Load() != gen || m.snap.Load().status != Unlocked {
		return
	}
	fn(m.cache)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
