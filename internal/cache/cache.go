// Package cache holds per-address data fetched while the wallet is unlocked.
// Nothing here is written to disk; the whole cache is dropped on lock.
package cache

import (
	"sync"
	"time"

	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/token"
	"github.com/mrz1836/ccdwallet/internal/wallet"
)

// DefaultStaleness is the default duration after which cache entries are considered stale.
const DefaultStaleness = 5 * time.Minute

// Kind selects one of the per-address entry types.
type Kind string

// Entry kinds.
const (
	KindBalance Kind = "balance"
	KindTokens  Kind = "tokens"
	KindHistory Kind = "history"
)

// Cache defines the session cache operations the state machine uses.
type Cache interface {
	Balance(network wallet.Network, address string) (*BalanceEntry, bool)
	SetBalance(entry BalanceEntry)
	Tokens(network wallet.Network, address string) (*TokensEntry, bool)
	SetTokens(entry TokensEntry)
	History(network wallet.Network, address string) (*HistoryEntry, bool)
	SetHistory(entry HistoryEntry)

	// IsStale reports whether the entry is missing or older than staleness.
	IsStale(kind Kind, network wallet.Network, address string, staleness time.Duration) bool

	// KnownTransactions returns every cached transaction for the address.
	KnownTransactions(network wallet.Network, address string) []proxy.Transaction

	DeleteAddress(network wallet.Network, address string)
	Clear()
	Size() int
	Prune(maxAge time.Duration) int
}

// Compile-time interface check
var _ Cache = (*SessionCache)(nil)

// BalanceEntry is an account's CCD balance in microCCD.
type BalanceEntry struct {
	Network   wallet.Network `json:"network"`
	Address   string         `json:"address"`
	Current   uint64         `json:"current"`
	Finalized string         `json:"finalized,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TokensEntry is the discovery result for an account.
type TokensEntry struct {
	Network   wallet.Network  `json:"network"`
	Address   string          `json:"address"`
	Holdings  []token.Holding `json:"holdings"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HistoryEntry is the most recent page of an account's transactions.
type HistoryEntry struct {
	Network      wallet.Network      `json:"network"`
	Address      string              `json:"address"`
	Transactions []proxy.Transaction `json:"transactions"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SessionCache is the in-memory Cache.
type SessionCache struct {
	mu       sync.RWMutex
	now      func() time.Time
	balances map[string]BalanceEntry
	tokens   map[string]TokensEntry
	history  map[string]HistoryEntry
}

// NewSessionCache creates an empty cache.
func NewSessionCache() *SessionCache {
	return NewSessionCacheWithClock(time.Now)
}

// NewSessionCacheWithClock creates an empty cache stamping entries with now.
func NewSessionCacheWithClock(now func() time.Time) *SessionCache {
	c := &SessionCache{now: now}
	c.reset()
	return c
}

func (c *SessionCache) reset() {
	c.balances = make(map[string]BalanceEntry)
	c.tokens = make(map[string]TokensEntry)
	c.history = make(map[string]HistoryEntry)
}

// Key generates a cache key for an address on a network.
func Key(network wallet.Network, address string) string {
	return string(network) + ":" + address
}

// Balance returns the cached CCD balance.
func (c *SessionCache) Balance(network wallet.Network, address string) (*BalanceEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.balances[Key(network, address)]
	if !ok {
		return nil, false
	}
	return &entry, true
}

// SetBalance stores entry stamped with the current time.
func (c *SessionCache) SetBalance(entry BalanceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.UpdatedAt = c.now()
	c.balances[Key(entry.Network, entry.Address)] = entry
}

// Tokens returns the cached holdings. The slice is a copy.
func (c *SessionCache) Tokens(network wallet.Network, address string) (*TokensEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.tokens[Key(network, address)]
	if !ok {
		return nil, false
	}
	entry.Holdings = append([]token.Holding(nil), entry.Holdings...)
	return &entry, true
}

// SetTokens stores entry stamped with the current time.
func (c *SessionCache) SetTokens(entry TokensEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Holdings = append([]token.Holding(nil), entry.Holdings...)
	entry.UpdatedAt = c.now()
	c.tokens[Key(entry.Network, entry.Address)] = entry
}

// History returns the cached transactions. The slice is a copy.
func (c *SessionCache) History(network wallet.Network, address string) (*HistoryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.history[Key(network, address)]
	if !ok {
		return nil, false
	}
	entry.Transactions = append([]proxy.Transaction(nil), entry.Transactions...)
	return &entry, true
}

// SetHistory stores entry stamped with the current time.
func (c *SessionCache) SetHistory(entry HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Transactions = append([]proxy.Transaction(nil), entry.Transactions...)
	entry.UpdatedAt = c.now()
	c.history[Key(entry.Network, entry.Address)] = entry
}

// KnownTransactions returns the cached history for address, or nil.
func (c *SessionCache) KnownTransactions(network wallet.Network, address string) []proxy.Transaction {
	entry, ok := c.History(network, address)
	if !ok {
		return nil
	}
	return entry.Transactions
}

// IsStale checks if an entry is missing or older than staleness.
func (c *SessionCache) IsStale(kind Kind, network wallet.Network, address string, staleness time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := Key(network, address)
	var (
		updated time.Time
		ok      bool
	)
	switch kind {
	case KindBalance:
		var e BalanceEntry
		e, ok = c.balances[key]
		updated = e.UpdatedAt
	case KindTokens:
		var e TokensEntry
		e, ok = c.tokens[key]
		updated = e.UpdatedAt
	case KindHistory:
		var e HistoryEntry
		e, ok = c.history[key]
		updated = e.UpdatedAt
	}
	if !ok {
		return true
	}
	return c.now().Sub(updated) > staleness
}

// DeleteAddress removes every entry for address.
func (c *SessionCache) DeleteAddress(network wallet.Network, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(network, address)
	delete(c.balances, key)
	delete(c.tokens, key)
	delete(c.history, key)
}

// Clear removes all cache entries.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
}

// Size returns the number of cache entries across all kinds.
func (c *SessionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.balances) + len(c.tokens) + len(c.history)
}

// Prune removes entries older than maxAge and returns how many went.
func (c *SessionCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.now().Add(-maxAge)

	for key, entry := range c.balances {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.balances, key)
			removed++
		}
	}
	for key, entry := range c.tokens {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.tokens, key)
			removed++
		}
	}
	for key, entry := range c.history {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.history, key)
			removed++
		}
	}

	return removed
}
