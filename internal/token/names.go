package token

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mrz1836/ccdwallet/internal/wallet"
	"github.com/mrz1836/ccdwallet/internal/wire"
)

// NameCache remembers resolved contract names. Concurrent lookups of the
// same contract share one resolution.
type NameCache struct {
	mu     sync.RWMutex
	names  map[string]string
	flight singleflight.Group
}

// NewNameCache creates an empty cache.
func NewNameCache() *NameCache {
	return &NameCache{names: make(map[string]string)}
}

// processNames lives for the whole process; contract names never change.
//
//nolint:gochecknoglobals // process-lifetime cache
var processNames = NewNameCache()

// DefaultNameCache returns the process-wide cache.
func DefaultNameCache() *NameCache {
	return processNames
}

func nameKey(network wallet.Network, c wire.ContractAddress) string {
	return string(network) + "/" + c.Key()
}

// Get returns a cached name.
func (c *NameCache) Get(network wallet.Network, contract wire.ContractAddress) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[nameKey(network, contract)]
	return name, ok
}

// Set stores a name.
func (c *NameCache) Set(network wallet.Network, contract wire.ContractAddress, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[nameKey(network, contract)] = name
}

// Len returns the number of cached names.
func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Resolve returns the cached name or calls fetch once, caching a
// successful result. Failures are not cached. hit reports whether the
// cache answered.
func (c *NameCache) Resolve(ctx context.Context, network wallet.Network, contract wire.ContractAddress,
	fetch func(context.Context) (string, error),
) (name string, hit bool, err error) {
	if name, ok := c.Get(network, contract); ok {
		return name, true, nil
	}

	key := nameKey(network, contract)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		name, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		c.Set(network, contract, name)
		return name, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), false, nil //nolint:forcetypeassert // flight only returns strings
}
