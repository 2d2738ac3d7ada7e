package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/cache"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/storage"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	"github.com/mrz1836/ccdwallet/internal/wire"
)

const (
	testPhrase   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword = "correct horse battery staple"
)

func testAddress(seed byte) string {
	var a wire.AccountAddress
	for i := range a {
		a[i] = seed + byte(i)
	}
	return a.String()
}

// countingKV counts writes and can hold them until released.
type countingKV struct {
	*storage.MemoryStore

	puts    atomic.Int64
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryStore: storage.NewMemoryStore()}
}

// hold makes the next Put signal entered and block until release is called.
func (k *countingKV) hold() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gate = make(chan struct{})
	k.entered = make(chan struct{})
}

func (k *countingKV) release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.gate != nil {
		close(k.gate)
		k.gate = nil
	}
}

func (k *countingKV) Put(key string, value []byte) error {
	k.mu.Lock()
	gate, entered := k.gate, k.entered
	k.entered = nil
	k.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
	k.puts.Add(1)
	return k.MemoryStore.Put(key, value)
}

type fixture struct {
	kv      *countingKV
	store   *storage.RecordStore
	cache   *cache.SessionCache
	metrics *metrics.Metrics
	m       *Machine
}

func newFixture(t *testing.T, opts *Options) *fixture {
	t.Helper()
	f := &fixture{
		kv:      newCountingKV(),
		cache:   cache.NewSessionCache(),
		metrics: &metrics.Metrics{},
	}
	f.store = storage.NewRecordStore(f.kv)
	if opts == nil {
		opts = &Options{}
	}
	opts.Cache = f.cache
	opts.Metrics = f.metrics
	m, err := New(f.store, opts)
	require.NoError(t, err)
	f.m = m
	return f
}

func newUnlocked(t *testing.T, opts *Options) *fixture {
	t.Helper()
	f := newFixture(t, opts)
	require.NoError(t, f.m.Create(testPhrase, testPassword, wallet.Testnet))
	return f
}

// addAccount reserves the next index and adds an account for it.
func (f *fixture) addAccount(t *testing.T, seed byte) wallet.Account {
	t.Helper()
	counter, err := f.m.IncrementAccountIndex()
	require.NoError(t, err)
	keys, err := f.m.DeriveKeys(counter - 1)
	require.NoError(t, err)
	a := wallet.Account{
		Address:      testAddress(seed),
		PublicKey:    keys.PublicKey,
		SigningKey:   keys.SigningKey,
		AccountIndex: counter - 1,
		Network:      wallet.Testnet,
	}
	require.NoError(t, f.m.AddAccount(a))
	return a
}

func (f *fixture) record(t *testing.T) *storage.WalletRecord {
	t.Helper()
	rec, err := f.store.Load()
	require.NoError(t, err)
	return rec
}
