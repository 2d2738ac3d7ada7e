// Package state owns the wallet lifecycle: creating and unlocking the
// wallet, holding the seed while unlocked, the account list and the
// account index counter, and keeping the persisted record current.
package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mrz1836/ccdwallet/internal/cache"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/secretstore"
	"github.com/mrz1836/ccdwallet/internal/storage"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Status is the lifecycle state of the wallet.
type Status int

// Wallet states.
const (
	Uninitialized Status = iota
	Locked
	Unlocked
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Logger is the subset of the application logger the machine uses.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options configures a Machine. Zero values select defaults.
type Options struct {
	Cache              cache.Cache
	Logger             Logger
	Metrics            *metrics.Metrics
	DisableAutoPersist bool
}

// snapshot is an immutable view of the wallet. Every transition builds
// a new snapshot and swaps it in whole.
type snapshot struct {
	status   Status
	network  wallet.Network
	phrase   *secretstore.SecureBytes // mnemonic, nil unless unlocked
	seed     *secretstore.SecureBytes // BIP-39 seed, nil unless unlocked
	password *secretstore.SecureBytes // retained for auto-persist
	accounts []wallet.Account
	active   int
	counter  uint32
}

func (s *snapshot) clone() *snapshot {
	c := *s
	c.accounts = append([]wallet.Account(nil), s.accounts...)
	return &c
}

// Machine is the wallet state machine. Transitions are serialized; reads
// see a consistent snapshot without blocking.
type Machine struct {
	mu        sync.Mutex // serializes transitions
	snap      atomic.Pointer[snapshot]
	store     *storage.RecordStore
	cache     cache.Cache
	logger    Logger
	metrics   *metrics.Metrics
	auto      bool
	persister *persister
	gen       atomic.Uint64 // bumped on every wipe
}

// New loads any persisted record from store. A stored wallet starts
// Locked; otherwise the machine starts Uninitialized.
func New(store *storage.RecordStore, opts *Options) (*Machine, error) {
	m := &Machine{
		store:   store,
		cache:   cache.NewSessionCache(),
		logger:  nopLogger{},
		metrics: metrics.Global,
		auto:    true,
	}
	if opts != nil {
		if opts.Cache != nil {
			m.cache = opts.Cache
		}
		if opts.Logger != nil {
			m.logger = opts.Logger
		}
		if opts.Metrics != nil {
			m.metrics = opts.Metrics
		}
		m.auto = !opts.DisableAutoPersist
	}

	rec, err := store.Load()
	if err != nil {
		return nil, err
	}
	s := &snapshot{status: Uninitialized, network: wallet.Testnet, active: -1}
	if rec != nil {
		s = lockedSnapshot(rec)
	}
	m.snap.Store(s)
	return m, nil
}

func lockedSnapshot(rec *storage.WalletRecord) *snapshot {
	s := &snapshot{
		status:   Locked,
		network:  rec.Network,
		accounts: rec.WalletAccounts(),
		counter:  rec.AccountIndexCounter,
		active:   -1,
	}
	if len(s.accounts) > 0 {
		s.active = 0
	}
	return s
}

// Status returns the current lifecycle state.
func (m *Machine) Status() Status {
	return m.snap.Load().status
}

// Network returns the wallet's network.
func (m *Machine) Network() wallet.Network {
	return m.snap.Load().network
}

// Cache returns the session cache.
func (m *Machine) Cache() cache.Cache {
	return m.cache
}

// Accounts returns a copy of the account list. Signing keys are present
// only while unlocked.
func (m *Machine) Accounts() []wallet.Account {
	return append([]wallet.Account(nil), m.snap.Load().accounts...)
}

// ActiveAccount returns the selected account.
func (m *Machine) ActiveAccount() (wallet.Account, bool) {
	s := m.snap.Load()
	if s.active < 0 || s.active >= len(s.accounts) {
		return wallet.Account{}, false
	}
	return s.accounts[s.active], true
}

// SelectAccount makes the account at position i active.
func (m *Machine) SelectAccount(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap.Load()
	if i < 0 || i >= len(s.accounts) {
		return walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"account": strconv.Itoa(i)})
	}
	next := s.clone()
	next.active = i
	m.snap.Store(next)
	return nil
}

// NextAccountIndex returns the index the next created account will use.
func (m *Machine) NextAccountIndex() uint32 {
	return m.snap.Load().counter
}

// IncrementAccountIndex advances the counter by one and returns the new
// value. It is called once per account-creation attempt whatever the
// outcome, so an index is never handed out twice.
func (m *Machine) IncrementAccountIndex() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap.Load()
	if s.status != Unlocked {
		return s.counter, walleterr.ErrWalletLocked
	}
	next := s.clone()
	next.counter++
	m.commit(next)
	return next.counter, nil
}

// Create validates phrase by deriving its first account keys, persists
// an empty wallet under password and leaves the machine Unlocked.
func (m *Machine) Create(phrase, password string, network wallet.Network) (err error) {
	defer func() { m.metrics.RecordWalletOp(err) }()

	if !network.Valid() {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"network": string(network)})
	}
	if password == "" {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"password": "empty"})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Load().status != Uninitialized {
		return walleterr.ErrWalletExists
	}

	normalized := wallet.NormalizeMnemonicInput(phrase)
	seed, err := wallet.MnemonicToSeed(normalized, "")
	if err != nil {
		return err
	}
	defer secretstore.Zero(seed)
	if _, err := wallet.DeriveFromSeed(seed, network, 0); err != nil {
		return err
	}

	phraseBytes := []byte(normalized)
	defer secretstore.Zero(phraseBytes)
	pw := []byte(password)
	defer secretstore.Zero(pw)

	encrypted, err := secretstore.Encrypt(phraseBytes, pw)
	if err != nil {
		return fmt.Errorf("encrypting seed: %w", err)
	}
	rec := &storage.WalletRecord{
		EncryptedSeed: encrypted,
		Accounts:      []storage.StoredAccount{},
		Network:       network,
	}
	if err := m.store.Save(rec); err != nil {
		m.metrics.RecordPersist(err)
		return err
	}
	m.metrics.RecordPersist(nil)

	m.snap.Store(&snapshot{
		status:   Unlocked,
		network:  network,
		phrase:   secretstore.SecureBytesFromSlice(phraseBytes),
		seed:     secretstore.SecureBytesFromSlice(seed),
		password: secretstore.SecureBytesFromSlice(pw),
		accounts: []wallet.Account{},
		active:   -1,
	})
	m.persister = newPersister()
	m.logger.Debug("state: wallet created on %s", network)
	return nil
}

// Unlock decrypts the stored seed with password and rederives the signing
// key of every stored account.
func (m *Machine) Unlock(password string) (err error) {
	defer func() { m.metrics.RecordWalletOp(err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Load()
	if err != nil {
		return err
	}
	if rec == nil {
		return walleterr.ErrNoWalletData
	}

	pw := []byte(password)
	defer secretstore.Zero(pw)

	phrase, _, err := secretstore.Open(rec.EncryptedSeed, pw)
	if err != nil {
		return err
	}
	defer secretstore.Zero(phrase)

	seed, err := wallet.MnemonicToSeed(string(phrase), "")
	if err != nil {
		return err
	}
	defer secretstore.Zero(seed)

	accounts := rec.WalletAccounts()
	for i := range accounts {
		a := &accounts[i]
		keys, derr := wallet.DeriveFromSeed(seed, a.Network, a.AccountIndex)
		if derr != nil {
			return derr
		}
		if keys.PublicKey != a.PublicKey {
			return walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
				"account": a.Address,
				"reason":  "stored public key does not match derived key",
			})
		}
		a.SigningKey = keys.SigningKey
	}

	m.wipeLocked()
	next := lockedSnapshot(rec)
	next.status = Unlocked
	next.accounts = accounts
	next.phrase = secretstore.SecureBytesFromSlice(phrase)
	next.seed = secretstore.SecureBytesFromSlice(seed)
	next.password = secretstore.SecureBytesFromSlice(pw)
	m.snap.Store(next)
	m.persister = newPersister()
	m.logger.Debug("state: unlocked with %d accounts", len(accounts))
	return nil
}

// Lock drops the seed, the retained password, every signing key and the
// session cache. An auto-persist in flight finishes or is cancelled
// before anything is wiped.
func (m *Machine) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap.Load()
	if s.status != Unlocked {
		return
	}
	m.wipeLocked()

	next := s.clone()
	next.status = Locked
	next.phrase, next.seed, next.password = nil, nil, nil
	for i := range next.accounts {
		next.accounts[i] = next.accounts[i].Redacted()
	}
	m.snap.Store(next)
	m.metrics.RecordWalletOp(nil)
	m.logger.Debug("state: locked")
}

// Reset wipes memory like Lock and deletes the persisted record.
func (m *Machine) Reset() (err error) {
	defer func() { m.metrics.RecordWalletOp(err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.wipeLocked()
	m.snap.Store(&snapshot{status: Uninitialized, network: m.snap.Load().network, active: -1})
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.logger.Debug("state: reset")
	return nil
}

// wipeLocked stops background persistence, then destroys the secrets
// held by the current snapshot and clears the session cache. m.mu must
// be held.
func (m *Machine) wipeLocked() {
	if m.persister != nil {
		m.persister.stop()
		m.persister = nil
	}
	m.gen.Add(1)
	s := m.snap.Load()
	for _, sb := range []*secretstore.SecureBytes{s.phrase, s.seed, s.password} {
		if sb != nil {
			sb.Destroy()
		}
	}
	m.cache.Clear()
}

// AddAccount appends account and makes it active. Its index must already
// have been reserved with IncrementAccountIndex.
func (m *Machine) AddAccount(account wallet.Account) (err error) {
	defer func() { m.metrics.RecordWalletOp(err) }()

	if err := account.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap.Load()
	if s.status != Unlocked {
		return walleterr.ErrWalletLocked
	}
	if account.AccountIndex >= s.counter {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"accountIndex": strconv.FormatUint(uint64(account.AccountIndex), 10),
			"reason":       "index was never reserved",
		})
	}
	for _, a := range s.accounts {
		if a.AccountIndex == account.AccountIndex || a.Address == account.Address {
			return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
				"accountIndex": strconv.FormatUint(uint64(account.AccountIndex), 10),
				"reason":       "account already present",
			})
		}
	}

	next := s.clone()
	next.accounts = append(next.accounts, account)
	next.active = len(next.accounts) - 1
	m.commit(next)
	return nil
}

// DeriveKeys derives the key pair for accountIndex on the wallet's network.
func (m *Machine) DeriveKeys(accountIndex uint32) (wallet.KeyPair, error) {
	s := m.snap.Load()
	if s.status != Unlocked || s.seed == nil {
		return wallet.KeyPair{}, walleterr.ErrWalletLocked
	}
	return wallet.DeriveFromSeed(s.seed.Bytes(), s.network, accountIndex)
}

// Persist re-encrypts the seed under password and writes the record.
// Later auto-persists use the new password.
func (m *Machine) Persist(password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap.Load()
	if s.status != Unlocked || s.phrase == nil {
		return walleterr.ErrWalletLocked
	}
	// Queued auto-persists would otherwise rewrite the record under the
	// previous password after this write lands.
	if m.persister != nil {
		m.persister.flush()
	}
	pw := []byte(password)
	defer secretstore.Zero(pw)

	err := m.write(s, pw)
	m.metrics.RecordPersist(err)
	if err != nil {
		return err
	}

	next := s.clone()
	next.password = secretstore.SecureBytesFromSlice(pw)
	m.snap.Store(next)
	if s.password != nil {
		s.password.Destroy()
	}
	return nil
}

// Flush waits for queued auto-persists to finish.
func (m *Machine) Flush() {
	m.mu.Lock()
	p := m.persister
	m.mu.Unlock()
	if p != nil {
		p.flush()
	}
}

// commit stores next and queues an auto-persist. m.mu must be held.
func (m *Machine) commit(next *snapshot) {
	m.snap.Store(next)
	if !m.auto || m.persister == nil || next.password == nil {
		return
	}
	m.persister.trigger(func(ctx context.Context) {
		s := m.snap.Load()
		if s.status != Unlocked || s.password == nil {
			return
		}
		err := m.writeCtx(ctx, s, s.password.Bytes())
		if errors.Is(err, context.Canceled) {
			return
		}
		m.metrics.RecordPersist(err)
		if err != nil {
			m.logger.Error("state: auto-persist failed: %v", err)
		}
	})
}

func (m *Machine) write(s *snapshot, password []byte) error {
	return m.writeCtx(context.Background(), s, password)
}

// writeCtx encrypts the snapshot's phrase and saves the record unless ctx
// is cancelled first.
func (m *Machine) writeCtx(ctx context.Context, s *snapshot, password []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encrypted, err := secretstore.Encrypt(s.phrase.Bytes(), password)
	if err != nil {
		return fmt.Errorf("encrypting seed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.store.Save(&storage.WalletRecord{
		EncryptedSeed:       encrypted,
		Accounts:            storage.StoredAccounts(s.accounts),
		AccountIndexCounter: s.counter,
		Network:             s.network,
	})
}
