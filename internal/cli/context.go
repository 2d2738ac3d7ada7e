package cli

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/backup"
	"github.com/mrz1836/ccdwallet/internal/cache"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/price"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/state"
	"github.com/mrz1836/ccdwallet/internal/storage"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// remoteTimeout bounds one command's remote work.
const remoteTimeout = 60 * time.Second

// session is one command's view of the persisted wallet.
type session struct {
	kv       storage.KV
	store    *storage.RecordStore
	machine  *state.Machine
	password []byte
}

// openSession opens the configured storage backend and loads the wallet
// state machine from it.
func openSession() (*session, error) {
	kv, err := storage.Open(cfg.Storage.Backend, cfg.GetHome())
	if err != nil {
		return nil, err
	}
	store := storage.NewRecordStore(kv)
	m, err := state.New(store, &state.Options{
		Cache:              cache.NewSessionCache(),
		Logger:             logger.Component("state"),
		Metrics:            metrics.Global,
		DisableAutoPersist: !cfg.Security.AutoPersist,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &session{kv: kv, store: store, machine: m}, nil
}

// Close waits for pending writes, wipes secrets and closes storage.
func (s *session) Close() {
	s.machine.Flush()
	s.machine.Lock()
	zeroBytes(s.password)
	if err := s.kv.Close(); err != nil {
		logger.Error("cli: closing storage: %v", err)
	}
}

// unlock prompts for the wallet password and unlocks the machine. The
// password is kept until Close for save.
func (s *session) unlock() error {
	password, err := promptPasswordFn("Enter wallet password: ")
	if err != nil {
		return err
	}
	if err := s.machine.Unlock(string(password)); err != nil {
		zeroBytes(password)
		return err
	}
	s.password = password
	return nil
}

// save writes the record now when auto-persist is off. With auto-persist
// on, Close flushes the queued writes instead.
func (s *session) save() error {
	if cfg.Security.AutoPersist {
		return nil
	}
	return s.machine.Persist(string(s.password))
}

// network is the wallet's network when one exists, else the configured one.
func (s *session) network() wallet.Network {
	if s.machine.Status() != state.Uninitialized {
		return s.machine.Network()
	}
	return cfg.ActiveNetwork()
}

// newProxyClient returns a wallet-proxy client for network using the
// configured endpoint.
func newProxyClient(network wallet.Network) (*proxy.Client, error) {
	return proxy.NewClient(network, &proxy.ClientOptions{
		BaseURL: cfg.NetworkConfigFor(network).ProxyURL,
		Logger:  logger.Component("proxy"),
		Metrics: metrics.Global,
	})
}

func newPriceService() *price.Service {
	return price.NewService(&price.Options{
		URL:     cfg.Price.URL,
		TTL:     cfg.PriceCacheTTL(),
		Metrics: metrics.Global,
	})
}

func newBackupService(store *storage.RecordStore) *backup.Service {
	return backup.NewService(filepath.Join(cfg.GetHome(), "backups"), store)
}

// commandContext returns a timeout context rooted in the command context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, remoteTimeout)
}

// errNoWallet explains how to get started when nothing is stored.
func errNoWallet() error {
	return walleterr.WithSuggestion(walleterr.ErrNoWalletData,
		"create one with 'ccdwallet wallet create' or restore a backup")
}

// selectAccount makes the account with derivation index idx active. A
// negative idx keeps the default, the first account.
func (s *session) selectAccount(idx int) (wallet.Account, error) {
	if s.machine.Status() == state.Uninitialized {
		return wallet.Account{}, errNoWallet()
	}
	if idx >= 0 {
		pos := -1
		for i, a := range s.machine.Accounts() {
			if int64(a.AccountIndex) == int64(idx) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return wallet.Account{}, walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"account": strconv.Itoa(idx)})
		}
		if err := s.machine.SelectAccount(pos); err != nil {
			return wallet.Account{}, err
		}
	}
	a, ok := s.machine.ActiveAccount()
	if !ok {
		return wallet.Account{}, walleterr.WithSuggestion(walleterr.ErrNotFound, "add an account with 'ccdwallet account add'")
	}
	return a, nil
}
