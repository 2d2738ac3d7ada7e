// Package config provides configuration management for ccdwallet.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/ccdwallet/internal/fileutil"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Network   string          `yaml:"network"`
	Networks  NetworksConfig  `yaml:"networks"`
	Storage   StorageConfig   `yaml:"storage"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Security  SecurityConfig  `yaml:"security"`
	Price     PriceConfig     `yaml:"price"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworksConfig holds per-network endpoints.
type NetworksConfig struct {
	Testnet NetworkConfig `yaml:"testnet"`
	Mainnet NetworkConfig `yaml:"mainnet"`
}

// NetworkConfig defines the remote services for one network. GRPC is the
// node endpoint handed to external chain clients.
type NetworkConfig struct {
	ProxyURL string `yaml:"proxy_url"`
	GRPC     string `yaml:"grpc"`
}

// StorageConfig selects where the wallet record lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// DiscoveryConfig tunes token discovery.
type DiscoveryConfig struct {
	Concurrency         int `yaml:"concurrency"`
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`
	HistoryLimit        int `yaml:"history_limit"`
}

// SecurityConfig defines security settings.
type SecurityConfig struct {
	AutoPersist bool `yaml:"auto_persist"`
	MemoryLock  bool `yaml:"memory_lock"`
}

// PriceConfig configures the fiat price feed.
type PriceConfig struct {
	URL          string `yaml:"url"`
	CacheMinutes int    `yaml:"cache_minutes"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from path on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"file":   path,
			"reason": err.Error(),
		})
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the config file path under home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate rejects unknown networks, storage backends and output
// formats, and malformed proxy URLs.
func (c *Config) Validate() error {
	fail := func(field, reason string) error {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{field: reason})
	}

	if _, err := wallet.ParseNetwork(c.Network); err != nil {
		return fail("network", fmt.Sprintf("unknown network %q", c.Network))
	}
	for name, n := range map[string]NetworkConfig{"testnet": c.Networks.Testnet, "mainnet": c.Networks.Mainnet} {
		if n.ProxyURL == "" {
			continue
		}
		u, err := url.Parse(n.ProxyURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fail("networks."+name+".proxy_url", n.ProxyURL)
		}
	}
	switch c.Storage.Backend {
	case "file", "badger", "memory":
	default:
		return fail("storage.backend", c.Storage.Backend)
	}
	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return fail("output.default_format", c.Output.DefaultFormat)
	}
	if c.Discovery.Concurrency < 1 {
		return fail("discovery.concurrency", "must be at least 1")
	}
	if c.Discovery.QueryTimeoutSeconds < 1 {
		return fail("discovery.query_timeout_seconds", "must be at least 1")
	}
	return nil
}

// ActiveNetwork returns the configured network.
func (c *Config) ActiveNetwork() wallet.Network {
	n, err := wallet.ParseNetwork(c.Network)
	if err != nil {
		return wallet.Testnet
	}
	return n
}

// NetworkConfigFor returns the endpoints for n.
func (c *Config) NetworkConfigFor(n wallet.Network) NetworkConfig {
	if n == wallet.Mainnet {
		return c.Networks.Mainnet
	}
	return c.Networks.Testnet
}

// ProxyURL returns the proxy for the active network.
func (c *Config) ProxyURL() string {
	return c.NetworkConfigFor(c.ActiveNetwork()).ProxyURL
}

// QueryTimeout returns the per-query discovery timeout.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Discovery.QueryTimeoutSeconds) * time.Second
}

// PriceCacheTTL returns how long a fetched price stays fresh.
func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.Price.CacheMinutes) * time.Minute
}

// GetHome returns the home directory with a leading ~ expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetLoggingFile returns the log file path with a leading ~ expanded.
func (c *Config) GetLoggingFile() string {
	return ExpandHome(c.Logging.File)
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default ccdwallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ccdwallet"
	}
	return filepath.Join(home, ".ccdwallet")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
