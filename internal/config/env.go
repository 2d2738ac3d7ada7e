package config

import (
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. CCDWALLET_NETWORK.
const EnvPrefix = "CCDWALLET"

// EnvNoColor disables colored output when set to anything.
const EnvNoColor = "NO_COLOR"

// envOverrides lists the supported variables. Unset variables leave the
// pointer nil so file values survive.
type envOverrides struct {
	Home         *string `envconfig:"HOME"`
	Network      *string `envconfig:"NETWORK"`
	ProxyURL     *string `envconfig:"PROXY_URL"`
	LogLevel     *string `envconfig:"LOG_LEVEL"`
	Storage      *string `envconfig:"STORAGE"`
	OutputFormat *string `envconfig:"OUTPUT_FORMAT"`
	Verbose      *bool   `envconfig:"VERBOSE"`
	AutoPersist  *bool   `envconfig:"AUTO_PERSIST"`
}

// ApplyEnvironment applies CCDWALLET_* overrides to cfg. CCDWALLET_PROXY_URL
// replaces the proxy of the network selected after CCDWALLET_NETWORK is
// applied.
func ApplyEnvironment(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"env": err.Error()})
	}

	if env.Home != nil {
		cfg.Home = *env.Home
	}
	if env.Network != nil {
		cfg.Network = strings.TrimSpace(*env.Network)
	}
	if env.ProxyURL != nil {
		u := strings.TrimSpace(*env.ProxyURL)
		if strings.EqualFold(cfg.Network, "mainnet") {
			cfg.Networks.Mainnet.ProxyURL = u
		} else {
			cfg.Networks.Testnet.ProxyURL = u
		}
	}
	if env.LogLevel != nil {
		cfg.Logging.Level = strings.ToLower(*env.LogLevel)
	}
	if env.Storage != nil {
		cfg.Storage.Backend = strings.ToLower(*env.Storage)
	}
	if env.OutputFormat != nil {
		cfg.Output.DefaultFormat = strings.ToLower(*env.OutputFormat)
	}
	if env.Verbose != nil {
		cfg.Output.Verbose = *env.Verbose
	}
	if env.AutoPersist != nil {
		cfg.Security.AutoPersist = *env.AutoPersist
	}

	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
	return nil
}
