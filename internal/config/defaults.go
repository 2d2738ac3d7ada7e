package config

// Public endpoints.
const (
	DefaultTestnetProxy = "https://wallet-proxy.testnet.concordium.com"
	DefaultMainnetProxy = "https://wallet-proxy.mainnet.concordium.software"
	DefaultTestnetGRPC  = "grpc.testnet.concordium.com:20000"
	DefaultMainnetGRPC  = "grpc.mainnet.concordium.software:20000"
	DefaultPriceURL     = "https://api.coingecko.com/api/v3/simple/price?ids=concordium&vs_currencies=usd"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.ccdwallet",
		Network: "Testnet",
		Networks: NetworksConfig{
			Testnet: NetworkConfig{ProxyURL: DefaultTestnetProxy, GRPC: DefaultTestnetGRPC},
			Mainnet: NetworkConfig{ProxyURL: DefaultMainnetProxy, GRPC: DefaultMainnetGRPC},
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Discovery: DiscoveryConfig{
			Concurrency:         4,
			QueryTimeoutSeconds: 10,
			HistoryLimit:        20,
		},
		Security: SecurityConfig{
			AutoPersist: true,
			MemoryLock:  true,
		},
		Price: PriceConfig{
			URL:          DefaultPriceURL,
			CacheMinutes: 5,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.ccdwallet/ccdwallet.log",
		},
	}
}
