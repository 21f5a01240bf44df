package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from the defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	RPCURL            string        `yaml:"rpc_url"`
	RPCTimeout        time.Duration `yaml:"rpc_timeout"`
	RPCRetryMax       int           `yaml:"rpc_retry_max"`
	RPCRetryBaseDelay time.Duration `yaml:"rpc_retry_base_delay"`
	RPCRateLimit      float64       `yaml:"rpc_rate_limit"`
	RPCBurst          int           `yaml:"rpc_burst"`

	Concurrency     int    `yaml:"concurrency"`
	ReferenceAnchor string `yaml:"reference_anchor"`
	ReferenceOffset uint64 `yaml:"reference_offset"`
	ReferenceProbes int    `yaml:"reference_probes"`

	HomeDir  string `yaml:"home_dir"`
	LogLevel string `yaml:"log_level"`

	HTTPPort             string        `yaml:"http_port"`
	ReportWorkerInterval time.Duration `yaml:"report_worker_interval"`
	AdminAPIKey          string        `yaml:"admin_api_key"`

	BinanceURL      string        `yaml:"binance_url"`
	PriceSymbol     string        `yaml:"price_symbol"`
	CoinGeckoURL    string        `yaml:"coingecko_url"`
	CoinGeckoCoinID string        `yaml:"coingecko_coin_id"`
	CoinGeckoRetry  int           `yaml:"coingecko_retry_max"`
	PriceCacheTTL   time.Duration `yaml:"price_cache_ttl"`

	XLSXPath              string `yaml:"xlsx_path"`
	GoogleSheetsID        string `yaml:"google_sheets_id"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		RPCURL:               "https://rpc.mainnet.near.org",
		RPCTimeout:           30 * time.Second,
		RPCRetryMax:          5,
		RPCRetryBaseDelay:    time.Second,
		RPCRateLimit:         20,
		RPCBurst:             5,
		Concurrency:          4,
		ReferenceAnchor:      "previous-epoch-start",
		ReferenceOffset:      5,
		ReferenceProbes:      10,
		HomeDir:              defaultHomeDir(),
		LogLevel:             "info",
		HTTPPort:             "8080",
		ReportWorkerInterval: 15 * time.Minute,
		BinanceURL:           "https://api.binance.com",
		PriceSymbol:          "NEARUSDT",
		CoinGeckoURL:         "https://api.coingecko.com/api/v3",
		CoinGeckoCoinID:      "near",
		CoinGeckoRetry:       3,
		PriceCacheTTL:        time.Minute,
	}
}

// Load reads configuration from environment variables over the defaults.
func Load() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads configuration from a YAML file, then applies environment overrides.
// An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if c.RPCRetryMax < 0 {
		return fmt.Errorf("rpc_retry_max must not be negative, got %d", c.RPCRetryMax)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.ReferenceProbes < 1 {
		return fmt.Errorf("reference_probes must be at least 1, got %d", c.ReferenceProbes)
	}
	if c.ReportWorkerInterval <= 0 {
		return fmt.Errorf("report_worker_interval must be positive, got %s", c.ReportWorkerInterval)
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("price_cache_ttl must be positive, got %s", c.PriceCacheTTL)
	}
	if c.HomeDir == "" {
		return fmt.Errorf("home_dir is required")
	}
	return nil
}

// AccountsFile returns the path of the tracked accounts file.
func (c Config) AccountsFile() string {
	return filepath.Join(c.HomeDir, "accounts.json")
}

func applyEnv(cfg *Config) {
	cfg.RPCURL = envOrDefault("NEAR_RPC_URL", cfg.RPCURL)
	cfg.RPCTimeout = envOrDefaultDuration("RPC_TIMEOUT", cfg.RPCTimeout)
	cfg.RPCRetryMax = envOrDefaultInt("RPC_RETRY_MAX", cfg.RPCRetryMax)
	cfg.RPCRetryBaseDelay = envOrDefaultDuration("RPC_RETRY_BASE_DELAY", cfg.RPCRetryBaseDelay)
	cfg.RPCRateLimit = envOrDefaultFloat("RPC_RATE_LIMIT", cfg.RPCRateLimit)
	cfg.RPCBurst = envOrDefaultInt("RPC_BURST", cfg.RPCBurst)
	cfg.Concurrency = envOrDefaultInt("CONCURRENCY", cfg.Concurrency)
	cfg.ReferenceAnchor = envOrDefault("REFERENCE_ANCHOR", cfg.ReferenceAnchor)
	cfg.ReferenceOffset = envOrDefaultUint("REFERENCE_OFFSET", cfg.ReferenceOffset)
	cfg.ReferenceProbes = envOrDefaultInt("REFERENCE_PROBES", cfg.ReferenceProbes)
	cfg.HomeDir = envOrDefault("NEAR_REWARDS_HOME", cfg.HomeDir)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = envOrDefault("HTTP_PORT", cfg.HTTPPort)
	cfg.ReportWorkerInterval = envOrDefaultDuration("REPORT_WORKER_INTERVAL", cfg.ReportWorkerInterval)
	cfg.AdminAPIKey = envOrDefault("ADMIN_API_KEY", cfg.AdminAPIKey)
	cfg.BinanceURL = envOrDefault("BINANCE_URL", cfg.BinanceURL)
	cfg.PriceSymbol = envOrDefault("PRICE_SYMBOL", cfg.PriceSymbol)
	cfg.CoinGeckoURL = envOrDefault("COINGECKO_URL", cfg.CoinGeckoURL)
	cfg.CoinGeckoCoinID = envOrDefault("COINGECKO_COIN_ID", cfg.CoinGeckoCoinID)
	cfg.CoinGeckoRetry = envOrDefaultInt("COINGECKO_RETRY_MAX", cfg.CoinGeckoRetry)
	cfg.PriceCacheTTL = envOrDefaultDuration("PRICE_CACHE_TTL", cfg.PriceCacheTTL)
	cfg.XLSXPath = envOrDefault("XLSX_PATH", cfg.XLSXPath)
	cfg.GoogleSheetsID = envOrDefault("GOOGLE_SHEETS_ID", cfg.GoogleSheetsID)
	cfg.GoogleCredentialsJSON = envOrDefault("GOOGLE_CREDENTIALS_JSON", cfg.GoogleCredentialsJSON)
}

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("cannot determine user home directory", "error", err)
		return "near_rewards"
	}
	return filepath.Join(home, "near_rewards")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultUint(key string, defaultVal uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			slog.Warn("invalid unsigned integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
