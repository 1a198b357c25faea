// Package config defines the top-level configuration for the prediction-market
// plugin and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PREDICTD_* environment variables and
// the framework plugin settings (EVM_PRIVATE_KEY and friends).
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Trading  TradingConfig  `toml:"trading"`
	LLM      LLMConfig      `toml:"llm"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds the RPC endpoint, contracts and signing key source.
type ChainConfig struct {
	ProviderURL      string   `toml:"provider_url"`
	PrivateKey       string   `toml:"private_key"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	FactoryAddress   string   `toml:"factory_address"`
	CollateralToken  string   `toml:"collateral_token"`
	ChainID          int64    `toml:"chain_id"`
	ExpectedNetwork  string   `toml:"expected_network"`
	ReceiptTimeout   duration `toml:"receipt_timeout"`
	PollInterval     duration `toml:"poll_interval"`
	LogsFromBlock    uint64   `toml:"logs_from_block"`
}

// TradingConfig holds defaults applied to chat operations.
type TradingConfig struct {
	// MaxPriceImpactBps has no built-in default and must be set explicitly.
	MaxPriceImpactBps       int      `toml:"max_price_impact_bps"`
	DefaultInitialLiquidity string   `toml:"default_initial_liquidity"`
	DefaultProtocolFee      int      `toml:"default_protocol_fee"`
	DefaultMarketDuration   duration `toml:"default_market_duration"`
	ListConcurrency         int      `toml:"list_concurrency"`
	DedupTTL                duration `toml:"dedup_ttl"`
}

// LLMConfig selects the optional model used for intent classification and
// structured parameter extraction.
type LLMConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"api_key"`
	Temperature float32  `toml:"temperature"`
	Timeout     duration `toml:"timeout"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the execution ledger.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	WebhookSecret string   `toml:"webhook_secret"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindow    duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	MQTTBroker        string   `toml:"mqtt_broker"`
	MQTTTopic         string   `toml:"mqtt_topic"`
	MQTTClientID      string   `toml:"mqtt_client_id"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			ChainID:         34443,
			ExpectedNetwork: "mode.network",
			ReceiptTimeout:  duration{60 * time.Second},
			PollInterval:    duration{2 * time.Second},
		},
		Trading: TradingConfig{
			DefaultInitialLiquidity: "10",
			DefaultProtocolFee:      1,
			DefaultMarketDuration:   duration{7 * 24 * time.Hour},
			ListConcurrency:         4,
			DedupTTL:                duration{10 * time.Minute},
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0,
			Timeout:     duration{30 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "predictd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "predictd-archive",
			ForcePathStyle: true,
			Prefix:         "predictd",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   30,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			MQTTTopic:    "predictd/events",
			MQTTClientID: "predictd",
			Events: []string{
				"market_created", "position_bought", "position_sold",
				"liquidity_added", "market_resolved", "winnings_claimed",
				"execution_failed",
			},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"mcp":    true,
	"cli":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLLMProviders = map[string]bool{
	"":       true,
	"openai": true,
	"ollama": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, mcp, cli)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.ProviderURL == "" {
		errs = append(errs, "chain: provider_url (EVM_PROVIDER_URL) must be set")
	} else if c.Chain.ExpectedNetwork != "" && !strings.Contains(c.Chain.ProviderURL, c.Chain.ExpectedNetwork) {
		errs = append(errs, fmt.Sprintf("chain: provider_url must point at %s", c.Chain.ExpectedNetwork))
	}
	if c.Chain.PrivateKey == "" && c.Chain.EncryptedKeyPath == "" {
		errs = append(errs, "chain: either private_key (EVM_PRIVATE_KEY) or encrypted_key_path must be set")
	}
	if c.Chain.PrivateKey != "" && !ValidPrivateKey(c.Chain.PrivateKey) {
		errs = append(errs, "chain: private_key must be 0x followed by 64 hex characters")
	}
	if c.Chain.EncryptedKeyPath != "" && c.Chain.KeyPassword == "" {
		errs = append(errs, "chain: key_password is required when encrypted_key_path is set")
	}
	if !common.IsHexAddress(c.Chain.FactoryAddress) {
		errs = append(errs, "chain: factory_address (PREDICTION_MARKET_FACTORY) must be a 0x-prefixed 40-hex-char address")
	}
	if c.Chain.CollateralToken != "" && !common.IsHexAddress(c.Chain.CollateralToken) {
		errs = append(errs, "chain: collateral_token (MODE_TOKEN_ADDRESS) must be a 0x-prefixed 40-hex-char address")
	}
	if c.Chain.ChainID < 0 {
		errs = append(errs, "chain: chain_id must not be negative (0 asks the node)")
	}
	if c.Chain.ReceiptTimeout.Duration <= 0 {
		errs = append(errs, "chain: receipt_timeout must be > 0")
	}
	if c.Chain.PollInterval.Duration <= 0 {
		errs = append(errs, "chain: poll_interval must be > 0")
	}

	// Trading
	if c.Trading.MaxPriceImpactBps <= 0 || c.Trading.MaxPriceImpactBps > 10_000 {
		errs = append(errs, fmt.Sprintf("trading: max_price_impact_bps must be set explicitly to 1-10000 (e.g. 100 for a 1%% cap or 10000 to disable), got %d", c.Trading.MaxPriceImpactBps))
	}
	if d, err := decimal.NewFromString(c.Trading.DefaultInitialLiquidity); err != nil || !d.IsPositive() {
		errs = append(errs, fmt.Sprintf("trading: default_initial_liquidity must be a positive decimal, got %q", c.Trading.DefaultInitialLiquidity))
	}
	if c.Trading.DefaultProtocolFee < 0 || c.Trading.DefaultProtocolFee > 10_000 {
		errs = append(errs, "trading: default_protocol_fee must be 0-10000")
	}
	if c.Trading.DefaultMarketDuration.Duration <= 0 {
		errs = append(errs, "trading: default_market_duration must be > 0")
	}
	if c.Trading.ListConcurrency < 1 {
		errs = append(errs, "trading: list_concurrency must be >= 1")
	}

	// LLM
	if !validLLMProviders[strings.ToLower(c.LLM.Provider)] {
		errs = append(errs, fmt.Sprintf("llm: unknown provider %q (valid: openai, ollama, or empty)", c.LLM.Provider))
	}
	if strings.EqualFold(c.LLM.Provider, "openai") && c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		errs = append(errs, "llm: api_key is required for provider openai")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if strings.EqualFold(c.Mode, "server") {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ReceiptWait returns the configured receipt wait bound.
func (c ChainConfig) ReceiptWait() time.Duration { return c.ReceiptTimeout.Duration }

// Poll returns the receipt polling interval.
func (c ChainConfig) Poll() time.Duration { return c.PollInterval.Duration }

// MarketDuration returns the default lifetime of a new market.
func (c TradingConfig) MarketDuration() time.Duration { return c.DefaultMarketDuration.Duration }

// DedupWindow returns how long a handled message id is remembered.
func (c TradingConfig) DedupWindow() time.Duration { return c.DedupTTL.Duration }

// RequestTimeout returns the per-call model timeout.
func (c LLMConfig) RequestTimeout() time.Duration { return c.Timeout.Duration }

// Window returns the rate limit window.
func (c ServerConfig) Window() time.Duration { return c.RateWindow.Duration }
