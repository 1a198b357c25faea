package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDICTD_* environment variable overrides and the
// framework settings, and returns the final Config. A missing file is not an
// error, so a deployment can rely on the environment alone. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	applySettings(&cfg, EnvSettings)

	return &cfg, nil
}

// applySettings copies the framework settings over the chain section. They
// win over both TOML and PREDICTD_* values.
func applySettings(cfg *Config, getter SettingGetter) {
	if v, ok := getter.GetSetting(SettingPrivateKey); ok {
		cfg.Chain.PrivateKey = v
	}
	if v, ok := getter.GetSetting(SettingProviderURL); ok {
		cfg.Chain.ProviderURL = v
	}
	if v, ok := getter.GetSetting(SettingFactoryAddress); ok {
		cfg.Chain.FactoryAddress = v
	}
	if v, ok := getter.GetSetting(SettingModeToken); ok {
		cfg.Chain.CollateralToken = v
	}
}

// applyEnvOverrides reads well-known PREDICTD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.ProviderURL, "PREDICTD_CHAIN_PROVIDER_URL")
	setStr(&cfg.Chain.PrivateKey, "PREDICTD_CHAIN_PRIVATE_KEY")
	setStr(&cfg.Chain.EncryptedKeyPath, "PREDICTD_CHAIN_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Chain.KeyPassword, "PREDICTD_CHAIN_KEY_PASSWORD")
	setStr(&cfg.Chain.FactoryAddress, "PREDICTD_CHAIN_FACTORY_ADDRESS")
	setStr(&cfg.Chain.CollateralToken, "PREDICTD_CHAIN_COLLATERAL_TOKEN")
	setInt64(&cfg.Chain.ChainID, "PREDICTD_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.ExpectedNetwork, "PREDICTD_CHAIN_EXPECTED_NETWORK")
	setDuration(&cfg.Chain.ReceiptTimeout, "PREDICTD_CHAIN_RECEIPT_TIMEOUT")
	setDuration(&cfg.Chain.PollInterval, "PREDICTD_CHAIN_POLL_INTERVAL")
	setUint64(&cfg.Chain.LogsFromBlock, "PREDICTD_CHAIN_LOGS_FROM_BLOCK")

	// ── Trading ──
	setInt(&cfg.Trading.MaxPriceImpactBps, "PREDICTD_TRADING_MAX_PRICE_IMPACT_BPS")
	setStr(&cfg.Trading.DefaultInitialLiquidity, "PREDICTD_TRADING_DEFAULT_INITIAL_LIQUIDITY")
	setInt(&cfg.Trading.DefaultProtocolFee, "PREDICTD_TRADING_DEFAULT_PROTOCOL_FEE")
	setDuration(&cfg.Trading.DefaultMarketDuration, "PREDICTD_TRADING_DEFAULT_MARKET_DURATION")
	setInt(&cfg.Trading.ListConcurrency, "PREDICTD_TRADING_LIST_CONCURRENCY")
	setDuration(&cfg.Trading.DedupTTL, "PREDICTD_TRADING_DEDUP_TTL")

	// ── LLM ──
	setStr(&cfg.LLM.Provider, "PREDICTD_LLM_PROVIDER")
	setStr(&cfg.LLM.Model, "PREDICTD_LLM_MODEL")
	setStr(&cfg.LLM.BaseURL, "PREDICTD_LLM_BASE_URL")
	setStr(&cfg.LLM.APIKey, "PREDICTD_LLM_API_KEY")
	setStr(&cfg.LLM.APIKey, "OPENAI_API_KEY") // compatibility alias
	setFloat32(&cfg.LLM.Temperature, "PREDICTD_LLM_TEMPERATURE")
	setDuration(&cfg.LLM.Timeout, "PREDICTD_LLM_TIMEOUT")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PREDICTD_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PREDICTD_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "PREDICTD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTD_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PREDICTD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PREDICTD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PREDICTD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PREDICTD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTD_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "PREDICTD_S3_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDICTD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDICTD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PREDICTD_SERVER_API_KEY")
	setStr(&cfg.Server.WebhookSecret, "PREDICTD_SERVER_WEBHOOK_SECRET")
	setInt(&cfg.Server.RateLimit, "PREDICTD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PREDICTD_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PREDICTD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PREDICTD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PREDICTD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.MQTTBroker, "PREDICTD_NOTIFY_MQTT_BROKER")
	setStr(&cfg.Notify.MQTTTopic, "PREDICTD_NOTIFY_MQTT_TOPIC")
	setStr(&cfg.Notify.MQTTClientID, "PREDICTD_NOTIFY_MQTT_CLIENT_ID")
	setStringSlice(&cfg.Notify.Events, "PREDICTD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDICTD_MODE")
	setStr(&cfg.LogLevel, "PREDICTD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat32(dst *float32, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(f)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
