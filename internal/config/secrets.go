package config

import (
	"log/slog"
	"slices"
)

const redacted = "***"

// Redacted returns a copy of c with every credential masked. Slices are
// cloned so the copy can be changed freely.
func (c Config) Redacted() Config {
	for _, s := range []*string{
		&c.Chain.PrivateKey, &c.Chain.KeyPassword,
		&c.LLM.APIKey,
		&c.Postgres.DSN, &c.Postgres.Password,
		&c.Redis.Password,
		&c.S3.AccessKey, &c.S3.SecretKey,
		&c.Server.APIKey, &c.Server.WebhookSecret,
		&c.Notify.TelegramToken, &c.Notify.DiscordWebhookURL,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	c.Notify.Events = slices.Clone(c.Notify.Events)
	c.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	return c
}

// RedactedConfig is Redacted for callers holding a pointer.
func RedactedConfig(cfg *Config) Config {
	return cfg.Redacted()
}

// LogValue implements slog.LogValuer. It reports what is switched on and
// where the key comes from, never the secrets themselves.
func (c Config) LogValue() slog.Value {
	keySource := "none"
	switch {
	case c.Chain.PrivateKey != "":
		keySource = "inline"
	case c.Chain.EncryptedKeyPath != "":
		keySource = "file"
	}
	return slog.GroupValue(
		slog.String("mode", c.Mode),
		slog.String("network", c.Chain.ExpectedNetwork),
		slog.Int64("chain_id", c.Chain.ChainID),
		slog.String("key_source", keySource),
		slog.String("factory", c.Chain.FactoryAddress),
		slog.Int("max_price_impact_bps", c.Trading.MaxPriceImpactBps),
		slog.String("llm", c.LLM.Provider),
		slog.Bool("redis", c.Redis.Enabled),
		slog.Bool("postgres", c.Postgres.Enabled),
		slog.Bool("s3", c.S3.Enabled),
		slog.Bool("api_key", c.Server.APIKey != ""),
		slog.Bool("webhook_signing", c.Server.WebhookSecret != ""),
		slog.Int("notify_events", len(c.Notify.Events)),
	)
}
