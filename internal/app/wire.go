package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/predictplugin/internal/actions"
	s3blob "github.com/alanyoungcy/predictplugin/internal/blob/s3"
	"github.com/alanyoungcy/predictplugin/internal/cache/redis"
	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/chain"
	"github.com/alanyoungcy/predictplugin/internal/config"
	"github.com/alanyoungcy/predictplugin/internal/crypto"
	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/executor"
	"github.com/alanyoungcy/predictplugin/internal/extract"
	"github.com/alanyoungcy/predictplugin/internal/format"
	"github.com/alanyoungcy/predictplugin/internal/intent"
	"github.com/alanyoungcy/predictplugin/internal/llm"
	"github.com/alanyoungcy/predictplugin/internal/notify"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
	"github.com/alanyoungcy/predictplugin/internal/server/handler"
	"github.com/alanyoungcy/predictplugin/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional backends are nil
// when disabled in the configuration.
type Dependencies struct {
	Plugin  *plugin.Plugin
	Gateway chain.Gateway

	// Coordination (Redis)
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus
	// MemoryGuard is set when Redis is disabled; it needs a cleanup loop.
	MemoryGuard *executor.MemoryGuard

	// Ledger (Postgres)
	ExecutionStore domain.ExecutionStore
	AuditStore     domain.AuditStore

	// Health checks per enabled backend.
	Health map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Health: map[string]handler.Pinger{}}

	// --- Signing key and chain gateway ---
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Chain.PrivateKey,
		EncryptedKeyPath: cfg.Chain.EncryptedKeyPath,
		KeyPassword:      cfg.Chain.KeyPassword,
	})
	if err != nil {
		return fail(domain.ConfigurationError("signing key: %v", err))
	}
	settings, err := config.LoadPluginSettings(resolvedSettings(cfg, key), cfg.Chain.ExpectedNetwork)
	if err != nil {
		return fail(err)
	}
	gw, err := chain.Dial(ctx, chain.ClientConfig{
		ProviderURL:  settings.ProviderURL,
		ChainID:      cfg.Chain.ChainID,
		PrivateKey:   settings.PrivateKey,
		PollInterval: cfg.Chain.Poll(),
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: chain: %w", err))
	}
	closers = append(closers, gw.Close)
	deps.Gateway = gw

	// --- Redis (claims, rate limits, reply fan-out) ---
	var guard executor.Guard
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.RateLimiter = redis.NewRateLimiter(rc, cfg.Server.RateLimit, cfg.Server.Window())
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.Health["redis"] = rc.Ping
		guard = executor.NewLockGuard(redis.NewLockManager(rc), cfg.Trading.DedupWindow(), logger)
	} else {
		deps.MemoryGuard = executor.NewMemoryGuard(cfg.Trading.DedupWindow())
		guard = deps.MemoryGuard
	}

	// --- Pipeline ---
	cat, err := actions.New()
	if err != nil {
		return fail(fmt.Errorf("wire: catalog: %w", err))
	}

	var (
		classifier intent.Classifier
		generator  extract.Generator
	)
	if cfg.LLM.Provider != "" {
		lc := llm.New(llm.Config{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.RequestTimeout(),
		}, logger)
		classifier, generator = lc, lc
	}

	liquidity, err := toWei(cfg.Trading.DefaultInitialLiquidity)
	if err != nil {
		return fail(domain.ConfigurationError("default_initial_liquidity: %v", err))
	}

	collateral := settings.CollateralToken

	orch := executor.NewOrchestrator(gw, executor.Config{
		ReceiptTimeout: cfg.Chain.ReceiptWait(),
		Settings: catalog.Settings{
			Factory:         settings.FactoryAddress,
			CollateralToken: collateral,
			MaxImpactBps:    int64(cfg.Trading.MaxPriceImpactBps),
			ListConcurrency: cfg.Trading.ListConcurrency,
			LogsFromBlock:   cfg.Chain.LogsFromBlock,
		},
	}, guard, logger)

	deps.Plugin = plugin.New(cat,
		intent.NewResolver(cat, classifier, logger),
		extract.New(generator, logger),
		orch,
		format.New(),
		plugin.Config{
			Capabilities:     capabilities(gw.Sender(), collateral),
			MaxImpactBps:     int64(cfg.Trading.MaxPriceImpactBps),
			InitialLiquidity: liquidity,
			ProtocolFee:      int64(cfg.Trading.DefaultProtocolFee),
			MarketDuration:   cfg.Trading.MarketDuration(),
		},
		logger,
	)

	// --- PostgreSQL (execution ledger) ---
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		deps.ExecutionStore = postgres.NewExecutionStore(pg.Pool())
		deps.AuditStore = postgres.NewAuditStore(pg.Pool())
		deps.Health["postgres"] = pg.Ping
		deps.Plugin.AddObserver(plugin.NewLedgerObserver(deps.ExecutionStore, deps.AuditStore))
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Health["s3"] = sc.Health
		arch := s3blob.NewArchiver(s3blob.NewWriter(sc), s3blob.NewReader(sc), cfg.S3.Prefix)
		deps.Plugin.AddObserver(plugin.NewArchiveObserver(arch))
	}

	// --- Notifications ---
	senders, err := buildSenders(cfg.Notify)
	if err != nil {
		return fail(fmt.Errorf("wire: notify: %w", err))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
	closers = append(closers, notifier.Close)
	if notifier.Enabled() {
		deps.Plugin.AddObserver(plugin.NewNotifyObserver(notifier))
	}

	if deps.SignalBus != nil {
		deps.Plugin.AddObserver(plugin.NewBusObserver(deps.SignalBus))
	}

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("sender", gw.Sender().Hex()),
		slog.Int("operations", len(cat.Eligible(deps.Plugin.Capabilities()))),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("postgres", cfg.Postgres.Enabled),
		slog.Bool("s3", cfg.S3.Enabled),
		slog.Bool("llm", cfg.LLM.Provider != ""),
	)
	return deps, cleanup, nil
}

// resolvedSettings serves the framework settings from cfg, with the private
// key replaced by the one actually loaded (it may come from an encrypted file).
func resolvedSettings(cfg *config.Config, key string) config.SettingGetter {
	base := config.NewSettings(cfg)
	return config.GetterFunc(func(name string) (string, bool) {
		if name == config.SettingPrivateKey {
			return "0x" + strings.TrimPrefix(key, "0x"), key != ""
		}
		return base.GetSetting(name)
	})
}

// capabilities derives what this process can do from the loaded signer and
// the configured collateral token.
func capabilities(sender, collateral common.Address) catalog.Capabilities {
	return catalog.Capabilities{
		catalog.CapChain:      true,
		catalog.CapSigner:     sender != (common.Address{}),
		catalog.CapCollateral: collateral != (common.Address{}),
	}
}

func buildSenders(cfg config.NotifyConfig) ([]notify.Sender, error) {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	if cfg.MQTTBroker != "" {
		m, err := notify.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			return nil, err
		}
		senders = append(senders, m)
	}
	return senders, nil
}

// toWei parses a human token amount into 18-decimal base units.
func toWei(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("must be positive, got %s", s)
	}
	return d.Shift(catalog.TokenDecimals).Truncate(0).BigInt(), nil
}
