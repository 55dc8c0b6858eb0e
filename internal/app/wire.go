package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hlcopy/hlcopybot/internal/config"
	"github.com/hlcopy/hlcopybot/internal/crypto"
	"github.com/hlcopy/hlcopybot/internal/domain"
	"github.com/hlcopy/hlcopybot/internal/notify"
	"github.com/hlcopy/hlcopybot/internal/platform/hyperliquid"
	"github.com/hlcopy/hlcopybot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the executor needs. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	SignalStore domain.SignalStore
	Account     domain.AccountGateway
	Submitter   domain.OrderSubmitter
	Notifier    *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL signal store ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.SignalStore = postgres.NewSignalStore(pgClient.Pool())

	// --- Hyperliquid client (account gateway + order submitter) ---
	privateKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Hyperliquid.PrivateKey,
		EncryptedKeyPath: cfg.Hyperliquid.EncryptedKeyPath,
		KeyPassword:      cfg.Hyperliquid.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signing key: %w", err)
	}

	hlClient := hyperliquid.NewClient(cfg.Hyperliquid.APIURL, cfg.Executor.HTTPTimeout.Duration, logger)
	if err := hlClient.SetPrivateKey(privateKey); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: hyperliquid: %w", err)
	}
	hlClient.SetTestnet(cfg.Hyperliquid.Testnet)
	hlClient.SetSlippagePercent(cfg.Sizing.SlippagePercent)

	deps.Account = hlClient
	deps.Submitter = hlClient

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Executor.HTTPTimeout.Duration))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(
			cfg.Notify.DiscordWebhookURL, cfg.Executor.HTTPTimeout.Duration))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
