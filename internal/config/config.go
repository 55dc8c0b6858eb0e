// Package config defines the top-level configuration for the copy-trade
// executor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HLCOPY_* environment variables.
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Sizing      SizingConfig      `toml:"sizing"`
	Executor    ExecutorConfig    `toml:"executor"`
	Notify      NotifyConfig      `toml:"notify"`
	Metrics     MetricsConfig     `toml:"metrics"`
	LogLevel    string            `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the signal store.
type DatabaseConfig struct {
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

// HyperliquidConfig holds the exchange endpoint and account credentials.
type HyperliquidConfig struct {
	APIURL string `toml:"api_url"`
	// PrivateKey is the hex-encoded signing key. Leave empty and set
	// EncryptedKeyPath + KeyPassword to load an encrypted key file instead.
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// WalletAddress is the account whose state is mirrored and traded.
	WalletAddress string `toml:"wallet_address"`
	// Testnet selects the testnet signing source.
	Testnet bool `toml:"testnet"`
}

// SizingConfig holds position sizing parameters.
type SizingConfig struct {
	// SizePercent is the share of account equity committed per order.
	SizePercent float64 `toml:"size_percent"`
	// SlippagePercent bounds the IOC order price around the mid price.
	SlippagePercent float64 `toml:"slippage_percent"`
}

// ExecutorConfig holds poll-loop timing parameters.
type ExecutorConfig struct {
	PollInterval duration `toml:"poll_interval"`
	HTTPTimeout  duration `toml:"http_timeout"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig holds the Prometheus listener parameters.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: false,
		},
		Hyperliquid: HyperliquidConfig{
			APIURL: "https://api.hyperliquid.xyz",
		},
		Sizing: SizingConfig{
			SizePercent:     5.0,
			SlippagePercent: 5.0,
		},
		Executor: ExecutorConfig{
			PollInterval: duration{5 * time.Second},
			HTTPTimeout:  duration{10 * time.Second},
		},
		Notify: NotifyConfig{
			// Empty means every outcome event is delivered.
			Events: []string{},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database — either a full DSN or host/database parts.
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Hyperliquid — one signing key source, plus the tracked wallet.
	if c.Hyperliquid.APIURL == "" {
		errs = append(errs, "hyperliquid: api_url must not be empty")
	}
	if c.Hyperliquid.PrivateKey == "" && c.Hyperliquid.EncryptedKeyPath == "" {
		errs = append(errs, "hyperliquid: either private_key or encrypted_key_path must be set")
	}
	if c.Hyperliquid.EncryptedKeyPath != "" && c.Hyperliquid.KeyPassword == "" {
		errs = append(errs, "hyperliquid: key_password is required when encrypted_key_path is set")
	}
	if c.Hyperliquid.WalletAddress == "" {
		errs = append(errs, "hyperliquid: wallet_address must not be empty")
	}

	// Sizing
	if c.Sizing.SizePercent <= 0 || c.Sizing.SizePercent > 100 {
		errs = append(errs, fmt.Sprintf("sizing: size_percent must be in (0, 100], got %g", c.Sizing.SizePercent))
	}
	if c.Sizing.SlippagePercent < 0 || c.Sizing.SlippagePercent > 100 {
		errs = append(errs, fmt.Sprintf("sizing: slippage_percent must be in [0, 100], got %g", c.Sizing.SlippagePercent))
	}

	// Executor
	if c.Executor.PollInterval.Duration <= 0 {
		errs = append(errs, "executor: poll_interval must be positive")
	}
	if c.Executor.HTTPTimeout.Duration <= 0 {
		errs = append(errs, "executor: http_timeout must be positive")
	}

	// Notify — both Telegram fields go together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	// Metrics
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, fmt.Sprintf("metrics: port must be 1-65535, got %d", c.Metrics.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
