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
// built-in defaults, applies HLCOPY_* environment variable overrides, and
// returns the final Config. A missing config file is not an error: deployment
// platforms typically inject everything through the environment. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HLCOPY_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "DATABASE_URL") // platform-injected alias
	setStr(&cfg.Database.DSN, "HLCOPY_DATABASE_DSN")
	setStr(&cfg.Database.Host, "HLCOPY_DATABASE_HOST")
	setInt(&cfg.Database.Port, "HLCOPY_DATABASE_PORT")
	setStr(&cfg.Database.Database, "HLCOPY_DATABASE_NAME")
	setStr(&cfg.Database.User, "HLCOPY_DATABASE_USER")
	setStr(&cfg.Database.Password, "HLCOPY_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "HLCOPY_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "HLCOPY_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "HLCOPY_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "HLCOPY_DATABASE_RUN_MIGRATIONS")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.APIURL, "HLCOPY_HYPERLIQUID_API_URL")
	setStr(&cfg.Hyperliquid.PrivateKey, "HLCOPY_HYPERLIQUID_PRIVATE_KEY")
	setStr(&cfg.Hyperliquid.EncryptedKeyPath, "HLCOPY_HYPERLIQUID_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Hyperliquid.KeyPassword, "HLCOPY_HYPERLIQUID_KEY_PASSWORD")
	setStr(&cfg.Hyperliquid.WalletAddress, "HLCOPY_HYPERLIQUID_WALLET_ADDRESS")
	setBool(&cfg.Hyperliquid.Testnet, "HLCOPY_HYPERLIQUID_TESTNET")

	// ── Sizing ──
	setFloat64(&cfg.Sizing.SizePercent, "HLCOPY_SIZING_SIZE_PERCENT")
	setFloat64(&cfg.Sizing.SlippagePercent, "HLCOPY_SIZING_SLIPPAGE_PERCENT")

	// ── Executor ──
	setDuration(&cfg.Executor.PollInterval, "HLCOPY_EXECUTOR_POLL_INTERVAL")
	setDuration(&cfg.Executor.HTTPTimeout, "HLCOPY_EXECUTOR_HTTP_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HLCOPY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HLCOPY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HLCOPY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "HLCOPY_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "HLCOPY_METRICS_ENABLED")
	setInt(&cfg.Metrics.Port, "HLCOPY_METRICS_PORT")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "HLCOPY_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
			return
		}
		// Bare integers are treated as seconds for compatibility with
		// POLL_INTERVAL_SECONDS-style deployments.
		if n, err := strconv.Atoi(v); err == nil {
			dst.Duration = time.Duration(n) * time.Second
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
