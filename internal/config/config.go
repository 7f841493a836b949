// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds connection pool settings for the record store.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ContentStoreConfig holds the pinning service settings.
type ContentStoreConfig struct {
	APIURL  string
	Gateway string
	JWT     string
	Timeout time.Duration
}

// LedgerConfig holds the mint RPC settings.
type LedgerConfig struct {
	RPCURL          string
	ContractAddress string
	WalletAddress   string
	PollInterval    time.Duration
	ConfirmTimeout  time.Duration
}

// Config is the full server configuration.
type Config struct {
	Host string
	Port int

	JWTSecret string
	TokenTTL  time.Duration

	Database     DatabaseConfig
	ContentStore ContentStoreConfig
	Ledger       LedgerConfig

	LogLevel  string
	LogFormat string

	// RequireDocumentFile makes the secondary document mandatory on
	// submission instead of optional.
	RequireDocumentFile bool

	PublicRateLimit int
	PublicRateBurst int

	AllowedOrigins []string

	SuperAdminEmail    string
	SuperAdminPassword string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Host:      envOr("HOST", "0.0.0.0"),
		Port:      envIntOr("PORT", 8080),
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  envDurationOr("TOKEN_TTL", 7*24*time.Hour),
		Database: DatabaseConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envIntOr("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envIntOr("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDurationOr("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		ContentStore: ContentStoreConfig{
			APIURL:  envOr("PINATA_API_URL", "https://api.pinata.cloud"),
			Gateway: envOr("PINATA_GATEWAY", "gateway.pinata.cloud"),
			JWT:     os.Getenv("PINATA_JWT"),
			Timeout: envDurationOr("PINATA_TIMEOUT", 60*time.Second),
		},
		Ledger: LedgerConfig{
			RPCURL:          os.Getenv("RPC_URL"),
			ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
			WalletAddress:   os.Getenv("WALLET_ADDRESS"),
			PollInterval:    envDurationOr("LEDGER_POLL_INTERVAL", 2*time.Second),
			ConfirmTimeout:  envDurationOr("LEDGER_CONFIRM_TIMEOUT", 90*time.Second),
		},
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "text"),
		RequireDocumentFile: envBoolOr("REQUIRE_DOCUMENT_FILE", false),
		PublicRateLimit:     envIntOr("PUBLIC_RATE_LIMIT", 20),
		PublicRateBurst:     envIntOr("PUBLIC_RATE_BURST", 40),
		AllowedOrigins:      splitList(envOr("CORS_ALLOWED_ORIGINS", "*")),
		SuperAdminEmail:     os.Getenv("SUPERADMIN_EMAIL"),
		SuperAdminPassword:  os.Getenv("SUPERADMIN_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
