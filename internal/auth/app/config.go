package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signetauth/signet/pkg/jwtx"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens

	Algorithm    string // Optional: JWT signing algorithm (RS256, EdDSA) (default: EdDSA)
	RSABits      int    // Optional: RSA key size for RS256 (default: 4096)
	NumKeys      int    // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	DatabaseFile string // Optional: path to SQLite database file (default: ./signet.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	AccessTokenTTL   time.Duration // Access token lifetime (default: 15m)
	IdentityTokenTTL time.Duration // Identity token lifetime (default: 15m)
	RefreshTokenTTL  time.Duration // Refresh token lifetime (default: 7 days)
	ReuseLeeway      time.Duration // Window in which a consumed refresh token is tolerated again (default: 0)

	LockoutThreshold int           // Failed sign-ins before the account locks (default: 5)
	LockoutWindow    time.Duration // How long the lock holds (default: 5m)

	SeedUsername      string // Optional: account created on first run when the store is empty
	SeedPassword      string // Required alongside SeedUsername for seeding to happen
	SeedPreferredName string // Optional: display name for the seed account
	SeedRole          string // Optional: role for the seed account (default: admin)

	ExtraClaims map[string]string // Optional static claims stamped on every principal

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       os.Getenv("SIGNET_ISSUER"),
		Algorithm:    getEnvOrDefault("SIGNET_ALGORITHM", "EdDSA"),
		DatabaseFile: getEnvOrDefault("SIGNET_DATABASE_FILE", "signet.db"),
		PepperFile:   getEnvOrDefault("SIGNET_PEPPER_FILE", "pepper"),

		AccessTokenTTL:   getEnvDurationOrDefault("SIGNET_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		IdentityTokenTTL: getEnvDurationOrDefault("SIGNET_IDENTITY_TOKEN_TTL", jwtx.DefaultIdentityTokenTTL),
		RefreshTokenTTL:  getEnvDurationOrDefault("SIGNET_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		ReuseLeeway:      getEnvDurationOrDefault("SIGNET_REFRESH_REUSE_LEEWAY", 0),

		LockoutThreshold: getEnvIntOrDefault("SIGNET_LOCKOUT_THRESHOLD", 5),
		LockoutWindow:    getEnvDurationOrDefault("SIGNET_LOCKOUT_WINDOW", 5*time.Minute),

		SeedUsername:      os.Getenv("SIGNET_SEED_USERNAME"),
		SeedPassword:      os.Getenv("SIGNET_SEED_PASSWORD"),
		SeedPreferredName: getEnvOrDefault("SIGNET_SEED_NAME", "Administrator"),
		SeedRole:          getEnvOrDefault("SIGNET_SEED_ROLE", "admin"),

		ExtraClaims: parseExtraClaims(os.Getenv("SIGNET_EXTRA_CLAIMS")),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Parse RSA bits (only relevant for RS256)
	if rsaBitsStr := os.Getenv("SIGNET_RSA_BITS"); rsaBitsStr != "" {
		if bits, err := strconv.Atoi(rsaBitsStr); err == nil {
			cfg.RSABits = bits
		}
		// If parsing fails, RSABits remains 0 (will use default in KeyManager)
	}

	// Parse number of keys (default: 3)
	if numKeysStr := os.Getenv("SIGNET_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "signet"
	}

	return cfg
}

// parseExtraClaims reads "type=value,type=value" pairs. Malformed entries are
// skipped.
func parseExtraClaims(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
