package app

import (
	"fmt"
	"log/slog"

	"github.com/signetauth/signet/pkg/jwtx"
)

// InitAuthKeys creates a new KeyManager with the configured algorithm. Keys
// are ephemeral: generated on startup and stored only in memory, so all
// outstanding access tokens become invalid when the service restarts.
// Refresh tokens are opaque and stored server-side, they survive.
//
// Supported algorithms: RS256, EdDSA
//
// By default, generates 3 signing keys with random identifiers for improved
// availability and load distribution. Use SIGNET_NUM_KEYS to customize.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	logger.Info("initializing ephemeral key manager",
		"algorithm", cfg.Algorithm,
		"num_keys", cfg.NumKeys,
	)

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  nil, // no audience validation
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"algorithm", keyManager.Algorithm(),
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("all existing tokens are now invalid due to key rotation on startup")

	return keyManager, nil
}
