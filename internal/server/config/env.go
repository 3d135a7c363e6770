package config

import (
	"os"
	"time"
)

// parseEnv overlays Config fields from KIPS_* environment variables.
// Secrets (pepper, JWT secret, the service-account private key) are expected
// to arrive this way in deployments; main loads an optional .env file first.
func parseEnv(config *Config) {
	setenv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setenv(&config.EndpointAddr, "KIPS_LISTEN_ADDR")
	setenv(&config.StoreBackend, "KIPS_STORE_BACKEND")
	setenv(&config.RedisURL, "KIPS_REDIS_URL")
	setenv(&config.RedisKeyPrefix, "KIPS_REDIS_KEY_PREFIX")
	setenv(&config.DatabaseDSN, "KIPS_DATABASE_DSN")
	setenv(&config.SecretKey, "KIPS_SECRET_KEY")
	setenv(&config.Pepper, "KIPS_PEPPER")

	if v := os.Getenv("KIPS_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.TokenValidityDuration = d
		}
	}

	setenv(&config.GoogleClientEmail, "GOOGLE_SERVICE_ACCOUNT_CLIENT_EMAIL")
	setenv(&config.GooglePrivateKey, "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY")
	setenv(&config.GooglePrivateKeyID, "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY_ID")
	setenv(&config.GoogleProjectID, "GOOGLE_SERVICE_ACCOUNT_PROJECT_ID")
	setenv(&config.GoogleClientID, "GOOGLE_SERVICE_ACCOUNT_CLIENT_ID")
	setenv(&config.GoogleTokenURI, "GOOGLE_SERVICE_ACCOUNT_TOKEN_URI")
	setenv(&config.WalletIssuerID, "GOOGLE_PAY_ISSUER_ID")
	setenv(&config.WalletBaseURL, "KIPS_WALLET_BASE_URL")
}
