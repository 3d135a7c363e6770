package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mizphses/kips/internal/flagx"
	"github.com/mizphses/kips/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "2h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files; after unmarshalling its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	StoreBackend          string         `json:"store_backend"`
	RedisURL              string         `json:"redis_url"`
	RedisKeyPrefix        string         `json:"redis_key_prefix"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	Pepper                string         `json:"pepper"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	GoogleClientEmail     string         `json:"google_client_email"`
	GooglePrivateKey      string         `json:"google_private_key"`
	GooglePrivateKeyID    string         `json:"google_private_key_id"`
	GoogleProjectID       string         `json:"google_project_id"`
	GoogleClientID        string         `json:"google_client_id"`
	GoogleTokenURI        string         `json:"google_token_uri"`
	WalletIssuerID        string         `json:"wallet_issuer_id"`
	WalletBaseURL         string         `json:"wallet_base_url"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config command-line flags. If neither flag is set, no file is
// loaded. If the file cannot be read or contains invalid JSON, the function
// panics. Empty fields in the file leave the current Config value untouched.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	overlay(&config.EndpointAddr, c.EndpointAddr)
	overlay(&config.StoreBackend, c.StoreBackend)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.RedisKeyPrefix, c.RedisKeyPrefix)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.Pepper, c.Pepper)
	overlay(&config.GoogleClientEmail, c.GoogleClientEmail)
	overlay(&config.GooglePrivateKey, c.GooglePrivateKey)
	overlay(&config.GooglePrivateKeyID, c.GooglePrivateKeyID)
	overlay(&config.GoogleProjectID, c.GoogleProjectID)
	overlay(&config.GoogleClientID, c.GoogleClientID)
	overlay(&config.GoogleTokenURI, c.GoogleTokenURI)
	overlay(&config.WalletIssuerID, c.WalletIssuerID)
	overlay(&config.WalletBaseURL, c.WalletBaseURL)

	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
}
