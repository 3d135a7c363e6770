// Package wallet talks to the external digital-wallet provider: it exchanges
// service-account credentials for OAuth2 access tokens, creates generic pass
// classes and objects over the provider's REST API, and signs save-to-wallet
// links.
package wallet

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mizphses/kips/internal/server/config"
)

// ErrNotConfigured is returned when the service-account fields required for
// wallet operations are absent from the configuration.
var ErrNotConfigured = errors.New("wallet provider not configured")

// Credentials holds the decoded service-account identity used to sign
// assertions toward the wallet provider.
type Credentials struct {
	ClientEmail  string
	PrivateKey   *rsa.PrivateKey
	PrivateKeyID string
	ProjectID    string
	ClientID     string
	TokenURI     string
}

// CredentialsFromConfig parses the service-account fields out of the server
// config. The private key PEM may carry literal "\n" sequences, as is common
// when the key is passed through an environment variable.
func CredentialsFromConfig(cfg *config.Config) (*Credentials, error) {
	if cfg.GoogleClientEmail == "" || cfg.GooglePrivateKey == "" {
		return nil, ErrNotConfigured
	}

	pemData := strings.ReplaceAll(cfg.GooglePrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("error parsing service account key: %w", err)
	}

	return &Credentials{
		ClientEmail:  cfg.GoogleClientEmail,
		PrivateKey:   key,
		PrivateKeyID: cfg.GooglePrivateKeyID,
		ProjectID:    cfg.GoogleProjectID,
		ClientID:     cfg.GoogleClientID,
		TokenURI:     cfg.GoogleTokenURI,
	}, nil
}
