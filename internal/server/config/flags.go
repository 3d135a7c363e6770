package config

import (
	"flag"
	"os"
	"time"

	"github.com/mizphses/kips/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   credential store backend: memory, redis, or postgres
//	-r string   Redis URL (e.g., "redis://127.0.0.1:6379")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-p string   password pepper
//	-t int      bearer token validity, minutes
//	-i string   wallet issuer ID
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The duration
// flag is accepted as an integer in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-r", "-d", "-s", "-p", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "credential store backend")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Pepper, "p", config.Pepper, "password pepper")
	fs.StringVar(&config.WalletIssuerID, "i", config.WalletIssuerID, "wallet issuer ID")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}
