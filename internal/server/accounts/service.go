// Package accounts implements the credential lifecycle for user accounts:
// registration, password authentication, bearer token issuance and
// verification, and API key issuance and rotation.
//
// All deny outcomes are reported as plain booleans so the transport layer
// cannot leak which check failed; the specific reason is logged at debug
// level only. Errors are reserved for store failures.
package accounts

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/auth"
	"github.com/mizphses/kips/internal/server/config"
	"github.com/mizphses/kips/internal/server/credstore"
)

// apiKeySize is the number of random bytes per API key (256 bits before hex
// encoding).
const apiKeySize = 32

// Service provides authentication-related operations over the credential
// store. Emails are compared literally (case-sensitive); normalization is a
// caller concern.
type Service struct {
	store         credstore.Store
	pepper        string
	jwtSecret     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

// NewService constructs a Service using the credential store and server config.
func NewService(store credstore.Store, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		store:         store,
		pepper:        cfg.Pepper,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		logger:        logger.With("module", "accounts"),
	}
}

// Register creates a new user with the given email and password and issues
// the account's first API key. Returns false without mutation if the email
// is already registered.
func (s *Service) Register(ctx context.Context, email, password string) (bool, error) {
	_, err := s.store.Get(ctx, credstore.MappingUsers, email)
	if err == nil {
		s.logger.Debug(ctx, "registration denied", "reason", common.ErrorAlreadyExists.Error())
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("error checking user record: %w", err)
	}

	apiKey, err := s.newAPIKey()
	if err != nil {
		return false, common.ErrorInternal
	}

	// The user record is written first; the key pair goes in one batch so
	// the reverse index cannot be observed without its forward record.
	if err := s.store.Put(ctx, credstore.MappingUsers, email, s.hashPassword(password)); err != nil {
		return false, fmt.Errorf("error creating user record: %w", err)
	}
	if err := s.store.Apply(ctx,
		credstore.PutOp(credstore.MappingKeys, email, apiKey),
		credstore.PutOp(credstore.MappingKeyByMail, apiKey, email),
	); err != nil {
		return false, fmt.Errorf("error creating api key records: %w", err)
	}

	s.logger.Info(ctx, "registered", "email", email)
	return true, nil
}

// Authenticate verifies the password against the stored digest. An absent
// account is indistinguishable from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (bool, error) {
	stored, err := s.store.Get(ctx, credstore.MappingUsers, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "authentication denied", "reason", common.ErrorNotFound.Error())
			return false, nil
		}
		return false, fmt.Errorf("error reading user record: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(s.hashPassword(password))) != 1 {
		s.logger.Debug(ctx, "authentication denied", "reason", common.ErrorUnauthorized.Error())
		return false, nil
	}

	return true, nil
}

// IssueToken mints a bearer token asserting email as subject.
func (s *Service) IssueToken(ctx context.Context, email string) (string, error) {
	token, err := auth.GenerateToken(email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// AuthenticateByToken validates the token's signature and expiry and checks
// that its subject still has a user record. A valid signature for a
// since-deleted user is rejected.
func (s *Service) AuthenticateByToken(ctx context.Context, token string) (string, bool, error) {
	email, err := auth.GetSubjectFromToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Debug(ctx, "token denied", "reason", err.Error())
		return "", false, nil
	}

	if _, err := s.store.Get(ctx, credstore.MappingUsers, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "token denied", "reason", "subject has no user record")
			return "", false, nil
		}
		return "", false, fmt.Errorf("error reading user record: %w", err)
	}

	return email, true, nil
}

// AuthenticateByHeader extracts the token from an Authorization header value
// and verifies it. A missing or malformed header yields (false, "") rather
// than an error; otherwise the raw token is returned alongside the verdict
// so callers can log it.
func (s *Service) AuthenticateByHeader(ctx context.Context, headerValue string) (bool, string, error) {
	token, ok := auth.FromAuthHeader(headerValue)
	if !ok {
		return false, "", nil
	}

	_, valid, err := s.AuthenticateByToken(ctx, token)
	return valid, token, err
}

// GetAPIKey returns the account's active API key, or common.ErrorNotFound.
func (s *Service) GetAPIKey(ctx context.Context, email string) (string, error) {
	return s.store.Get(ctx, credstore.MappingKeys, email)
}

// ResolveEmailByAPIKey resolves an API key back to the owning email via the
// reverse index, or common.ErrorNotFound.
func (s *Service) ResolveEmailByAPIKey(ctx context.Context, apiKey string) (string, error) {
	return s.store.Get(ctx, credstore.MappingKeyByMail, apiKey)
}

// RevokeAndReissue invalidates the account's current API key and issues a
// new one. Returns false if the account has no key to revoke. The old key is
// removed from both mappings before the new one is written.
func (s *Service) RevokeAndReissue(ctx context.Context, email string) (bool, error) {
	oldKey, err := s.store.Get(ctx, credstore.MappingKeys, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "revoke denied", "reason", common.ErrorNotFound.Error())
			return false, nil
		}
		return false, fmt.Errorf("error reading api key record: %w", err)
	}

	newKey, err := s.newAPIKey()
	if err != nil {
		return false, common.ErrorInternal
	}

	if err := s.store.Apply(ctx,
		credstore.DeleteOp(credstore.MappingKeys, email),
		credstore.DeleteOp(credstore.MappingKeyByMail, oldKey),
		credstore.PutOp(credstore.MappingKeys, email, newKey),
		credstore.PutOp(credstore.MappingKeyByMail, newKey, email),
	); err != nil {
		return false, fmt.Errorf("error rotating api key records: %w", err)
	}

	s.logger.Info(ctx, "api key rotated", "email", email)
	return true, nil
}

// RecordPassObject persists the wallet pass object ID last issued to the
// account.
func (s *Service) RecordPassObject(ctx context.Context, email, objectID string) error {
	if err := s.store.Put(ctx, credstore.MappingPasses, email, objectID); err != nil {
		return fmt.Errorf("error recording pass object: %w", err)
	}
	return nil
}

// LastPassObject returns the most recently issued wallet pass object ID for
// the account, or common.ErrorNotFound.
func (s *Service) LastPassObject(ctx context.Context, email string) (string, error) {
	return s.store.Get(ctx, credstore.MappingPasses, email)
}

// hashPassword computes SHA3-512(password ++ pepper), hex encoded.
func (s *Service) hashPassword(password string) string {
	sum := sha3.Sum512([]byte(password + s.pepper))
	return hex.EncodeToString(sum[:])
}

func (s *Service) newAPIKey() (string, error) {
	return common.MakeRandHexString(apiKeySize)
}
