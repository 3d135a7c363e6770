// Package auth mints and verifies the bearer tokens issued to users.
// Tokens are compact HS256 JWTs with registered claims only: the user's
// email as subject, issued-at, and expiry.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mizphses/kips/internal/common"
)

// GenerateToken signs a token asserting subject for validityDuration.
func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectFromToken validates the signature and expiry of tokenString and
// returns the subject claim. Expired tokens yield common.ErrTokenExpired;
// any other decoding or signature problem yields common.ErrInvalidToken.
func GetSubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", common.ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// FromAuthHeader extracts the token from a "<scheme> <token>" header value:
// the value is split on the first space and the second field is taken. A
// missing header or a value without a token field yields ("", false).
func FromAuthHeader(headerValue string) (string, bool) {
	if headerValue == "" {
		return "", false
	}

	_, token, found := strings.Cut(headerValue, " ")
	if !found || token == "" {
		return "", false
	}

	return token, true
}
