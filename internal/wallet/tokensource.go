package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionValidity is the lifetime requested for the signed assertion;
	// the provider caps it at one hour.
	assertionValidity = time.Hour

	// expirySkew is subtracted from a token's lifetime before caching, so a
	// token is never reused right at its expiry edge.
	expirySkew = 10 * time.Second
)

// TokenSource exchanges a signed service-account assertion for an OAuth2
// access token and memoizes the result in the injected Cache, keyed by the
// signing key ID and the requested scopes.
type TokenSource struct {
	creds      *Credentials
	cache      Cache
	httpClient *http.Client
	now        func() time.Time
}

// NewTokenSource builds a TokenSource around the given credentials and
// cache. A nil httpClient falls back to http.DefaultClient.
func NewTokenSource(creds *Credentials, cache Cache, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenSource{creds: creds, cache: cache, httpClient: httpClient, now: time.Now}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns a bearer access token valid for the given scopes, fetching a
// fresh one from the authorization server only on cache miss or expiry.
func (ts *TokenSource) Token(ctx context.Context, scopes []string) (string, error) {
	scope := strings.Join(scopes, " ")
	cacheKey := "token:" + ts.creds.PrivateKeyID + ":" + scope

	if token, ok := ts.cache.Lookup(cacheKey); ok {
		return token, nil
	}

	issued := ts.now()
	assertion, err := ts.signAssertion(scope, issued)
	if err != nil {
		return "", fmt.Errorf("error signing assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.creds.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if tr.ErrorDescription != "" {
			return "", fmt.Errorf("token exchange failed: %s", tr.ErrorDescription)
		}
		return "", fmt.Errorf("token exchange failed: status %d", resp.StatusCode)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token exchange failed: empty access token")
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = assertionValidity
	}
	ts.cache.Store(cacheKey, tr.AccessToken, issued.Add(lifetime-expirySkew))

	return tr.AccessToken, nil
}

func (ts *TokenSource) signAssertion(scope string, issued time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   ts.creds.ClientEmail,
		"scope": scope,
		"aud":   ts.creds.TokenURI,
		"iat":   issued.Unix(),
		"exp":   issued.Add(assertionValidity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if ts.creds.PrivateKeyID != "" {
		token.Header["kid"] = ts.creds.PrivateKeyID
	}
	return token.SignedString(ts.creds.PrivateKey)
}
