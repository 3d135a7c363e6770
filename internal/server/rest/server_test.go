package rest

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/accounts"
	"github.com/mizphses/kips/internal/server/config"
	"github.com/mizphses/kips/internal/server/credstore"
	"github.com/mizphses/kips/internal/wallet"
)

type testEnv struct {
	server   *Server
	accounts *accounts.Service
	store    *credstore.MemoryStore
}

func newTestEnv(t *testing.T, wc *wallet.Client) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Pepper = "P"
	cfg.SecretKey = "test-secret"

	store := credstore.NewMemoryStore()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	as := accounts.NewService(store, cfg, logger)

	return &testEnv{
		server:   NewServer(":0", logger, as, wc),
		accounts: as,
		store:    store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)

	decoded := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func (e *testEnv) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	w, _ := e.do(t, http.MethodPost, "/register",
		`{"email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := e.do(t, http.MethodPost, "/login",
		`{"email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestRoot(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	w, body := e.do(t, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to the Kips API", body["message"])
}

func TestRegister(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)

	w, _ := e.do(t, http.MethodPost, "/register", `{"email":"a@x.com","password":"pw1"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = e.do(t, http.MethodPost, "/register", `{"email":"a@x.com","password":"pw2"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = e.do(t, http.MethodPost, "/register", `{"email":"a@x.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_DenialsAreIndistinguishable(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.registerAndLogin(t, "a@x.com", "pw1")

	wWrongPassword, bodyWrong := e.do(t, http.MethodPost, "/login",
		`{"email":"a@x.com","password":"nope"}`, nil)
	wUnknownUser, bodyUnknown := e.do(t, http.MethodPost, "/login",
		`{"email":"ghost@x.com","password":"pw1"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, wWrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, wUnknownUser.Code)
	assert.Equal(t, bodyWrong, bodyUnknown, "wrong password and unknown user must look alike")
}

func TestGetKey_BearerAuth(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	token := e.registerAndLogin(t, "a@x.com", "pw1")

	w, body := e.do(t, http.MethodGet, "/me/key", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, w.Code)

	key, err := e.accounts.GetAPIKey(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, key, body["api_key"])
}

func TestGetKey_APIKeyAuth(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.registerAndLogin(t, "a@x.com", "pw1")

	key, err := e.accounts.GetAPIKey(context.Background(), "a@x.com")
	require.NoError(t, err)

	w, body := e.do(t, http.MethodGet, "/me/key", "", map[string]string{
		common.APIKeyHeaderName: key,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, key, body["api_key"])
}

func TestAuth_Denials(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.registerAndLogin(t, "a@x.com", "pw1")

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no credentials", nil},
		{"malformed authorization header", map[string]string{"Authorization": "Bearer"}},
		{"garbage token", map[string]string{"Authorization": "Bearer garbage"}},
		{"unknown api key", map[string]string{common.APIKeyHeaderName: "nope"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, body := e.do(t, http.MethodGet, "/me/key", "", tc.headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthorized", body["message"])
		})
	}
}

func TestRotateKey(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	token := e.registerAndLogin(t, "a@x.com", "pw1")

	oldKey, err := e.accounts.GetAPIKey(context.Background(), "a@x.com")
	require.NoError(t, err)

	w, body := e.do(t, http.MethodPost, "/me/key/rotate", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, w.Code)

	newKey, ok := body["api_key"].(string)
	require.True(t, ok)
	assert.NotEqual(t, oldKey, newKey)

	// The old key no longer authenticates.
	w, _ = e.do(t, http.MethodGet, "/me/key", "", map[string]string{
		common.APIKeyHeaderName: oldKey,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = e.do(t, http.MethodGet, "/me/key", "", map[string]string{
		common.APIKeyHeaderName: newKey,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPassEndpoints_WalletNotConfigured(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	token := e.registerAndLogin(t, "a@x.com", "pw1")

	for _, path := range []string{"/pass/class", "/pass/object"} {
		w, body := e.do(t, http.MethodPost, path, "", map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "wallet not configured", body["message"])
	}
}

func walletTestKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newFakeWalletClient(t *testing.T) *wallet.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.fake",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /genericClass/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("POST /genericClass", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.GoogleClientEmail = "svc@project.iam.example.com"
	cfg.GooglePrivateKey = walletTestKeyPEM(t)
	cfg.GoogleTokenURI = srv.URL + "/token"
	cfg.WalletIssuerID = "3388000000012345678"
	cfg.WalletBaseURL = srv.URL

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	wc, err := wallet.NewClient(cfg, wallet.NewMemoryCache(), srv.Client(), logger)
	require.NoError(t, err)
	return wc
}

func TestPassClass(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, newFakeWalletClient(t))
	token := e.registerAndLogin(t, "a@x.com", "pw1")

	w, body := e.do(t, http.MethodPost, "/pass/class", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pass class ready", body["message"])
	assert.Equal(t, true, body["created"])
}

func TestPassObject(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, newFakeWalletClient(t))
	token := e.registerAndLogin(t, "a@x.com", "pw1")

	w, body := e.do(t, http.MethodPost, "/pass/object", `{"content":"hello"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	saveURL, ok := body["save_url"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(saveURL, "https://pay.google.com/gp/v/save/"))

	objectID, ok := body["object_id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(objectID, "3388000000012345678."))

	// The issued object ID is persisted for the account.
	stored, err := e.accounts.LastPassObject(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, objectID, stored)
}
