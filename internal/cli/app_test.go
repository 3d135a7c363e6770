package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/accounts"
	"github.com/mizphses/kips/internal/server/config"
	"github.com/mizphses/kips/internal/server/credstore"
)

func newTestApp(t *testing.T, stdin string) (*App, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Pepper = "P"
	cfg.SecretKey = "test-secret"

	store := credstore.NewMemoryStore()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	out := &bytes.Buffer{}
	app := &App{
		accounts: accounts.NewService(store, cfg, logger),
		store:    store,
		reader:   bufio.NewReader(strings.NewReader(stdin)),
		out:      out,
	}
	return app, out
}

func stubPassword(t *testing.T, password string) {
	t.Helper()

	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		return []byte(password), nil
	}
}

func TestRegisterCommand(t *testing.T) {
	app, out := newTestApp(t, "")
	stubPassword(t, "pw1")
	ctx := context.Background()

	require.NoError(t, app.Run(ctx, []string{"register", "a@x.com"}))
	assert.Contains(t, out.String(), "Registered a@x.com")
	assert.Contains(t, out.String(), "API key:")

	ok, err := app.accounts.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterCommand_DuplicateFails(t *testing.T) {
	app, _ := newTestApp(t, "")
	stubPassword(t, "pw1")
	ctx := context.Background()

	require.NoError(t, app.Run(ctx, []string{"register", "a@x.com"}))
	err := app.Run(ctx, []string{"register", "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegisterCommand_PromptsForEmail(t *testing.T) {
	app, out := newTestApp(t, "a@x.com\n")
	stubPassword(t, "pw1")

	require.NoError(t, app.Run(context.Background(), []string{"register"}))
	assert.Contains(t, out.String(), "Registered a@x.com")
}

func TestShowKeyCommand(t *testing.T) {
	app, out := newTestApp(t, "")
	stubPassword(t, "pw1")
	ctx := context.Background()

	require.NoError(t, app.Run(ctx, []string{"register", "a@x.com"}))

	key, err := app.accounts.GetAPIKey(ctx, "a@x.com")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"show-key", "a@x.com"}))
	assert.Contains(t, out.String(), key)
}

func TestRotateKeyCommand(t *testing.T) {
	app, out := newTestApp(t, "")
	stubPassword(t, "pw1")
	ctx := context.Background()

	require.NoError(t, app.Run(ctx, []string{"register", "a@x.com"}))
	oldKey, err := app.accounts.GetAPIKey(ctx, "a@x.com")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"rotate-key", "a@x.com"}))

	newKey, err := app.accounts.GetAPIKey(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)
	assert.Contains(t, out.String(), newKey)
}

func TestRotateKeyCommand_UnknownAccount(t *testing.T) {
	app, _ := newTestApp(t, "")

	err := app.Run(context.Background(), []string{"rotate-key", "ghost@x.com"})
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	app, out := newTestApp(t, "")

	err := app.Run(context.Background(), []string{"frobnicate"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestNoCommandShowsUsage(t *testing.T) {
	app, out := newTestApp(t, "")

	require.NoError(t, app.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "Usage:")
}
