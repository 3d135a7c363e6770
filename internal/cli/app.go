// Package cli implements the admin command-line tool. It operates directly
// against the configured credential store, bypassing the HTTP API, for
// operator tasks like seeding accounts and rotating API keys.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/accounts"
	"github.com/mizphses/kips/internal/server/config"
	"github.com/mizphses/kips/internal/server/credstore"
)

type App struct {
	accounts *accounts.Service
	store    credstore.Store
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	store, err := credstore.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	as := accounts.NewService(store, cfg, logger)

	return &App{
		accounts: as,
		store:    store,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Run dispatches a single admin command. args holds the command and its
// arguments, without the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "register":
		return a.Register(ctx, args)
	case "show-key":
		return a.ShowKey(ctx, args)
	case "rotate-key":
		return a.RotateKey(ctx, args)
	case "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: kips-cli <command> [args]")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  register [email]    create an account and issue its API key")
	fmt.Fprintln(a.out, "  show-key <email>    print the account's current API key")
	fmt.Fprintln(a.out, "  rotate-key <email>  revoke the account's API key and issue a new one")
}

func (a *App) email(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) Register(ctx context.Context, args []string) error {

	email, err := a.email(args, "Enter user name (email)")
	if err != nil {
		return err
	}

	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	ok, err := a.accounts.Register(ctx, email, string(pw))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account already exists: %s", email)
	}

	key, err := a.accounts.GetAPIKey(ctx, email)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered", email)
	fmt.Fprintln(a.out, "API key:", key)
	return nil
}

func (a *App) ShowKey(ctx context.Context, args []string) error {

	email, err := a.email(args, "Enter user name (email)")
	if err != nil {
		return err
	}

	key, err := a.accounts.GetAPIKey(ctx, email)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "API key:", key)
	return nil
}

func (a *App) RotateKey(ctx context.Context, args []string) error {

	email, err := a.email(args, "Enter user name (email)")
	if err != nil {
		return err
	}

	rotated, err := a.accounts.RevokeAndReissue(ctx, email)
	if err != nil {
		return err
	}
	if !rotated {
		return fmt.Errorf("no api key to rotate for %s", email)
	}

	key, err := a.accounts.GetAPIKey(ctx, email)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "New API key:", key)
	return nil
}
