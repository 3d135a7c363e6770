// Package server initializes and runs the Kips server: it picks the
// configured credential store backend, wires the accounts service and the
// wallet client, handles graceful shutdown, and starts the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/accounts"
	"github.com/mizphses/kips/internal/server/config"
	"github.com/mizphses/kips/internal/server/credstore"
	"github.com/mizphses/kips/internal/server/rest"
	"github.com/mizphses/kips/internal/wallet"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    credstore.Store
	accounts *accounts.Service
	wallet   *wallet.Client
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	store, err := credstore.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	as := accounts.NewService(store, cfg, logger)

	// Pass issuance is optional; the server runs without it when the
	// service-account settings are absent.
	wc, err := wallet.NewClient(cfg, wallet.NewMemoryCache(), http.DefaultClient, logger)
	if err != nil {
		if !errors.Is(err, wallet.ErrNotConfigured) {
			return nil, fmt.Errorf("wallet init error: %w", err)
		}
		logger.Warn(ctx, "Wallet provider not configured, pass endpoints disabled")
		wc = nil
	}

	return &App{config: cfg, logger: logger, store: store, accounts: as, wallet: wc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := rest.NewServer(app.config.EndpointAddr, app.logger, app.accounts, app.wallet)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close error", "error", err.Error())
	}
}
