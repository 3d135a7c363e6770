// Package rest exposes the HTTP API: registration, login, API key
// management, and wallet pass issuance.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mizphses/kips/internal/logging"
	"github.com/mizphses/kips/internal/server/accounts"
	"github.com/mizphses/kips/internal/wallet"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address  string
	engine   *gin.Engine
	logger   logging.Logger
	accounts *accounts.Service
	wallet   *wallet.Client
}

// NewServer wires the HTTP routes. The wallet client may be nil, in which
// case pass endpoints report the feature as unavailable.
func NewServer(address string, l logging.Logger, as *accounts.Service, wc *wallet.Client) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		address:  address,
		logger:   l.With("module", "rest_server"),
		accounts: as,
		wallet:   wc,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", s.handleRoot)
	engine.POST("/register", s.handleRegister)
	engine.POST("/login", s.handleLogin)

	authed := engine.Group("/", s.requireAuth())
	authed.GET("/me/key", s.handleGetKey)
	authed.POST("/me/key/rotate", s.handleRotateKey)
	authed.POST("/pass/class", s.handlePassClass)
	authed.POST("/pass/object", s.handlePassObject)

	s.engine = engine
	return s
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
