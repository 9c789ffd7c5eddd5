package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/signetauth/signet/internal/auth/http"
	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/internal/auth/signing"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/internal/auth/store/drivers/sqlite"
	"github.com/signetauth/signet/pkg/cryptox"
	"github.com/signetauth/signet/pkg/jwtx"
	"github.com/signetauth/signet/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the token service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager

	// Services
	tokenService        *service.TokenService
	refreshManager      *service.RefreshTokenManager
	sessionRevoker      *service.SessionRevoker
	credentials         *service.CredentialValidator
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "signet",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()
	app.initHTTP()

	if err := app.seedStore(); err != nil {
		return nil, fmt.Errorf("failed to seed user store: %w", err)
	}

	return app, nil
}

// seedStore provisions the configured seed account on an empty store so a
// fresh deployment has something to sign in with.
func (app *Application) seedStore() error {
	if app.cfg.SeedUsername == "" || app.cfg.SeedPassword == "" {
		return nil
	}

	bootstrap := &service.BootstrapService{Store: app.db}
	ctx := slogx.WithContext(context.Background(), app.logger)
	created, err := bootstrap.EnsureSeedUser(ctx, service.SeedUser{
		Username:      app.cfg.SeedUsername,
		PreferredName: app.cfg.SeedPreferredName,
		Password:      app.cfg.SeedPassword,
		Role:          app.cfg.SeedRole,
	})
	if err != nil {
		return err
	}
	if !created {
		app.logger.Debug("store already populated, seed user skipped")
	}
	return nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("signet starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down signet...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("signet stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	credentials := service.NewCredentialValidator(app.db)
	credentials.LockoutThreshold = app.cfg.LockoutThreshold
	credentials.LockoutWindow = app.cfg.LockoutWindow
	app.credentials = credentials

	app.refreshManager = &service.RefreshTokenManager{
		Store:       app.db,
		RefreshTTL:  app.cfg.RefreshTokenTTL,
		ReuseLeeway: app.cfg.ReuseLeeway,
	}

	app.tokenService = &service.TokenService{
		Store:       app.db,
		Credentials: credentials,
		Scopes:      service.NewScopeNegotiator(),
		Principals:  &service.PrincipalBuilder{ExtraClaims: app.cfg.ExtraClaims},
		Refresh:     app.refreshManager,
		Signer: &signing.TokenIssuer{
			Keys:        app.keyManager,
			Issuer:      app.cfg.Issuer,
			AccessTTL:   app.cfg.AccessTokenTTL,
			IdentityTTL: app.cfg.IdentityTokenTTL,
		},
		AccessTTL: app.cfg.AccessTokenTTL,
	}

	app.sessionRevoker = &service.SessionRevoker{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.Refresh = app.refreshManager
	router.SessionRevoker = app.sessionRevoker
	router.Credentials = app.credentials
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
