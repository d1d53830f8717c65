package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/service"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store/drivers/sqlite"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/text"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/vault"
	"github.com/aussiebroadwan/qrauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the authenticator together: database, vault, API client
// and the services on top of them.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	vault *vault.Vault
	api   *api.Client

	authService  *service.AuthenticationService
	tokenService *service.TokenService
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "qrauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initVault(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	return app, nil
}

// Logger exposes the application logger for the CLI layer.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Store exposes the data layer for the CLI layer.
func (app *Application) Store() store.Store { return app.db }

// Vault exposes the secret vault for enrollment flows.
func (app *Application) Vault() *vault.Vault { return app.vault }

// Authentication returns the challenge coordinator.
func (app *Application) Authentication() *service.AuthenticationService { return app.authService }

// Tokens returns the notification token service.
func (app *Application) Tokens() *service.TokenService { return app.tokenService }

// Close releases the application's resources.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
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

// initVault loads the device key and opens the keystore-backed vault.
func (app *Application) initVault() error {
	deviceKey, err := LoadDeviceKey(app.cfg.DeviceKeyFile, app.logger)
	if err != nil {
		return err
	}

	keyStore, err := vault.NewFileKeyStore(app.cfg.KeyStoreDir)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	v, err := vault.New(keyStore, deviceKey, app.cfg.KDFIterations, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	app.vault = v
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.api = &api.Client{
		HTTP:            &http.Client{Timeout: app.cfg.HTTPTimeout},
		ProtocolVersion: app.cfg.ProtocolVersion,
		ExchangeURL:     app.cfg.TokenExchangeURL,
		Logger:          app.logger,
	}

	app.authService = &service.AuthenticationService{
		Store:    app.db,
		Vault:    app.vault,
		API:      app.api,
		Messages: text.Default(),
		Config: service.Config{
			Scheme:            app.cfg.Scheme,
			ProtocolVersion:   app.cfg.ProtocolVersion,
			CompatibilityMode: app.cfg.CompatibilityMode,
			Language:          app.cfg.Language,
		},
		Logger: app.logger,
	}

	app.tokenService = &service.TokenService{
		Store:           app.db,
		Exchange:        app.api,
		ExchangeEnabled: app.cfg.TokenExchangeEnabled && app.cfg.TokenExchangeURL != "",
		Logger:          app.logger,
	}
}
