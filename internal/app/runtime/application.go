// Package runtime wires configuration, storage and the HTTP server into a
// runnable application.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/taimoor511/certiqas-backend/internal/app"
	"github.com/taimoor511/certiqas-backend/internal/app/httpapi"
	"github.com/taimoor511/certiqas-backend/internal/app/storage/postgres"
	"github.com/taimoor511/certiqas-backend/internal/config"
	"github.com/taimoor511/certiqas-backend/internal/ipfs"
	"github.com/taimoor511/certiqas-backend/internal/ledger"
	"github.com/taimoor511/certiqas-backend/internal/platform/migrations"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Application manages the server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs the application with default wiring. Without a
// DATABASE_URL the in-memory store is used, which suits local development.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: "server",
	})

	var db *sql.DB
	var stores app.Stores
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := migrations.Apply(db); err != nil {
			db.Close()
			return nil, err
		}
		store := postgres.New(db)
		stores = app.Stores{Properties: store, Users: store, Brokers: store}
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	uploader, err := ipfs.NewClient(ipfs.Config{
		APIURL:  cfg.ContentStore.APIURL,
		Gateway: cfg.ContentStore.Gateway,
		JWT:     cfg.ContentStore.JWT,
		Timeout: cfg.ContentStore.Timeout,
	}, log.WithField("component", "ipfs"))
	if err != nil {
		return nil, fmt.Errorf("configure content store client: %w", err)
	}

	minter, err := ledger.NewClient(ledger.Config{
		RPCURL:          cfg.Ledger.RPCURL,
		ContractAddress: cfg.Ledger.ContractAddress,
		WalletAddress:   cfg.Ledger.WalletAddress,
		PollInterval:    cfg.Ledger.PollInterval,
		ConfirmTimeout:  cfg.Ledger.ConfirmTimeout,
	}, log.WithField("component", "ledger"))
	if err != nil {
		return nil, fmt.Errorf("configure ledger client: %w", err)
	}

	application := app.New(stores, uploader, minter, app.Config{
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.TokenTTL,
		RequireDocumentFile: cfg.RequireDocumentFile,
	}, log)

	handler := httpapi.NewHandler(application, httpapi.Config{
		JWTSecret:       cfg.JWTSecret,
		PublicRateLimit: cfg.PublicRateLimit,
		PublicBurst:     cfg.PublicRateBurst,
		AllowedOrigins:  cfg.AllowedOrigins,
	})

	return &Application{
		cfg: cfg,
		log: log,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  2 * time.Minute,
		},
		db: db,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the HTTP server and closes the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
