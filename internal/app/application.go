// Package app wires the stores and services into one application.
package app

import (
	"time"

	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/services/admins"
	"github.com/taimoor511/certiqas-backend/internal/app/services/brokers"
	"github.com/taimoor511/certiqas-backend/internal/app/services/properties"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
	"github.com/taimoor511/certiqas-backend/internal/app/storage/memory"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Stores bundles the persistence interfaces. Nil fields fall back to a
// shared in-memory store, which keeps tests and local runs setup-free.
type Stores struct {
	Properties storage.PropertyStore
	Users      storage.UserStore
	Brokers    storage.BrokerStore
}

// Config holds application-level settings.
type Config struct {
	JWTSecret           string
	TokenTTL            time.Duration
	RequireDocumentFile bool
}

// Application bundles the services behind the HTTP surface.
type Application struct {
	Properties *properties.Service
	Admins     *admins.Service
	Brokers    *brokers.Service
	Policy     *policy.Policy

	log *logger.Logger
}

// New assembles the application.
func New(stores Stores, uploader properties.Uploader, minter properties.Minter, cfg Config, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	var fallback *memory.Store
	mem := func() *memory.Store {
		if fallback == nil {
			fallback = memory.New()
		}
		return fallback
	}
	if stores.Properties == nil {
		stores.Properties = mem()
	}
	if stores.Users == nil {
		stores.Users = mem()
	}
	if stores.Brokers == nil {
		stores.Brokers = mem()
	}

	pol := policy.New(stores.Users)

	return &Application{
		Properties: properties.New(stores.Properties, pol, uploader, minter, nil,
			properties.Config{RequireDocumentFile: cfg.RequireDocumentFile},
			log.WithField("component", "properties")),
		Admins: admins.New(stores.Users,
			admins.Config{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL},
			log.WithField("component", "admins")),
		Brokers: brokers.New(stores.Brokers, log.WithField("component", "brokers")),
		Policy:  pol,
		log:     log,
	}
}

// Logger returns the application logger.
func (a *Application) Logger() *logger.Logger { return a.log }
