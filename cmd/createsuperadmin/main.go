// Command createsuperadmin seeds the initial super admin account. It is
// idempotent: if any super admin already exists it exits without changes.
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
	"github.com/taimoor511/certiqas-backend/internal/app/storage/postgres"
	"github.com/taimoor511/certiqas-backend/internal/config"
	"github.com/taimoor511/certiqas-backend/internal/platform/migrations"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefault("createsuperadmin")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("load config")
		os.Exit(1)
	}
	if cfg.SuperAdminEmail == "" || cfg.SuperAdminPassword == "" {
		log.Error("SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD are required")
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.WithError(err).Error("open database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Error("ping database")
		os.Exit(1)
	}
	if err := migrations.Apply(db); err != nil {
		log.WithError(err).Error("apply migrations")
		os.Exit(1)
	}

	store := postgres.New(db)

	existing, err := store.ListUsers(ctx, storage.UserFilter{Role: user.RoleSuperAdmin})
	if err != nil {
		log.WithError(err).Error("list super admins")
		os.Exit(1)
	}
	if len(existing) > 0 {
		log.WithField("email", existing[0].Email).Info("super admin already exists, nothing to do")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Error("hash password")
		os.Exit(1)
	}

	created, err := store.CreateUser(ctx, user.User{
		Name:         "Super Admin",
		Email:        cfg.SuperAdminEmail,
		PasswordHash: string(hash),
		Role:         user.RoleSuperAdmin,
	})
	if err != nil {
		log.WithError(err).Error("create super admin")
		os.Exit(1)
	}
	log.WithField("email", created.Email).Info("super admin created")
}
