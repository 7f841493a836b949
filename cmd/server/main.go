package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/taimoor511/certiqas-backend/internal/app/runtime"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

func main() {
	// Best effort; production deployments set real environment variables.
	_ = godotenv.Load()

	log := logger.NewDefault("main")

	app, err := runtime.NewApplication()
	if err != nil {
		log.WithError(err).Error("failed to initialize application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("shutdown error")
		os.Exit(1)
	}
	log.Info("server stopped")
}
