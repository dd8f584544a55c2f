// Seed provisions the capability catalog, the built-in groups and the first administrator.
// Idempotent: run it after every migration. SEED_ADMIN_EMAIL overrides admin@example.gov.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"govportal/backend/internal/config"
	"govportal/backend/internal/db"
	"govportal/backend/internal/logging"
	permissionrepo "govportal/backend/internal/permission/repository"
	"govportal/backend/internal/seed"
	userrepo "govportal/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := seed.New(userrepo.NewPostgresRepository(conn), permissionrepo.NewPostgresRepository(conn), logger).
		Run(ctx, seed.Options{AdminEmail: os.Getenv("SEED_ADMIN_EMAIL")})
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("administrator ready", zap.String("user_id", res.AdminID), zap.String("organization_id", res.OrganizationID))
}
