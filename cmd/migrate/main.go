// Migrate applies the embedded SQL migrations: go run ./cmd/migrate [-direction up|down|status].
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"govportal/backend/internal/config"
	"govportal/backend/internal/db/migrate"
	"govportal/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or status")
	flag.Parse()

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

	if *direction == "status" {
		version, dirty, err := migrate.Status(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("migrate status", zap.Error(err))
		}
		logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	}
	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Fatal("migrate", zap.String("direction", *direction), zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("direction", *direction))
}
