// Worker consumes auth events from Kafka and pushes them to Loki.
// Requires KAFKA_BROKERS and LOKI_URL; AUTH_EVENTS_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"govportal/backend/internal/config"
	"govportal/backend/internal/logging"
	"govportal/backend/internal/telemetry/loki"
	"govportal/backend/internal/telemetry/worker"
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
	logger = logger.Named("worker")

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	client, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		logger.Fatal("LOKI_URL", zap.Error(err))
	}

	reader := worker.NewReader(brokers, cfg.AuthEventsTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming",
		zap.String("topic", cfg.AuthEventsTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki", cfg.LokiURL))
	worker.Run(ctx, reader, client, logger)
	logger.Info("stopped")
}
