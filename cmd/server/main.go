// Server runs the gRPC API (auth, access, users, audit, health) and the ops HTTP listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"govportal/backend/internal/audit"
	audithandler "govportal/backend/internal/audit/handler"
	auditrepo "govportal/backend/internal/audit/repository"
	"govportal/backend/internal/config"
	"govportal/backend/internal/db"
	"govportal/backend/internal/devotp"
	devhandler "govportal/backend/internal/devotp/handler"
	healthhandler "govportal/backend/internal/health/handler"
	"govportal/backend/internal/logging"
	"govportal/backend/internal/notify"
	"govportal/backend/internal/otp"
	otphandler "govportal/backend/internal/otp/handler"
	otprepo "govportal/backend/internal/otp/repository"
	"govportal/backend/internal/permission"
	permissionhandler "govportal/backend/internal/permission/handler"
	permissionrepo "govportal/backend/internal/permission/repository"
	"govportal/backend/internal/ratelimit"
	"govportal/backend/internal/security"
	"govportal/backend/internal/server"
	"govportal/backend/internal/server/interceptors"
	"govportal/backend/internal/server/ops"
	"govportal/backend/internal/telemetry"
	telemetryotel "govportal/backend/internal/telemetry/otel"
	"govportal/backend/internal/telemetry/producer"
	userhandler "govportal/backend/internal/user/handler"
	userrepo "govportal/backend/internal/user/repository"
)

const healthInterval = 10 * time.Second

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
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: "govportal-backend",
		Environment: cfg.Env,
	}, logger)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuthEventsTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("auth events enabled", zap.Strings("brokers", cfg.KafkaBrokersList()), zap.String("topic", cfg.AuthEventsTopic))
	}
	events := telemetry.Multi(emitters...)

	users := userrepo.NewPostgresRepository(conn)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(conn), interceptors.ClientIP, logger)
	resolver := permission.NewResolver(permissionrepo.NewPostgresRepository(conn), logger)

	var tokens *security.TokenProvider
	if cfg.AuthEnabled() {
		priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return fmt.Errorf("jwt keys: %w", err)
		}
		tokens = security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	} else {
		logger.Warn("JWT keys not configured; VerifyOTP and every authenticated method are unavailable")
	}

	var (
		sender otp.Sender
		dev    server.Registrar
	)
	if cfg.OTPReturnToClient {
		store := devotp.NewMemoryStore()
		sender = devotp.Sender{Store: store}
		dev = devhandler.NewServer(store)
		logger.Warn("dev OTP mode: codes are not emailed and are readable through DevService/GetOTP")
	} else {
		sender = notify.NewEmailClient(cfg.NotifyAPIKey, cfg.NotifyURL, cfg.NotifySender)
	}

	engine := otp.NewEngine(otprepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost), sender, logger,
		otp.WithTTL(cfg.OTPLifetime()),
		otp.WithMaxAttempts(cfg.OTPMaxAttempts),
		otp.WithLimiter(ratelimit.NewKeyedLimiter(cfg.OTPRequestRate, cfg.OTPRequestBurst)),
		otp.WithObserver(otp.NewRecorder(auditLog, events)),
	)
	health := healthhandler.NewServer(conn, logger)
	go health.Run(ctx, healthInterval)

	opts := server.Options{
		Active:  users,
		Checker: resolver,
		Audit:   auditLog,
		Events:  events,
		Logger:  logger,
	}
	deps := server.Deps{
		Access: permissionhandler.NewServer(resolver, logger),
		Users:  userhandler.NewServer(users),
		Audit:  audithandler.NewServer(auditrepo.NewPostgresRepository(conn)),
		Health: health,
		Dev:    dev,
	}
	if tokens != nil {
		opts.Tokens = tokens
		deps.Auth = otphandler.NewServer(engine, tokens, logger)
	} else {
		deps.Auth = otphandler.NewServer(engine, nil, logger)
	}
	grpcServer := server.NewServer(opts)
	server.RegisterServices(grpcServer, deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var opsServer *http.Server
	if cfg.OpsAddr != "" {
		opsServer = ops.NewServer(cfg.OpsAddr, health.Ready)
		go func() {
			logger.Info("ops listener", zap.String("addr", cfg.OpsAddr))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ops serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("listener failed, shutting down", zap.Error(err))
	}

	health.Shutdown()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if opsServer != nil {
		_ = opsServer.Shutdown(shutdownCtx)
	}
	// In-flight async emits must land before the exporters close.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
	if err := telemetry.Drain(drainCtx); err != nil {
		logger.Warn("telemetry drain incomplete", zap.Error(err))
	}
	cancelDrain()
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
