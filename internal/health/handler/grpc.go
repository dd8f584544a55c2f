// Package handler serves the standard grpc.health.v1 service and the readiness state behind
// the ops /readyz endpoint. Serving status follows a periodic database ping.
package handler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server owns the health status of the process.
type Server struct {
	hs     *health.Server
	db     Pinger
	ready  atomic.Bool
	logger *zap.Logger
}

// NewServer returns a health server. db may be nil; then the process reports serving as long
// as it runs.
func NewServer(db Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{hs: health.NewServer(), db: db, logger: logger.Named("health")}
	s.set(db == nil)
	return s
}

// Register adds grpc.health.v1.Health to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.hs)
}

// Check pings the database once and updates the serving status.
func (s *Server) Check(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := s.db.PingContext(ctx)
	if was := s.ready.Load(); was != (err == nil) {
		if err != nil {
			s.logger.Warn("database unreachable, reporting NOT_SERVING", zap.Error(err))
		} else {
			s.logger.Info("database reachable, reporting SERVING")
		}
	}
	s.set(err == nil)
	return err
}

// Run calls Check every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	_ = s.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Check(ctx)
		}
	}
}

// Ready reports the last observed status.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Shutdown reports NOT_SERVING to every watcher; used before GracefulStop.
func (s *Server) Shutdown() {
	s.ready.Store(false)
	s.hs.Shutdown()
}

func (s *Server) set(ok bool) {
	s.ready.Store(ok)
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus("", st)
}
