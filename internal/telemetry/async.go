package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"govportal/backend/internal/telemetry/domain"
)

// emitTimeout bounds a single background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the longest Drain should be given during shutdown.
const ShutdownDrainDuration = emitTimeout

var inflight sync.WaitGroup

// EmitAsync hands event to emitter on a background goroutine and returns at once. The emit
// is detached from the caller's context so a finished RPC does not cancel it; failures are
// logged through the global zap logger. A nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			zap.L().Warn("telemetry: async emit failed", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}()
}

// Drain blocks until every emit started by EmitAsync has finished or ctx is done.
func Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
