package interceptors

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"govportal/backend/internal/ids"
	"govportal/backend/internal/telemetry"
	"govportal/backend/internal/telemetry/domain"
)

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// TelemetryUnary returns a unary server interceptor that emits a grpc_request event after each RPC.
// Best-effort: the emit runs asynchronously and never fails the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		meta, _ := json.Marshal(grpcRequestMetadata{
			FullMethod: info.FullMethod,
			StatusCode: code.String(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   ClientIP(ctx),
		})
		orgID, _ := GetOrgID(ctx)
		userID, _ := GetUserID(ctx)
		telemetry.EmitAsync(emitter, &domain.Event{
			ID:        ids.NewULID(),
			OrgID:     orgID,
			UserID:    userID,
			EventType: domain.TypeGRPCRequest,
			Source:    "grpc_interceptor",
			Outcome:   code.String(),
			Metadata:  meta,
			CreatedAt: start.UTC(),
		})
		return resp, err
	}
}
