package interceptors

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	bearerPrefix = "bearer "
	// OrgHeader names the organization an authenticated call acts in.
	OrgHeader = "x-organization-id"
)

// AccessValidator checks an access token and returns its subject.
type AccessValidator interface {
	ValidateAccess(token string) (userID string, err error)
}

// ActiveChecker reports whether a user may still act. Deactivation takes effect on the next
// call instead of when the token expires.
type ActiveChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer access token from
// gRPC metadata and stores the user id, plus the x-organization-id header when present, in
// context. publicMethods do not require a token. active may be nil.
func AuthUnary(tokens AccessValidator, publicMethods map[string]bool, active ActiveChecker, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" || tokens == nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		userID, err := tokens.ValidateAccess(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		if active != nil {
			ok, err := active.IsActive(ctx, userID)
			if err != nil {
				logger.Error("auth: active check failed", zap.String("user_id", userID), zap.Error(err))
				return nil, status.Error(codes.Internal, "failed to verify account")
			}
			if !ok {
				return nil, status.Error(codes.Unauthenticated, "account is not active")
			}
		}
		return handler(WithIdentity(ctx, userID, metadataValue(ctx, OrgHeader)), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	v := metadataValue(ctx, "authorization")
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func metadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
