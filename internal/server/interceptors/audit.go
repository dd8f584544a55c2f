package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"govportal/backend/internal/audit"
)

// AuditUnary returns a unary server interceptor that records an audit log entry after each
// authenticated RPC. skipMethods is the set of full method names to not audit (e.g. health
// checks). Unauthenticated calls are not recorded here; login outcomes are audited by the
// OTP flow itself. Writes are best-effort and never fail the RPC.
func AuditUnary(logger audit.EventLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if logger == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, ok := GetUserID(ctx)
		if !ok {
			return resp, err
		}
		orgID, _ := GetOrgID(ctx)
		ar := audit.ParseFullMethod(info.FullMethod)
		logger.LogEvent(ctx, orgID, userID, ar.Action, ar.Resource, map[string]string{
			"method": info.FullMethod,
			"status": status.Code(err).String(),
		})
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			s := vals[0]
			if i := strings.Index(s, ","); i >= 0 {
				s = s[:i]
			}
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
