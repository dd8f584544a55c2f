// Package server assembles the gRPC server: interceptor chain, service registration and the
// method tables the interceptors consult.
package server

import (
	"maps"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"govportal/backend/internal/audit"
	audithandler "govportal/backend/internal/audit/handler"
	devhandler "govportal/backend/internal/devotp/handler"
	"govportal/backend/internal/metrics"
	otphandler "govportal/backend/internal/otp/handler"
	permissionhandler "govportal/backend/internal/permission/handler"
	"govportal/backend/internal/platform/rbac"
	"govportal/backend/internal/server/interceptors"
	"govportal/backend/internal/telemetry"
	userhandler "govportal/backend/internal/user/handler"
)

// Registrar is implemented by every service handler.
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}

// Deps holds the service handlers. A nil handler is not registered.
type Deps struct {
	Auth   Registrar
	Access Registrar
	Users  Registrar
	Audit  Registrar
	Health Registrar
	// Dev is the dev-only DevService. Set only when dev OTP is enabled and not production.
	Dev Registrar
}

// RegisterServices registers every non-nil handler with s.
//
// Service → handler mapping:
//   - govportal.auth.v1.AuthService     → internal/otp/handler
//   - govportal.access.v1.AccessService → internal/permission/handler
//   - govportal.user.v1.UserService     → internal/user/handler
//   - govportal.audit.v1.AuditService   → internal/audit/handler
//   - grpc.health.v1.Health             → internal/health/handler
//   - govportal.dev.v1.DevService       → internal/devotp/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	for _, r := range []Registrar{deps.Auth, deps.Access, deps.Users, deps.Audit, deps.Health, deps.Dev} {
		if r != nil {
			r.Register(s)
		}
	}
}

// PublicMethods are callable without an access token.
func PublicMethods() map[string]bool {
	public := map[string]bool{
		"/" + healthpb.Health_ServiceDesc.ServiceName + "/Check": true,
		"/" + healthpb.Health_ServiceDesc.ServiceName + "/Watch": true,
		"/" + healthpb.Health_ServiceDesc.ServiceName + "/List":  true,
		"/" + devhandler.ServiceName + "/GetOTP":                 true,
	}
	for _, m := range otphandler.PublicMethods() {
		public[m] = true
	}
	return public
}

// PermissionRules merges the capability rules of every service.
func PermissionRules() map[string]rbac.Rule {
	rules := make(map[string]rbac.Rule)
	maps.Copy(rules, permissionhandler.Rules())
	maps.Copy(rules, userhandler.Rules())
	maps.Copy(rules, audithandler.Rules())
	return rules
}

// quietMethods are not audited and emit no request events.
func quietMethods() map[string]bool {
	return map[string]bool{
		"/" + healthpb.Health_ServiceDesc.ServiceName + "/Check": true,
		"/" + healthpb.Health_ServiceDesc.ServiceName + "/Watch": true,
	}
}

// Options configures NewServer. A nil Audit or Events switches that interceptor off. Tokens
// and Checker fail closed: without them every non-public or guarded method is rejected.
type Options struct {
	Tokens  interceptors.AccessValidator
	Active  interceptors.ActiveChecker
	Checker rbac.Checker
	Audit   audit.EventLogger
	Events  telemetry.EventEmitter
	Logger  *zap.Logger
}

// NewServer returns a grpc.Server with the interceptor chain installed:
// logging, metrics, auth, audit, telemetry, then capability guards. Audit runs ahead of the
// guards so denied calls are recorded too.
func NewServer(opts Options, extra ...grpc.ServerOption) *grpc.Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := []grpc.UnaryServerInterceptor{
		interceptors.LoggingUnary(logger),
		metrics.UnaryServerInterceptor(),
		interceptors.AuthUnary(opts.Tokens, PublicMethods(), opts.Active, logger),
	}
	if opts.Audit != nil {
		chain = append(chain, interceptors.AuditUnary(opts.Audit, quietMethods()))
	}
	if opts.Events != nil {
		chain = append(chain, interceptors.TelemetryUnary(opts.Events, quietMethods()))
	}
	chain = append(chain, rbac.PermissionUnary(opts.Checker, PermissionRules()))
	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, extra...)
	return grpc.NewServer(serverOpts...)
}
