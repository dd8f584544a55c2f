package rbac

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Scope selects which guard a Rule applies.
type Scope int

const (
	ScopeSystem Scope = iota
	ScopeOrg
)

// Rule is the capability a method requires.
type Rule struct {
	Scope Scope
	Code  string
}

// System returns a system-scoped rule.
func System(code string) Rule { return Rule{Scope: ScopeSystem, Code: code} }

// Org returns an organization-scoped rule.
func Org(code string) Rule { return Rule{Scope: ScopeOrg, Code: code} }

// PermissionUnary returns a unary server interceptor that applies rules by full method name.
// Methods without a rule pass through; guarded methods fail closed when checker is nil.
// It must run after the auth interceptor.
func PermissionUnary(checker Checker, rules map[string]Rule) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rule, ok := rules[info.FullMethod]
		if !ok {
			return handler(ctx, req)
		}
		if checker == nil {
			return nil, status.Error(codes.Internal, "permission checks are not configured")
		}
		var err error
		switch rule.Scope {
		case ScopeOrg:
			_, _, err = RequireOrgPermission(ctx, checker, rule.Code)
		default:
			_, err = RequireSystemPermission(ctx, checker, rule.Code)
		}
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}
