// Package rbac turns capability checks into gRPC status errors for handlers and interceptors.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"govportal/backend/internal/server/interceptors"
)

// SystemChecker answers system-scoped capability checks.
type SystemChecker interface {
	HasSystemPermission(ctx context.Context, userID, code string) (bool, error)
}

// OrgChecker answers organization-scoped capability checks.
type OrgChecker interface {
	HasOrgPermission(ctx context.Context, userID, orgID, code string) (bool, error)
}

// Checker answers both kinds of check. *permission.Resolver implements it.
type Checker interface {
	SystemChecker
	OrgChecker
}

// RequireSystemPermission ensures the caller is authenticated and holds code system-wide.
// Returns the caller's user id; returns Unauthenticated, PermissionDenied or Internal on failure.
func RequireSystemPermission(ctx context.Context, checker SystemChecker, code string) (userID string, err error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	granted, err := checker.HasSystemPermission(ctx, userID, code)
	if err != nil {
		return "", status.Error(codes.Internal, "failed to resolve permissions")
	}
	if !granted {
		return "", status.Errorf(codes.PermissionDenied, "missing permission %s", code)
	}
	return userID, nil
}

// RequireOrgPermission ensures the caller is authenticated and holds code in the context
// organization. Returns (orgID, userID, nil) on success. A call without an organization is
// InvalidArgument.
func RequireOrgPermission(ctx context.Context, checker OrgChecker, code string) (orgID, userID string, err error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return "", "", status.Error(codes.Unauthenticated, "user context required")
	}
	orgID, ok = interceptors.GetOrgID(ctx)
	if !ok {
		return "", "", status.Error(codes.InvalidArgument, interceptors.OrgHeader+" is required")
	}
	granted, err := checker.HasOrgPermission(ctx, userID, orgID, code)
	if err != nil {
		return "", "", status.Error(codes.Internal, "failed to resolve permissions")
	}
	if !granted {
		return "", "", status.Errorf(codes.PermissionDenied, "missing permission %s in organization", code)
	}
	return orgID, userID, nil
}
