package rbac

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"govportal/backend/internal/server/interceptors"
)

// mockChecker grants the codes listed per user ("user" or "user:org").
type mockChecker struct {
	grants map[string][]string
	err    error
	calls  int
}

func (m *mockChecker) has(key, code string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	for _, c := range m.grants[key] {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockChecker) HasSystemPermission(ctx context.Context, userID, code string) (bool, error) {
	return m.has(userID, code)
}

func (m *mockChecker) HasOrgPermission(ctx context.Context, userID, orgID, code string) (bool, error) {
	return m.has(userID+":"+orgID, code)
}

func TestRequireSystemPermission(t *testing.T) {
	checker := &mockChecker{grants: map[string][]string{"user-1": {"system.users.view"}}}
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "")

	userID, err := RequireSystemPermission(ctx, checker, "system.users.view")
	if err != nil {
		t.Fatalf("RequireSystemPermission: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("user_id = %q, want user-1", userID)
	}
	_, err = RequireSystemPermission(ctx, checker, "system.users.edit")
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied", status.Code(err))
	}
}

func TestRequireSystemPermission_NoIdentity(t *testing.T) {
	checker := &mockChecker{}
	_, err := RequireSystemPermission(context.Background(), checker, "system.users.view")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
	if checker.calls != 0 {
		t.Errorf("checker called %d times without identity", checker.calls)
	}
}

func TestRequireSystemPermission_StoreError(t *testing.T) {
	checker := &mockChecker{err: errors.New("db down")}
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "")
	_, err := RequireSystemPermission(ctx, checker, "system.users.view")
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}

func TestRequireOrgPermission(t *testing.T) {
	checker := &mockChecker{grants: map[string][]string{"user-1:org-1": {"org.news.publish"}}}

	orgID, userID, err := RequireOrgPermission(interceptors.WithIdentity(context.Background(), "user-1", "org-1"), checker, "org.news.publish")
	if err != nil {
		t.Fatalf("RequireOrgPermission: %v", err)
	}
	if orgID != "org-1" || userID != "user-1" {
		t.Errorf("got (%q, %q), want (org-1, user-1)", orgID, userID)
	}

	_, _, err = RequireOrgPermission(interceptors.WithIdentity(context.Background(), "user-1", "org-2"), checker, "org.news.publish")
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("other org code = %v, want PermissionDenied", status.Code(err))
	}

	_, _, err = RequireOrgPermission(interceptors.WithIdentity(context.Background(), "user-1", ""), checker, "org.news.publish")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing org code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestPermissionUnary(t *testing.T) {
	checker := &mockChecker{grants: map[string][]string{
		"user-1":       {"system.groups.view"},
		"user-1:org-1": {"org.service.edit"},
	}}
	interceptor := PermissionUnary(checker, map[string]Rule{
		"/svc/Groups":  System("system.groups.view"),
		"/svc/Users":   System("system.users.view"),
		"/svc/Service": Org("org.service.edit"),
	})
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "org-1")
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	tests := []struct {
		method string
		want   codes.Code
	}{
		{"/svc/Groups", codes.OK},
		{"/svc/Users", codes.PermissionDenied},
		{"/svc/Service", codes.OK},
		{"/svc/Unguarded", codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			if status.Code(err) != tt.want {
				t.Errorf("code = %v, want %v", status.Code(err), tt.want)
			}
		})
	}
}

func TestPermissionUnary_NilCheckerFailsClosed(t *testing.T) {
	interceptor := PermissionUnary(nil, map[string]Rule{"/svc/Users": System("system.users.view")})
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "")
	called := false
	handler := func(ctx context.Context, req any) (any, error) { called = true; return "ok", nil }

	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Users"}, handler)
	if status.Code(err) != codes.Internal || called {
		t.Errorf("guarded call: code = %v, handler called = %v", status.Code(err), called)
	}
	if _, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Open"}, handler); err != nil {
		t.Errorf("unguarded call: %v", err)
	}
}
