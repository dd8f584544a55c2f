package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"govportal/backend/internal/security"
)

type activeFunc func(ctx context.Context, userID string) (bool, error)

func (f activeFunc) IsActive(ctx context.Context, userID string) (bool, error) { return f(ctx, userID) }

func newTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return tokens
}

func bearerContext(t *testing.T, tokens *security.TokenProvider, extra ...string) context.Context {
	t.Helper()
	token, _, err := tokens.IssueAccess("user-1", "clerk@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	kv := append([]string{"authorization", "Bearer " + token}, extra...)
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
}

var protected = &grpc.UnaryServerInfo{FullMethod: "/test.Service/ProtectedMethod"}

func okHandler(ctx context.Context, req any) (any, error) { return "success", nil }

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(newTokens(t), map[string]bool{"/test.Service/PublicMethod": true}, nil, nil)

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/PublicMethod"}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_ProtectedMethod_NoToken(t *testing.T) {
	interceptor := AuthUnary(newTokens(t), nil, nil, nil)

	_, err := interceptor(context.Background(), "request", protected, okHandler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
}

func TestAuthUnary_ProtectedMethod_ValidToken(t *testing.T) {
	tokens := newTokens(t)
	interceptor := AuthUnary(tokens, nil, nil, nil)
	ctx := bearerContext(t, tokens, OrgHeader, "org-1")

	handler := func(ctx context.Context, req any) (any, error) {
		if userID, ok := GetUserID(ctx); !ok || userID != "user-1" {
			t.Errorf("user_id = %q, ok = %v, want user-1", userID, ok)
		}
		if orgID, ok := GetOrgID(ctx); !ok || orgID != "org-1" {
			t.Errorf("org_id = %q, ok = %v, want org-1", orgID, ok)
		}
		return "success", nil
	}
	if _, err := interceptor(ctx, "request", protected, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestAuthUnary_ProtectedMethod_InvalidToken(t *testing.T) {
	interceptor := AuthUnary(newTokens(t), nil, nil, nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer invalid-token"))

	_, err := interceptor(ctx, "request", protected, okHandler)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error is not a gRPC status: %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", st.Code(), codes.Unauthenticated)
	}
}

func TestAuthUnary_InactiveUser(t *testing.T) {
	tokens := newTokens(t)
	interceptor := AuthUnary(tokens, nil, activeFunc(func(ctx context.Context, userID string) (bool, error) {
		return false, nil
	}), nil)

	_, err := interceptor(bearerContext(t, tokens), "request", protected, okHandler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
}

func TestAuthUnary_ActiveCheckError(t *testing.T) {
	tokens := newTokens(t)
	interceptor := AuthUnary(tokens, nil, activeFunc(func(ctx context.Context, userID string) (bool, error) {
		return false, errors.New("database error")
	}), nil)

	_, err := interceptor(bearerContext(t, tokens), "request", protected, okHandler)
	if status.Code(err) != codes.Internal {
		t.Errorf("status code = %v, want %v", status.Code(err), codes.Internal)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"valid", "Bearer abc.def", "abc.def"},
		{"case insensitive", "bEaReR abc", "abc"},
		{"whitespace", "  Bearer   abc  ", "abc"},
		{"wrong scheme", "Basic abc", ""},
		{"too short", "Bear", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", tt.value))
			if got := extractBearer(ctx); got != tt.want {
				t.Errorf("extractBearer = %q, want %q", got, tt.want)
			}
		})
	}
	if got := extractBearer(context.Background()); got != "" {
		t.Errorf("extractBearer without metadata = %q, want empty", got)
	}
}
