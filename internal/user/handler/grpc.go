// Package handler implements UserService for console user lookup and lifecycle.
package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/platform/rbac"
	"govportal/backend/internal/server/interceptors"
	"govportal/backend/internal/server/rpc"
	"govportal/backend/internal/user/domain"
	userrepo "govportal/backend/internal/user/repository"
)

// ServiceName is the registered gRPC service name.
const ServiceName = "govportal.user.v1.UserService"

// Server implements UserService.
type Server struct {
	userRepo userrepo.Repository
}

// NewServer returns a new User gRPC server. userRepo may be nil; then all RPCs return Unimplemented.
func NewServer(userRepo userrepo.Repository) *Server {
	return &Server{userRepo: userRepo}
}

// Register adds UserService to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	rpc.Register(r, ServiceName,
		rpc.Method{Name: "GetMe", Handler: s.GetMe},
		rpc.Method{Name: "GetUser", Handler: s.GetUser},
		rpc.Method{Name: "GetUserByEmail", Handler: s.GetUserByEmail},
		rpc.Method{Name: "DeactivateUser", Handler: s.DeactivateUser},
		rpc.Method{Name: "ActivateUser", Handler: s.ActivateUser},
	)
}

// Rules returns the capability each method requires. GetMe is open to any signed-in user.
func Rules() map[string]rbac.Rule {
	return map[string]rbac.Rule{
		rpc.FullMethod(ServiceName, "GetUser"):        rbac.System(catalog.SystemUsersView),
		rpc.FullMethod(ServiceName, "GetUserByEmail"): rbac.System(catalog.SystemUsersView),
		rpc.FullMethod(ServiceName, "DeactivateUser"): rbac.System(catalog.SystemUsersEdit),
		rpc.FullMethod(ServiceName, "ActivateUser"):   rbac.System(catalog.SystemUsersEdit),
	}
}

// GetMe returns the caller.
func (s *Server) GetMe(ctx context.Context, _ *structpb.Struct) (proto.Message, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetMe not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	return s.lookup(s.userRepo.GetByID(ctx, userID))
}

// GetUser returns a user by ID.
func (s *Server) GetUser(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
	}
	userID, err := rpc.RequiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	return s.lookup(s.userRepo.GetByID(ctx, userID))
}

// GetUserByEmail returns a user by email.
func (s *Server) GetUserByEmail(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUserByEmail not implemented")
	}
	email, err := rpc.RequiredString(req, "email")
	if err != nil {
		return nil, err
	}
	return s.lookup(s.userRepo.GetByEmail(ctx, email))
}

// DeactivateUser revokes a user's access. The user's next request fails authentication and
// no further login code can be redeemed for the account.
func (s *Server) DeactivateUser(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	return s.setActive(ctx, req, false)
}

// ActivateUser restores a deactivated user.
func (s *Server) ActivateUser(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	return s.setActive(ctx, req, true)
}

func (s *Server) setActive(ctx context.Context, req *structpb.Struct, active bool) (proto.Message, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "user lifecycle not implemented")
	}
	userID, err := rpc.RequiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	if caller, _ := interceptors.GetUserID(ctx); !active && caller == userID {
		return nil, status.Error(codes.FailedPrecondition, "cannot deactivate yourself")
	}
	found, err := s.userRepo.SetActive(ctx, userID, active)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to update user")
	}
	if !found {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return s.lookup(s.userRepo.GetByID(ctx, userID))
}

func (s *Server) lookup(u *domain.User, err error) (proto.Message, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to look up user")
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return rpc.Reply(map[string]any{"user": userFields(u)})
}

func userFields(u *domain.User) map[string]any {
	out := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"avatar_url": u.AvatarURL,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		out["last_login_at"] = u.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return out
}
