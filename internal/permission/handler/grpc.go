// Package handler exposes the permission resolver as AccessService.
package handler

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/permission/domain"
	"govportal/backend/internal/platform/rbac"
	"govportal/backend/internal/server/interceptors"
	"govportal/backend/internal/server/rpc"
)

// ServiceName is the registered gRPC service name.
const ServiceName = "govportal.access.v1.AccessService"

// Resolver is the subset of *permission.Resolver the handler uses.
type Resolver interface {
	HasSystemPermission(ctx context.Context, userID, code string) (bool, error)
	HasOrgPermission(ctx context.Context, userID, orgID, code string) (bool, error)
	GetUserSystemPermissions(ctx context.Context, userID string) (map[string]struct{}, error)
	GetUserOrgPermissions(ctx context.Context, userID, orgID string) (map[string]struct{}, error)
	OrgGrants(ctx context.Context, userID, orgID string) ([]domain.Grant, error)
}

// Server implements AccessService.
type Server struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewServer returns an AccessService server.
func NewServer(resolver Resolver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{resolver: resolver, logger: logger.Named("access_handler")}
}

// Register adds AccessService to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	rpc.Register(r, ServiceName,
		rpc.Method{Name: "ListMyPermissions", Handler: s.ListMyPermissions},
		rpc.Method{Name: "CheckPermission", Handler: s.CheckPermission},
		rpc.Method{Name: "GetUserPermissions", Handler: s.GetUserPermissions},
		rpc.Method{Name: "ListOrgGrants", Handler: s.ListOrgGrants},
	)
}

// Rules returns the capability each admin method requires.
func Rules() map[string]rbac.Rule {
	return map[string]rbac.Rule{
		rpc.FullMethod(ServiceName, "GetUserPermissions"): rbac.System(catalog.SystemUsersView),
		rpc.FullMethod(ServiceName, "ListOrgGrants"):      rbac.System(catalog.SystemGroupsView),
	}
}

// ListMyPermissions returns the caller's capabilities: organization-scoped when an
// organization is given in the body or the x-organization-id header, system-scoped otherwise.
func (s *Server) ListMyPermissions(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.codesReply(ctx, userID, orgFrom(ctx, req))
}

// CheckPermission reports whether the caller holds {capability}, in {organization_id} when
// one is given.
func (s *Server) CheckPermission(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	code, err := rpc.RequiredString(req, "capability")
	if err != nil {
		return nil, err
	}
	var ok bool
	if orgID := orgFrom(ctx, req); orgID != "" {
		ok, err = s.resolver.HasOrgPermission(ctx, userID, orgID, code)
	} else {
		ok, err = s.resolver.HasSystemPermission(ctx, userID, code)
	}
	if err != nil {
		return nil, s.internal("check permission", err)
	}
	return wrapperspb.Bool(ok), nil
}

// GetUserPermissions returns another user's capabilities. Requires system.users.view.
func (s *Server) GetUserPermissions(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	userID, err := rpc.RequiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	return s.codesReply(ctx, userID, rpc.String(req, "organization_id"))
}

// ListOrgGrants lists the groups through which a user holds capabilities in an organization.
// Requires system.groups.view.
func (s *Server) ListOrgGrants(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	userID, err := rpc.RequiredString(req, "user_id")
	if err != nil {
		return nil, err
	}
	orgID, err := rpc.RequiredString(req, "organization_id")
	if err != nil {
		return nil, err
	}
	grants, err := s.resolver.OrgGrants(ctx, userID, orgID)
	if err != nil {
		return nil, s.internal("list org grants", err)
	}
	out := make([]any, 0, len(grants))
	for _, g := range grants {
		item := map[string]any{
			"group_id":     g.Group(),
			"capabilities": rpc.List(g.Capabilities()),
		}
		switch g := g.(type) {
		case domain.TemplateGrant:
			item["kind"] = "template"
			item["group_name"] = g.GroupName
			item["organization_id"] = g.OrganizationID
		case domain.CustomGrant:
			item["kind"] = "custom"
			item["group_name"] = g.GroupName
		}
		out = append(out, item)
	}
	return rpc.Reply(map[string]any{"grants": out})
}

func (s *Server) codesReply(ctx context.Context, userID, orgID string) (proto.Message, error) {
	var (
		set map[string]struct{}
		err error
	)
	if orgID != "" {
		set, err = s.resolver.GetUserOrgPermissions(ctx, userID, orgID)
	} else {
		set, err = s.resolver.GetUserSystemPermissions(ctx, userID)
	}
	if err != nil {
		return nil, s.internal("list permissions", err)
	}
	list := make([]string, 0, len(set))
	for c := range set {
		list = append(list, c)
	}
	sort.Strings(list)
	return rpc.Reply(map[string]any{"codes": rpc.List(list)})
}

func (s *Server) internal(op string, err error) error {
	s.logger.Error(op, zap.Error(err))
	return status.Error(codes.Internal, "failed to resolve permissions")
}

func caller(ctx context.Context) (string, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "not authenticated")
	}
	return userID, nil
}

// orgFrom prefers the body's organization_id over the header.
func orgFrom(ctx context.Context, req *structpb.Struct) string {
	if org := rpc.String(req, "organization_id"); org != "" {
		return org
	}
	org, _ := interceptors.GetOrgID(ctx)
	return org
}
