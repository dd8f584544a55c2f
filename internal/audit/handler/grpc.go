// Package handler implements AuditService for reading the audit log.
package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"govportal/backend/internal/audit"
	"govportal/backend/internal/audit/domain"
	auditrepo "govportal/backend/internal/audit/repository"
	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/platform/rbac"
	"govportal/backend/internal/server/rpc"
)

// ServiceName is the registered gRPC service name.
const ServiceName = "govportal.audit.v1.AuditService"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Server implements AuditService.
type Server struct {
	repo auditrepo.Repository
}

// NewServer returns a new Audit gRPC server.
func NewServer(repo auditrepo.Repository) *Server {
	return &Server{repo: repo}
}

// Register adds AuditService to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	rpc.Register(r, ServiceName, rpc.Method{Name: "ListAuditLogs", Handler: s.ListAuditLogs})
}

// Rules returns the capability each method requires.
func Rules() map[string]rbac.Rule {
	return map[string]rbac.Rule{
		rpc.FullMethod(ServiceName, "ListAuditLogs"): rbac.System(catalog.SystemAuditView),
	}
}

// ListAuditLogs returns a page of audit entries, newest first. organization_id defaults to the
// system log (logins); user_id narrows to one user. page_token is the opaque value returned as
// next_page_token.
func (s *Server) ListAuditLogs(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	orgID := rpc.String(req, "organization_id")
	if orgID == "" {
		orgID = audit.SentinelOrgID
	}
	pageSize := rpc.Int(req, "page_size", defaultPageSize)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := 0
	if tok := rpc.String(req, "page_token"); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, status.Error(codes.InvalidArgument, "invalid page_token")
		}
		offset = n
	}

	// One extra row tells whether another page exists.
	entries, err := s.repo.ListByOrg(ctx, orgID, rpc.String(req, "user_id"), pageSize+1, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list audit logs")
	}
	next := ""
	if len(entries) > pageSize {
		entries = entries[:pageSize]
		next = strconv.Itoa(offset + pageSize)
	}
	logs := make([]any, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, entryFields(e))
	}
	return rpc.Reply(map[string]any{"logs": logs, "next_page_token": next})
}

func entryFields(e *domain.Entry) map[string]any {
	out := map[string]any{
		"id":              e.ID,
		"organization_id": e.OrgID,
		"user_id":         e.UserID,
		"action":          e.Action,
		"resource":        e.Resource,
		"ip":              e.IP,
		"created_at":      e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.Metadata != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(e.Metadata), &meta); err == nil {
			out["metadata"] = meta
		}
	}
	return out
}
