// Package permission decides whether a system user holds a capability.
//
// System-scoped checks consult only system groups, and system.superadmin satisfies all of
// them. Organization-scoped checks are the union of two branches: template groups, whose
// organization is carried by the membership row, and custom groups, which belong to one
// organization. There is no organization-level superadmin. Results are never cached, so a
// revoked grant takes effect on the next check.
package permission

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"govportal/backend/internal/metrics"
	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/permission/domain"
	"govportal/backend/internal/permission/repository"
)

// Resolver answers capability checks against the group tables.
type Resolver struct {
	repo   repository.Repository
	logger *zap.Logger
	tracer trace.Tracer
}

// NewResolver returns a Resolver. logger may be nil.
func NewResolver(repo repository.Repository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{repo: repo, logger: logger.Named("permission"), tracer: otel.Tracer("govportal/permission")}
}

// HasSystemPermission reports whether userID holds code through a system group, or holds
// system.superadmin. A false result is not an error.
func (r *Resolver) HasSystemPermission(ctx context.Context, userID, code string) (bool, error) {
	if userID == "" || code == "" {
		return false, nil
	}
	ctx, span := r.tracer.Start(ctx, "permission.HasSystemPermission", trace.WithAttributes(attribute.String("permission.code", code)))
	defer span.End()

	ok, err := r.repo.HasSystemCode(ctx, userID, catalog.SystemSuperadmin)
	if err == nil && !ok && code != catalog.SystemSuperadmin {
		ok, err = r.repo.HasSystemCode(ctx, userID, code)
	}
	metrics.PermissionChecked("system", ok, err)
	if err != nil {
		return false, r.storeError(span, "system check", err)
	}
	span.SetAttributes(attribute.Bool("permission.granted", ok))
	return ok, nil
}

// HasOrgPermission reports whether userID holds code inside orgID through a template group
// mapped to orgID or a custom group owned by orgID.
func (r *Resolver) HasOrgPermission(ctx context.Context, userID, orgID, code string) (bool, error) {
	if userID == "" || orgID == "" || code == "" {
		return false, nil
	}
	ctx, span := r.tracer.Start(ctx, "permission.HasOrgPermission", trace.WithAttributes(
		attribute.String("permission.code", code),
		attribute.String("permission.organization_id", orgID),
	))
	defer span.End()

	ok, err := r.repo.HasTemplateOrgCode(ctx, userID, orgID, code)
	if err == nil && !ok {
		ok, err = r.repo.HasCustomOrgCode(ctx, userID, orgID, code)
	}
	metrics.PermissionChecked("org", ok, err)
	if err != nil {
		return false, r.storeError(span, "org check", err)
	}
	span.SetAttributes(attribute.Bool("permission.granted", ok))
	return ok, nil
}

// GetUserSystemPermissions returns every system code userID holds.
func (r *Resolver) GetUserSystemPermissions(ctx context.Context, userID string) (map[string]struct{}, error) {
	set := domain.NewCodeSet()
	if userID == "" {
		return set, nil
	}
	ctx, span := r.tracer.Start(ctx, "permission.GetUserSystemPermissions")
	defer span.End()

	codes, err := r.repo.ListSystemCodes(ctx, userID)
	if err != nil {
		return nil, r.storeError(span, "list system codes", err)
	}
	set.Add(codes...)
	return set, nil
}

// GetUserOrgPermissions returns the union of userID's template and custom group codes in orgID.
func (r *Resolver) GetUserOrgPermissions(ctx context.Context, userID, orgID string) (map[string]struct{}, error) {
	set := domain.NewCodeSet()
	if userID == "" || orgID == "" {
		return set, nil
	}
	ctx, span := r.tracer.Start(ctx, "permission.GetUserOrgPermissions", trace.WithAttributes(attribute.String("permission.organization_id", orgID)))
	defer span.End()

	tmpl, err := r.repo.ListTemplateOrgCodes(ctx, userID, orgID)
	if err != nil {
		return nil, r.storeError(span, "list template codes", err)
	}
	custom, err := r.repo.ListCustomOrgCodes(ctx, userID, orgID)
	if err != nil {
		return nil, r.storeError(span, "list custom codes", err)
	}
	set.Add(tmpl...)
	set.Add(custom...)
	return set, nil
}

// OrgGrants lists the groups that give userID capabilities in orgID: template grants first,
// then custom grants, each ordered by group name.
func (r *Resolver) OrgGrants(ctx context.Context, userID, orgID string) ([]domain.Grant, error) {
	if userID == "" || orgID == "" {
		return nil, nil
	}
	ctx, span := r.tracer.Start(ctx, "permission.OrgGrants")
	defer span.End()

	tmpl, err := r.repo.ListTemplateGrants(ctx, userID, orgID)
	if err != nil {
		return nil, r.storeError(span, "list template grants", err)
	}
	custom, err := r.repo.ListCustomGrants(ctx, userID, orgID)
	if err != nil {
		return nil, r.storeError(span, "list custom grants", err)
	}
	out := make([]domain.Grant, 0, len(tmpl)+len(custom))
	for _, g := range tmpl {
		sort.Strings(g.Codes)
		out = append(out, g)
	}
	for _, g := range custom {
		sort.Strings(g.Codes)
		out = append(out, g)
	}
	return out, nil
}

func (r *Resolver) storeError(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	r.logger.Error("permission store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("permission: %s: %w", op, err)
}
