package repository

import (
	"context"
	"errors"

	"govportal/backend/internal/permission/domain"
)

var (
	// ErrUnknownPermission is returned when a grant names a code that is not in the permissions table.
	ErrUnknownPermission = errors.New("unknown permission code")
	// ErrNotFound is returned when a membership references a user, group or organization that does not exist.
	ErrNotFound = errors.New("referenced row not found")
)

// Repository answers capability lookups. Template and custom groups are separate methods: a
// template group carries the organization on the membership row, a custom group carries it on
// the group itself.
type Repository interface {
	HasSystemCode(ctx context.Context, userID, code string) (bool, error)
	HasTemplateOrgCode(ctx context.Context, userID, orgID, code string) (bool, error)
	HasCustomOrgCode(ctx context.Context, userID, orgID, code string) (bool, error)

	ListSystemCodes(ctx context.Context, userID string) ([]string, error)
	ListTemplateOrgCodes(ctx context.Context, userID, orgID string) ([]string, error)
	ListCustomOrgCodes(ctx context.Context, userID, orgID string) ([]string, error)

	ListTemplateGrants(ctx context.Context, userID, orgID string) ([]domain.TemplateGrant, error)
	ListCustomGrants(ctx context.Context, userID, orgID string) ([]domain.CustomGrant, error)
}

// Provisioner writes groups, grants and memberships. All methods are idempotent; Ensure*
// methods return the id of the existing row when one matches.
type Provisioner interface {
	EnsurePermission(ctx context.Context, code, description string) (string, error)
	EnsureOrganization(ctx context.Context, org *domain.Organization) error

	EnsureSystemGroup(ctx context.Context, name string) (string, error)
	EnsureTemplateGroup(ctx context.Context, name string) (string, error)
	EnsureCustomGroup(ctx context.Context, orgID, name string) (string, error)

	GrantSystemGroup(ctx context.Context, groupID, code string) error
	GrantTemplateGroup(ctx context.Context, groupID, code string) error
	GrantCustomGroup(ctx context.Context, groupID, code string) error

	AddSystemGroupMember(ctx context.Context, userID, groupID string) error
	AddTemplateGroupMember(ctx context.Context, userID, groupID, orgID string) error
	AddCustomGroupMember(ctx context.Context, userID, groupID string) error
}
