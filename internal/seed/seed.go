// Package seed provisions the capability catalog, the built-in groups and the first console
// administrator. Every step is idempotent, so it is safe to run on each deploy.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"govportal/backend/internal/ids"
	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/permission/domain"
	permissionrepo "govportal/backend/internal/permission/repository"
	userdomain "govportal/backend/internal/user/domain"
	userrepo "govportal/backend/internal/user/repository"
)

const (
	SuperadminsGroup = "Superadmins"
	EditorsGroup     = "Editors"
	PublishersGroup  = "Publishers"
)

// DemoOrganization is the organization the seeded administrator edits in.
var DemoOrganization = domain.Organization{ID: "7b0c6a55-3f7e-4b8e-9a43-0d7f6a1c2e01", Name: "Ministry of Digital Services"}

// EditorCodes are granted to the Editors template group.
var EditorCodes = []string{
	catalog.OrgPersonView,
	catalog.OrgDepartmentView,
	catalog.OrgServiceView,
	catalog.OrgNewsView,
	catalog.OrgNewsCreate,
	catalog.OrgNewsEdit,
}

// Options selects the administrator account.
type Options struct {
	AdminEmail string
	AdminName  string
}

// Result reports the ids the seed resolved.
type Result struct {
	AdminID         string
	SuperadminsID   string
	EditorsID       string
	PublishersID    string
	OrganizationID  string
	PermissionCount int
}

// Seeder runs the provisioning steps.
type Seeder struct {
	users  userrepo.Repository
	perms  permissionrepo.Provisioner
	logger *zap.Logger
}

// New returns a Seeder. logger may be nil.
func New(users userrepo.Repository, perms permissionrepo.Provisioner, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, perms: perms, logger: logger.Named("seed")}
}

// Run provisions everything and returns the resolved ids.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@example.gov"
	}
	if opts.AdminName == "" {
		opts.AdminName = "Portal Administrator"
	}
	res := &Result{OrganizationID: DemoOrganization.ID}

	for _, e := range catalog.All() {
		if _, err := s.perms.EnsurePermission(ctx, e.Code, e.Description); err != nil {
			return nil, fmt.Errorf("seed: permission %s: %w", e.Code, err)
		}
		res.PermissionCount++
	}

	adminID, err := s.ensureUser(ctx, opts.AdminEmail, opts.AdminName)
	if err != nil {
		return nil, err
	}
	res.AdminID = adminID

	if res.SuperadminsID, err = s.perms.EnsureSystemGroup(ctx, SuperadminsGroup); err != nil {
		return nil, fmt.Errorf("seed: system group: %w", err)
	}
	if err := s.perms.GrantSystemGroup(ctx, res.SuperadminsID, catalog.SystemSuperadmin); err != nil {
		return nil, fmt.Errorf("seed: grant superadmin: %w", err)
	}
	if err := s.perms.AddSystemGroupMember(ctx, adminID, res.SuperadminsID); err != nil {
		return nil, fmt.Errorf("seed: superadmin member: %w", err)
	}

	org := DemoOrganization
	if err := s.perms.EnsureOrganization(ctx, &org); err != nil {
		return nil, fmt.Errorf("seed: organization: %w", err)
	}
	if res.EditorsID, err = s.perms.EnsureTemplateGroup(ctx, EditorsGroup); err != nil {
		return nil, fmt.Errorf("seed: template group: %w", err)
	}
	for _, code := range EditorCodes {
		if err := s.perms.GrantTemplateGroup(ctx, res.EditorsID, code); err != nil {
			return nil, fmt.Errorf("seed: grant %s: %w", code, err)
		}
	}
	if err := s.perms.AddTemplateGroupMember(ctx, adminID, res.EditorsID, org.ID); err != nil {
		return nil, fmt.Errorf("seed: editors member: %w", err)
	}

	if res.PublishersID, err = s.perms.EnsureCustomGroup(ctx, org.ID, PublishersGroup); err != nil {
		return nil, fmt.Errorf("seed: custom group: %w", err)
	}
	if err := s.perms.GrantCustomGroup(ctx, res.PublishersID, catalog.OrgNewsPublish); err != nil {
		return nil, fmt.Errorf("seed: grant publish: %w", err)
	}
	if err := s.perms.AddCustomGroupMember(ctx, adminID, res.PublishersID); err != nil {
		return nil, fmt.Errorf("seed: publishers member: %w", err)
	}

	s.logger.Info("seed applied",
		zap.String("admin_id", adminID),
		zap.Int("permissions", res.PermissionCount),
		zap.String("organization_id", org.ID))
	return res, nil
}

// ensureUser returns the id of the user owning email, creating an active user when absent.
func (s *Seeder) ensureUser(ctx context.Context, email, name string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("seed: look up %s: %w", email, err)
	}
	if u != nil {
		return u.ID, nil
	}
	u = &userdomain.User{ID: ids.NewUUID(), Email: email, Name: name, IsActive: true}
	err = s.users.Create(ctx, u)
	if errors.Is(err, userrepo.ErrEmailTaken) {
		// Lost a race with a concurrent seed.
		if u, err = s.users.GetByEmail(ctx, email); err == nil && u != nil {
			return u.ID, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("seed: create %s: %w", email, err)
	}
	return u.ID, nil
}
