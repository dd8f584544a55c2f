package repository

import (
	"context"

	"govportal/backend/internal/ids"
	"govportal/backend/internal/permission/domain"
)

var newID = ids.NewUUID

// EnsurePermission inserts code or refreshes its description, returning the row id.
func (r *PostgresRepository) EnsurePermission(ctx context.Context, code, description string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO permissions (id, code, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`, newID(), code, description).Scan(&id)
	return id, err
}

// EnsureOrganization inserts org when no organization has its id.
func (r *PostgresRepository) EnsureOrganization(ctx context.Context, org *domain.Organization) error {
	if org.ID == "" {
		org.ID = newID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, org.ID, org.Name)
	return err
}

func (r *PostgresRepository) EnsureSystemGroup(ctx context.Context, name string) (string, error) {
	return r.ensureNamed(ctx, `
		INSERT INTO system_permission_groups (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name)
}

func (r *PostgresRepository) EnsureTemplateGroup(ctx context.Context, name string) (string, error) {
	return r.ensureNamed(ctx, `
		INSERT INTO org_user_groups (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name)
}

// EnsureCustomGroup returns the id of orgID's group called name, creating it if needed.
func (r *PostgresRepository) EnsureCustomGroup(ctx context.Context, orgID, name string) (string, error) {
	if !validIDs(orgID) {
		return "", ErrNotFound
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO org_custom_groups (id, organization_id, name) VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, newID(), orgID, name).Scan(&id)
	return id, mapWriteErr(err)
}

func (r *PostgresRepository) GrantSystemGroup(ctx context.Context, groupID, code string) error {
	return r.grant(ctx, `
		INSERT INTO system_permission_group_permissions (group_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, groupID, code)
}

func (r *PostgresRepository) GrantTemplateGroup(ctx context.Context, groupID, code string) error {
	return r.grant(ctx, `
		INSERT INTO org_user_group_permissions (group_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, groupID, code)
}

func (r *PostgresRepository) GrantCustomGroup(ctx context.Context, groupID, code string) error {
	return r.grant(ctx, `
		INSERT INTO org_custom_group_permissions (group_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, groupID, code)
}

func (r *PostgresRepository) AddSystemGroupMember(ctx context.Context, userID, groupID string) error {
	if !validIDs(userID, groupID) {
		return ErrNotFound
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_user_permission_groups (user_id, group_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, groupID)
	return mapWriteErr(err)
}

// AddTemplateGroupMember maps userID to a template group inside orgID.
func (r *PostgresRepository) AddTemplateGroupMember(ctx context.Context, userID, groupID, orgID string) error {
	if !validIDs(userID, groupID, orgID) {
		return ErrNotFound
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO org_user_group_members (user_id, group_id, organization_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, userID, groupID, orgID)
	return mapWriteErr(err)
}

func (r *PostgresRepository) AddCustomGroupMember(ctx context.Context, userID, groupID string) error {
	if !validIDs(userID, groupID) {
		return ErrNotFound
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO org_custom_group_members (user_id, group_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, groupID)
	return mapWriteErr(err)
}

func (r *PostgresRepository) ensureNamed(ctx context.Context, query, name string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, query, newID(), name).Scan(&id)
	return id, err
}

func (r *PostgresRepository) grant(ctx context.Context, query, groupID, code string) error {
	if !validIDs(groupID) {
		return ErrNotFound
	}
	permID, err := r.permissionID(ctx, code)
	if err != nil {
		return err
	}
	if permID == "" {
		return ErrUnknownPermission
	}
	_, err = r.db.ExecContext(ctx, query, groupID, permID)
	return mapWriteErr(err)
}
