package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"govportal/backend/internal/db"
	"govportal/backend/internal/permission/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a permission repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// validIDs reports whether every id parses as a UUID. Ids that cannot exist in the tables
// match nothing and are answered without a query.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func (r *PostgresRepository) HasSystemCode(ctx context.Context, userID, code string) (bool, error) {
	if !validIDs(userID) {
		return false, nil
	}
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM system_user_permission_groups ug
			JOIN system_permission_group_permissions gp ON gp.group_id = ug.group_id
			JOIN permissions p ON p.id = gp.permission_id
			WHERE ug.user_id = $1 AND p.code = $2)`, userID, code)
}

func (r *PostgresRepository) HasTemplateOrgCode(ctx context.Context, userID, orgID, code string) (bool, error) {
	if !validIDs(userID, orgID) {
		return false, nil
	}
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM org_user_group_members m
			JOIN org_user_group_permissions gp ON gp.group_id = m.group_id
			JOIN permissions p ON p.id = gp.permission_id
			WHERE m.user_id = $1 AND m.organization_id = $2 AND p.code = $3)`, userID, orgID, code)
}

func (r *PostgresRepository) HasCustomOrgCode(ctx context.Context, userID, orgID, code string) (bool, error) {
	if !validIDs(userID, orgID) {
		return false, nil
	}
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM org_custom_group_members m
			JOIN org_custom_groups g ON g.id = m.group_id
			JOIN org_custom_group_permissions gp ON gp.group_id = g.id
			JOIN permissions p ON p.id = gp.permission_id
			WHERE m.user_id = $1 AND g.organization_id = $2 AND p.code = $3)`, userID, orgID, code)
}

func (r *PostgresRepository) ListSystemCodes(ctx context.Context, userID string) ([]string, error) {
	if !validIDs(userID) {
		return nil, nil
	}
	return r.codes(ctx, `
		SELECT DISTINCT p.code
		FROM system_user_permission_groups ug
		JOIN system_permission_group_permissions gp ON gp.group_id = ug.group_id
		JOIN permissions p ON p.id = gp.permission_id
		WHERE ug.user_id = $1
		ORDER BY p.code`, userID)
}

func (r *PostgresRepository) ListTemplateOrgCodes(ctx context.Context, userID, orgID string) ([]string, error) {
	if !validIDs(userID, orgID) {
		return nil, nil
	}
	return r.codes(ctx, `
		SELECT DISTINCT p.code
		FROM org_user_group_members m
		JOIN org_user_group_permissions gp ON gp.group_id = m.group_id
		JOIN permissions p ON p.id = gp.permission_id
		WHERE m.user_id = $1 AND m.organization_id = $2
		ORDER BY p.code`, userID, orgID)
}

func (r *PostgresRepository) ListCustomOrgCodes(ctx context.Context, userID, orgID string) ([]string, error) {
	if !validIDs(userID, orgID) {
		return nil, nil
	}
	return r.codes(ctx, `
		SELECT DISTINCT p.code
		FROM org_custom_group_members m
		JOIN org_custom_groups g ON g.id = m.group_id
		JOIN org_custom_group_permissions gp ON gp.group_id = g.id
		JOIN permissions p ON p.id = gp.permission_id
		WHERE m.user_id = $1 AND g.organization_id = $2
		ORDER BY p.code`, userID, orgID)
}

// ListTemplateGrants returns one grant per template group the user is mapped to in orgID.
// A group with no capabilities yields a grant with no codes.
func (r *PostgresRepository) ListTemplateGrants(ctx context.Context, userID, orgID string) ([]domain.TemplateGrant, error) {
	if !validIDs(userID, orgID) {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, p.code
		FROM org_user_group_members m
		JOIN org_user_groups g ON g.id = m.group_id
		LEFT JOIN org_user_group_permissions gp ON gp.group_id = g.id
		LEFT JOIN permissions p ON p.id = gp.permission_id
		WHERE m.user_id = $1 AND m.organization_id = $2
		ORDER BY g.name, g.id, p.code`, userID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TemplateGrant
	for rows.Next() {
		var (
			groupID, name string
			code          sql.NullString
		)
		if err := rows.Scan(&groupID, &name, &code); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].GroupID != groupID {
			out = append(out, domain.TemplateGrant{OrganizationID: orgID, GroupID: groupID, GroupName: name})
		}
		if code.Valid {
			last := &out[len(out)-1]
			last.Codes = append(last.Codes, code.String)
		}
	}
	return out, rows.Err()
}

// ListCustomGrants returns one grant per custom group of orgID the user belongs to.
func (r *PostgresRepository) ListCustomGrants(ctx context.Context, userID, orgID string) ([]domain.CustomGrant, error) {
	if !validIDs(userID, orgID) {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, p.code
		FROM org_custom_group_members m
		JOIN org_custom_groups g ON g.id = m.group_id
		LEFT JOIN org_custom_group_permissions gp ON gp.group_id = g.id
		LEFT JOIN permissions p ON p.id = gp.permission_id
		WHERE m.user_id = $1 AND g.organization_id = $2
		ORDER BY g.name, g.id, p.code`, userID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CustomGrant
	for rows.Next() {
		var (
			groupID, name string
			code          sql.NullString
		)
		if err := rows.Scan(&groupID, &name, &code); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].GroupID != groupID {
			out = append(out, domain.CustomGrant{GroupID: groupID, GroupName: name})
		}
		if code.Valid {
			last := &out[len(out)-1]
			last.Codes = append(last.Codes, code.String)
		}
	}
	return out, rows.Err()
}

func (r *PostgresRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PostgresRepository) codes(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// permissionID resolves code to its row id, or "" when the code is not seeded.
func (r *PostgresRepository) permissionID(ctx context.Context, code string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM permissions WHERE code = $1`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// mapWriteErr turns a foreign key violation into ErrNotFound.
func mapWriteErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

var (
	_ Repository  = (*PostgresRepository)(nil)
	_ Provisioner = (*PostgresRepository)(nil)
)
