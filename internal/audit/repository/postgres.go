package repository

import (
	"context"
	"database/sql"

	"govportal/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	meta := sql.NullString{String: e.Metadata, Valid: e.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org_id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrgID, e.UserID, e.Action, e.Resource, e.IP, meta, e.CreatedAt)
	return err
}

// ListByOrg returns entries for orgID, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID, userID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, user_id, action, resource, ip, COALESCE(metadata::text, ''), created_at
		FROM audit_logs
		WHERE org_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, orgID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.Action, &e.Resource, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
