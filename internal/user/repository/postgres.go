package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"govportal/backend/internal/db"
	"govportal/backend/internal/user/domain"
)

const userColumns = `id, email, name, avatar_url, is_active, last_login_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM system_users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email (case-insensitive), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM system_users WHERE lower(email) = $1`, domain.NormalizeEmail(email))
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
// Returns ErrEmailTaken when the email is already registered.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_users (id, email, name, avatar_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, domain.NormalizeEmail(u.Email), u.Name, u.AvatarURL, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// SetActive sets is_active for the user. Returns false when the user does not exist.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE system_users SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsActive reports whether id names an active user. Unknown ids are inactive.
func (r *PostgresRepository) IsActive(ctx context.Context, id string) (bool, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil || u == nil {
		return false, err
	}
	return u.IsActive, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}
