package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"govportal/backend/internal/db"
	"govportal/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts c in one transaction with the cleanup of older challenges: the email's
// unverified challenges and every expired row are deleted first.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM otp_challenges
			WHERE (email = $1 AND verified = FALSE) OR expires_at < $2`,
			c.Email, c.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO otp_challenges (id, email, code_hash, expires_at, verified, attempts, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.Email, c.CodeHash, c.ExpiresAt, c.Verified, c.Attempts, c.CreatedAt)
		return err
	})
}

// GetActive returns the newest unverified, unexpired challenge for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetActive(ctx context.Context, email string, now time.Time) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, code_hash, expires_at, verified, attempts, created_at
		FROM otp_challenges
		WHERE email = $1 AND verified = FALSE AND expires_at >= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, email, now).
		Scan(&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.Verified, &c.Attempts, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementAttempts adds one failed guess to the challenge. A missing row is not an error.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

// Delete removes the challenge. A missing row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
	return err
}

// Consume runs the redeem sequence in one read-committed transaction. The DELETE takes the
// row lock, so a concurrent verifier of the same challenge blocks until this transaction ends
// and then deletes nothing.
func (r *PostgresRepository) Consume(ctx context.Context, id, email string, at time.Time) (*domain.Identity, ConsumeOutcome, error) {
	var (
		ident   *domain.Identity
		outcome ConsumeOutcome
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			outcome = AlreadyConsumed
			return nil
		}

		var (
			u      domain.Identity
			active bool
		)
		err = tx.QueryRowContext(ctx, `
			SELECT id, email, name, avatar_url, is_active
			FROM system_users
			WHERE lower(email) = $1
			FOR UPDATE`, email).
			Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			// The code was right, so the challenge stays consumed.
			outcome = IdentityUnavailable
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE system_users SET last_login_at = $2, updated_at = $2 WHERE id = $1`,
			u.ID, at); err != nil {
			return err
		}
		ident, outcome = &u, Consumed
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return ident, outcome, nil
}
