package repository

import (
	"context"
	"time"

	"govportal/backend/internal/otp/domain"
)

// DefaultChallengeTTL is the default login code lifetime.
const DefaultChallengeTTL = 10 * time.Minute

// ConsumeOutcome is the result of redeeming a challenge whose code matched.
type ConsumeOutcome int

const (
	// Consumed means the challenge was deleted and the identity's last login recorded.
	Consumed ConsumeOutcome = iota
	// AlreadyConsumed means another verifier deleted the row first.
	AlreadyConsumed
	// IdentityUnavailable means the challenge was deleted but no active user owns the email.
	IdentityUnavailable
)

// Repository defines persistence for login challenges.
type Repository interface {
	// Create stores c after removing the email's outstanding challenges and any expired rows.
	Create(ctx context.Context, c *domain.Challenge) error
	// GetActive returns the most recently created unverified challenge for email that has not
	// expired at now, or nil if there is none.
	GetActive(ctx context.Context, email string, now time.Time) (*domain.Challenge, error)
	IncrementAttempts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// Consume atomically deletes the challenge, loads the active user for email and stamps
	// last_login_at. The identity is non-nil only when the outcome is Consumed.
	Consume(ctx context.Context, id, email string, at time.Time) (*domain.Identity, ConsumeOutcome, error)
}
