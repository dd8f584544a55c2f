package repository

import (
	"context"
	"errors"

	"govportal/backend/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already owns the email.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for system users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// SetActive flips the active flag. Deactivation is how access is revoked; users are never hard-deleted.
	// Returns false when no user has the id.
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	// IsActive reports whether id names an active user.
	IsActive(ctx context.Context, id string) (bool, error)
}
