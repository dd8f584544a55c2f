package repository

import (
	"context"

	"govportal/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	// ListByOrg returns the newest entries for orgID first. An empty userID matches every user.
	ListByOrg(ctx context.Context, orgID, userID string, limit, offset int) ([]*domain.Entry, error)
}
