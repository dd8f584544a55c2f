package domain

import (
	"errors"
	"strings"
	"time"
)

// User is a console login principal (a system user). It is distinct from the directory
// "people" records an organization publishes.
type User struct {
	ID          string
	Email       string
	Name        string
	AvatarURL   string
	IsActive    bool
	LastLoginAt *time.Time // nil until the first successful login
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeEmail lowercases and trims an email address. Emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if NormalizeEmail(u.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}
