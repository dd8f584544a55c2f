package domain

import "time"

// Challenge is one issued login code (stored in otp_challenges). Only the bcrypt hash of the
// code is kept. Verified means consumed; consumed rows are deleted, so lookups only ever see
// unverified rows.
type Challenge struct {
	ID        string
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Verified  bool
	Attempts  int
	CreatedAt time.Time
}

// Expired reports whether the challenge can no longer be redeemed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Identity is the public descriptor returned by a successful verification.
type Identity struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}
