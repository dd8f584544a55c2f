package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies short-lived secrets (login codes) using bcrypt.
// Callers must not log or persist the plaintext.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to 4–31.
// Zero or negative selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares secret against the stored hash in constant time.
// A mismatch is (false, nil); a malformed hash is reported as an error so that
// corrupt rows are not mistaken for wrong guesses.
func (h *Hasher) Verify(hash string, secret []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), secret)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
