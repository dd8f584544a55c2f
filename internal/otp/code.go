package otp

import (
	"crypto/rand"
	"fmt"
	"regexp"

	"govportal/backend/internal/user/domain"
)

// CodeDigits is the length of a login code.
const CodeDigits = 6

const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// GenerateCode returns a 6-digit numeric code (e.g. "042917") read from crypto/rand.
// Bytes >= 250 are rejected so every digit is uniformly distributed.
func GenerateCode() (string, error) {
	out := make([]byte, 0, CodeDigits)
	buf := make([]byte, CodeDigits*2)
	for len(out) < CodeDigits {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == CodeDigits {
				break
			}
		}
	}
	return string(out), nil
}

// ValidCode reports whether code is exactly CodeDigits ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeEmail lowercases and trims email and checks that it is well-formed.
func NormalizeEmail(email string) (string, error) {
	e := domain.NormalizeEmail(email)
	if e == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(e) > maxEmailLength || !emailPattern.MatchString(e) {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return e, nil
}
