// Package devotp keeps issued login codes in memory so DevService/GetOTP can hand them back.
// It is wired only when dev OTP mode is enabled outside production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds the latest plaintext code per email.
type Store interface {
	// Put stores code for email until expiresAt, replacing any earlier code.
	Put(ctx context.Context, email, code string, expiresAt time.Time)
	// Get returns the code for email if present and not expired.
	Get(ctx context.Context, email string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put stores code for email until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for email if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, email string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[email]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		if cur, ok := s.m[email]; ok && cur == e {
			delete(s.m, email)
		}
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}

// Sender records codes in a Store instead of delivering them. It satisfies otp.Sender.
type Sender struct {
	Store Store
}

// SendCode stores code for email.
func (s Sender) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.Store.Put(ctx, email, code, expiresAt)
	return nil
}
