package security

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, exp, err := p.IssueAccess("u1", "admin@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	uid, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if uid != "u1" {
		t.Errorf("ValidateAccess userID = %q, want %q", uid, "u1")
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessExpired(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	p.accessTTL = -time.Minute
	token, _, err := p.IssueAccess("u1", "admin@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessWrongAudience(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	other := NewTokenProvider(p.privateKey, p.publicKey, p.issuer, "other-audience", time.Minute)
	token, _, err := other.IssueAccess("u1", "admin@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessWrongIssuer(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	other := NewTokenProvider(p.privateKey, p.publicKey, "someone-else", p.audience, time.Minute)
	token, _, err := other.IssueAccess("u1", "admin@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("wrong issuer: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	p := NewTokenProvider(key, &key.PublicKey, "iss", "aud", time.Minute)
	token, _, err := p.IssueAccess("u2", "editor@example.gov")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	uid, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if uid != "u2" {
		t.Errorf("userID = %q, want u2", uid)
	}
}
