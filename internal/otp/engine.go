// Package otp issues and redeems single-use numeric login codes.
//
// A code is requested for an email, hashed with bcrypt and stored as a challenge with a short
// expiry. Verification redeems the newest active challenge for the email: too many wrong
// guesses lock it out, a match consumes it and resolves the email to an active system user.
// Every authentication failure is reported as ErrAuthFailed; the reason is kept internal.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"govportal/backend/internal/ids"
	"govportal/backend/internal/otp/domain"
	"govportal/backend/internal/otp/repository"
)

var (
	// ErrInvalidInput is returned for a malformed email or code, before any store access.
	ErrInvalidInput = errors.New("otp: invalid input")
	// ErrAuthFailed is the only authentication failure VerifyOTP returns.
	ErrAuthFailed = errors.New("otp: invalid or expired code")
	// ErrRateLimited is returned by RequestOTP when the email asked for too many codes.
	ErrRateLimited = errors.New("otp: too many code requests")
)

// DefaultMaxAttempts is the number of wrong guesses a challenge tolerates.
const DefaultMaxAttempts = 5

// Hasher hashes codes for storage and verifies candidates in constant time.
type Hasher interface {
	Hash(secret []byte) (string, error)
	Verify(hash string, secret []byte) (bool, error)
}

// Sender delivers a plaintext code to an email address.
type Sender interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// Limiter throttles code requests per key.
type Limiter interface {
	Allow(key string) bool
}

// Observer receives the outcome of every request and verification.
type Observer interface {
	Requested(ctx context.Context, email string)
	Throttled(ctx context.Context, email string)
	Verified(ctx context.Context, email, userID string)
	Failed(ctx context.Context, email string, reason FailureReason)
}

// Engine implements the request and verify phases.
type Engine struct {
	store       repository.Repository
	hasher      Hasher
	sender      Sender
	limiter     Limiter
	observer    Observer
	logger      *zap.Logger
	tracer      trace.Tracer
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
	newID       func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithTTL sets how long a code stays valid.
func WithTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ttl = d
		}
	}
}

// WithMaxAttempts sets the lockout threshold.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithLimiter throttles RequestOTP per email.
func WithLimiter(l Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithObserver registers an outcome observer (audit, metrics, events).
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCodeGenerator overrides GenerateCode.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.generate = gen }
}

// NewEngine returns an Engine. logger may be nil.
func NewEngine(store repository.Repository, hasher Hasher, sender Sender, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:       store,
		hasher:      hasher,
		sender:      sender,
		logger:      logger.Named("otp"),
		tracer:      otel.Tracer("govportal/otp"),
		ttl:         repository.DefaultChallengeTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		generate:    GenerateCode,
		newID:       ids.NewULID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequestOTP issues a new code for email and hands it to the Sender. Older outstanding
// challenges for the email are discarded. Whether a user owns the email is not checked, so
// the response is the same for every well-formed address.
func (e *Engine) RequestOTP(ctx context.Context, email string) error {
	ctx, span := e.tracer.Start(ctx, "otp.RequestOTP")
	defer span.End()

	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if e.limiter != nil && !e.limiter.Allow(email) {
		span.SetAttributes(attribute.Bool("otp.rate_limited", true))
		if e.observer != nil {
			e.observer.Throttled(ctx, email)
		}
		return ErrRateLimited
	}

	code, err := e.generate()
	if err != nil {
		return e.infraError(span, "generate code", err)
	}
	hash, err := e.hasher.Hash([]byte(code))
	if err != nil {
		return e.infraError(span, "hash code", err)
	}
	now := e.now().UTC()
	c := &domain.Challenge{
		ID:        e.newID(),
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(e.ttl),
		CreatedAt: now,
	}
	if err := e.store.Create(ctx, c); err != nil {
		return e.infraError(span, "store challenge", err)
	}
	if err := e.sender.SendCode(ctx, email, code, c.ExpiresAt); err != nil {
		return e.infraError(span, "send code", err)
	}
	if e.observer != nil {
		e.observer.Requested(ctx, email)
	}
	e.logger.Debug("code issued", zap.String("challenge_id", c.ID), zap.Time("expires_at", c.ExpiresAt))
	return nil
}

// VerifyOTP redeems code for email. On success the challenge is gone, the user's last login
// is stamped and the user's public fields are returned. Authentication failures return
// ErrAuthFailed; malformed input returns ErrInvalidInput; anything else is a store error.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error) {
	ctx, span := e.tracer.Start(ctx, "otp.VerifyOTP")
	defer span.End()

	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !ValidCode(code) {
		return nil, fmt.Errorf("%w: code must be %d digits", ErrInvalidInput, CodeDigits)
	}

	ident, reason, err := e.verify(ctx, email, code)
	if err != nil {
		return nil, e.infraError(span, "verify", err)
	}
	if reason != ReasonNone {
		span.SetAttributes(attribute.String("otp.outcome", reason.String()))
		e.logger.Info("verification rejected", zap.String("reason", reason.String()))
		if e.observer != nil {
			e.observer.Failed(ctx, email, reason)
		}
		return nil, ErrAuthFailed
	}
	span.SetAttributes(attribute.String("otp.outcome", "success"))
	if e.observer != nil {
		e.observer.Verified(ctx, email, ident.ID)
	}
	return ident, nil
}

// verify runs the checks in order and reports the first that fails.
func (e *Engine) verify(ctx context.Context, email, code string) (*domain.Identity, FailureReason, error) {
	now := e.now().UTC()
	c, err := e.store.GetActive(ctx, email, now)
	if err != nil {
		return nil, ReasonNone, fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		return nil, ReasonNoChallenge, nil
	}
	if c.Attempts >= e.maxAttempts {
		if err := e.store.Delete(ctx, c.ID); err != nil {
			return nil, ReasonNone, fmt.Errorf("delete locked challenge: %w", err)
		}
		return nil, ReasonLockedOut, nil
	}

	ok, err := e.hasher.Verify(c.CodeHash, []byte(code))
	if err != nil {
		return nil, ReasonNone, fmt.Errorf("compare code: %w", err)
	}
	if !ok {
		if err := e.store.IncrementAttempts(ctx, c.ID); err != nil {
			return nil, ReasonNone, fmt.Errorf("record attempt: %w", err)
		}
		return nil, ReasonCodeMismatch, nil
	}

	ident, outcome, err := e.store.Consume(ctx, c.ID, email, now)
	if err != nil {
		return nil, ReasonNone, fmt.Errorf("consume challenge: %w", err)
	}
	switch outcome {
	case repository.Consumed:
		return ident, ReasonNone, nil
	case repository.AlreadyConsumed:
		return nil, ReasonAlreadyConsumed, nil
	default:
		return nil, ReasonIdentityUnavailable, nil
	}
}

func (e *Engine) infraError(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	e.logger.Error("otp store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("otp: %s: %w", op, err)
}
