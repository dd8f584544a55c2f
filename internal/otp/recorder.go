package otp

import (
	"context"
	"encoding/json"
	"time"

	"govportal/backend/internal/audit"
	auditdomain "govportal/backend/internal/audit/domain"
	"govportal/backend/internal/ids"
	"govportal/backend/internal/metrics"
	"govportal/backend/internal/telemetry"
	teldomain "govportal/backend/internal/telemetry/domain"
)

const eventSource = "otp_engine"

// Recorder is the production Observer. Each outcome becomes a metric sample, an audit row
// and an auth event. Audit rows carry the email; events never do.
type Recorder struct {
	audit   audit.EventLogger
	emitter telemetry.EventEmitter
	now     func() time.Time
}

// NewRecorder returns a Recorder. Either sink may be nil.
func NewRecorder(auditLog audit.EventLogger, emitter telemetry.EventEmitter) *Recorder {
	return &Recorder{audit: auditLog, emitter: emitter, now: time.Now}
}

var _ Observer = (*Recorder)(nil)

func (r *Recorder) Requested(ctx context.Context, email string) {
	metrics.OTPRequested("issued")
	r.log(ctx, "", auditdomain.ActionLoginCodeRequested, map[string]string{"email": email})
	r.emit("", teldomain.TypeOTPRequested, "success", nil)
}

func (r *Recorder) Throttled(ctx context.Context, email string) {
	metrics.OTPRequested("rate_limited")
	r.log(ctx, "", auditdomain.ActionLoginCodeThrottled, map[string]string{"email": email})
	r.emit("", teldomain.TypeOTPThrottled, "rate_limited", nil)
}

func (r *Recorder) Verified(ctx context.Context, email, userID string) {
	metrics.OTPVerified("success")
	r.log(ctx, userID, auditdomain.ActionLoginSuccess, map[string]string{"email": email})
	r.emit(userID, teldomain.TypeOTPVerified, "success", nil)
}

func (r *Recorder) Failed(ctx context.Context, email string, reason FailureReason) {
	metrics.OTPVerified(reason.String())
	r.log(ctx, "", auditdomain.ActionLoginFailure, map[string]string{"email": email, "reason": reason.String()})
	r.emit("", teldomain.TypeOTPFailed, "failure", map[string]string{"reason": reason.String()})
}

func (r *Recorder) log(ctx context.Context, userID, action string, metadata map[string]string) {
	if r.audit == nil {
		return
	}
	r.audit.LogEvent(ctx, audit.SentinelOrgID, userID, action, auditdomain.ResourceAuth, metadata)
}

func (r *Recorder) emit(userID, eventType, outcome string, metadata map[string]string) {
	if r.emitter == nil {
		return
	}
	var raw json.RawMessage
	if len(metadata) > 0 {
		raw, _ = json.Marshal(metadata)
	}
	telemetry.EmitAsync(r.emitter, &teldomain.Event{
		ID:        ids.NewULID(),
		UserID:    userID,
		EventType: eventType,
		Source:    eventSource,
		Outcome:   outcome,
		Metadata:  raw,
		CreatedAt: r.now().UTC(),
	})
}
