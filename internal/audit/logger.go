package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"govportal/backend/internal/audit/domain"
	auditrepo "govportal/backend/internal/audit/repository"
	"govportal/backend/internal/ids"
)

// SentinelOrgID is the org_id used for audit events that have no organization (e.g. logins).
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// EventLogger writes a single audit event with explicit action and resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type EventLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource string, metadata map[string]string)
}

// Logger implements EventLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *zap.Logger
	now         func() time.Time
}

// NewLogger returns a Logger that persists to repo. ipExtractor may be nil; then IP is
// recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log.Named("audit"), now: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource string, metadata map[string]string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	var meta string
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err == nil {
			meta = string(b)
		}
	}
	entry := &domain.Entry{
		ID:        ids.NewUUID(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  meta,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("failed to write audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}
