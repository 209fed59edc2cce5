package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginRequested    AuditEvent = "login_requested"
	AuditPromptFailed      AuditEvent = "prompt_failed"
	AuditLoginVerified     AuditEvent = "login_verified"
	AuditChallengeMismatch AuditEvent = "challenge_mismatch"
	AuditChallengeExpired  AuditEvent = "challenge_expired"
	AuditInvalidSession    AuditEvent = "invalid_session"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// When a store is attached, events are also appended to it; store failures
// are logged and never fail the request.
type auditLogger struct {
	logger *slog.Logger
	store  *AuditStore
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// logEvent writes a structured audit entry. The user is the submitted
// identifier; challenge values are never logged.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, user string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("user", user),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = append(attrs, extra...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", attrs...)

	if al.store != nil {
		if err := al.store.Append(event, user, r.RemoteAddr); err != nil {
			al.logger.Warn("audit store append failed", "error", err)
		}
	}
}

// logFailure logs a failed step in the login flow.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, user, reason string) {
	al.logEvent(event, r, user, slog.String("reason", reason))
}
