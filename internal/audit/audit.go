// Package audit emits security-relevant events as structured log entries.
// In the future this can be wired to DB or an external SIEM sink.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/pulsegram/authd/internal/observability/logger"
)

// Event names. Keep stable: dashboards and alerts key on these.
const (
	EventCodeIssued          = "oauth.code_issued"
	EventTokensGenerated     = "oauth.tokens_generated"
	EventTokenRevoked        = "oauth.token_revoked"
	EventRefreshReuse        = "oauth.refresh_reuse_detected"
	EventFingerprintMismatch = "oauth.fingerprint_hash_mismatch"
	EventRateLimitFailOpen   = "rate.fail_open"
	EventRateLimitExceeded   = "rate.limit_exceeded"
)

// Log writes a structured audit event through the zap singleton.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+1)
	all = append(all, zap.String("event", event))
	all = append(all, fields...)
	logger.From(ctx).Named("audit").Info("audit event", all...)
}

// Security writes an audit event at warn level. Used for anomalies that
// indicate a possible attack (token reuse, fingerprint collisions).
func Security(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+1)
	all = append(all, zap.String("event", event))
	all = append(all, fields...)
	logger.From(ctx).Named("audit").Warn("security event", all...)
}
