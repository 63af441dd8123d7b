// Package observability provides audit logging helpers shared by the
// semaforo and documents services.
package observability

import (
	"context"
	"log/slog"

	"semaforo/internal/semaforo/ports"
	"semaforo/pkg/attrs"
	"semaforo/pkg/platform/audit"
	"semaforo/pkg/requestcontext"
)

// LogAudit logs audit events to both structured logger and audit publisher.
// It enriches events with request ID and extracts subject, decision, previous
// and reason from attrList. Publisher failures are logged and swallowed.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, event string, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)

	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}

	err := publisher.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   attrs.ExtractString(attrList, "organization_id"),
		Decision:  attrs.ExtractString(attrList, "to"),
		Previous:  attrs.ExtractString(attrList, "from"),
		Reason:    extractReason(attrList),
		RequestID: requestID,
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish audit event", "event", event, "error", err)
	}
}

func extractReason(attrList []any) string {
	for _, key := range []string{"reason", "error"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
