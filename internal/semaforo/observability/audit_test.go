package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semaforo/pkg/platform/audit"
	"semaforo/pkg/requestcontext"
)

type recordingPublisher struct {
	events []audit.Event
	err    error
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestLogAudit(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	t.Run("publishes enriched event", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		pub := &recordingPublisher{}

		LogAudit(ctx, logger, pub, string(audit.EventSemaforoChanged),
			"organization_id", "org-1", "from", "rojo", "to", "verde")

		require.Len(t, pub.events, 1)
		got := pub.events[0]
		assert.Equal(t, "semaforo_changed", got.Action)
		assert.Equal(t, "org-1", got.Subject)
		assert.Equal(t, "rojo", got.Previous)
		assert.Equal(t, "verde", got.Decision)
		assert.Equal(t, "req-1", got.RequestID)
		assert.Contains(t, buf.String(), "log_type=audit")
		assert.Contains(t, buf.String(), "request_id=req-1")
	})

	t.Run("publisher failure is logged not returned", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		pub := &recordingPublisher{err: errors.New("broker down")}

		LogAudit(ctx, logger, pub, string(audit.EventSemaforoRefreshFailed),
			"organization_id", "org-1", "error", "timeout")

		require.Len(t, pub.events, 1)
		assert.Equal(t, "timeout", pub.events[0].Reason)
		assert.Contains(t, buf.String(), "broker down")
	})

	t.Run("nil publisher and logger are tolerated", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogAudit(ctx, nil, nil, "anything", "organization_id", "org-1")
		})
	})
}
