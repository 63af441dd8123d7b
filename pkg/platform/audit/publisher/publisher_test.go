package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "semaforo/pkg/platform/audit"
	"semaforo/pkg/platform/audit/store/memory"
)

const subject = "9b2f4a6e-1c1d-4f6a-9a77-0d6b3c1e2f10"

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: subject,
		Action:  string(audit.EventSemaforoChanged),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), subject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSemaforoChanged), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: subject,
			Action:  string(audit.EventDocumentCreated),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListBySubject(context.Background(), subject)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), audit.Event{
				Subject: subject,
				Action:  string(audit.EventDocumentUpdated),
			}))
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListBySubject(context.Background(), subject)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.LessOrEqual(t, len(events), 10)
}

func TestPublisher_Timestamps(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	t.Run("sets missing timestamp", func(t *testing.T) {
		store.Clear()
		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: subject, Action: "x"}))
		after := time.Now()

		events, err := pub.List(context.Background(), subject)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		store.Clear()
		fixed := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: subject, Action: "x", Timestamp: fixed}))

		events, err := pub.List(context.Background(), subject)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, fixed, events[0].Timestamp)
	})
}

type appendOnly struct{}

func (appendOnly) Append(context.Context, audit.Event) error { return nil }

func TestPublisher_ListUnsupported(t *testing.T) {
	pub := NewPublisher(appendOnly{})
	defer pub.Close()

	_, err := pub.List(context.Background(), subject)
	assert.ErrorIs(t, err, ErrListUnsupported)
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{name: "sync"},
		{name: "async", opts: []Option{WithAsyncBuffer(4)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewInMemoryStore()
			pub := NewPublisher(store, tc.opts...)
			pub.Close()

			assert.NotPanics(t, func() {
				err := pub.Emit(context.Background(), audit.Event{Subject: subject, Action: string(audit.EventSemaforoChanged)})
				assert.ErrorIs(t, err, ErrClosed)
			})
			events, err := store.ListBySubject(context.Background(), subject)
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestPublisher_ConcurrentEmitAndClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(8))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = pub.Emit(context.Background(), audit.Event{Subject: subject, Action: string(audit.EventDocumentCreated)})
			}
		}()
	}
	assert.NotPanics(t, pub.Close)
	wg.Wait()
}
