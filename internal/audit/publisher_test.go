package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*Publisher, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(store, logger), store
}

func TestPublisher_PersistsEmittedEvents(t *testing.T) {
	publisher, store := newTestPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = publisher.Run(ctx) }()

	publisher.Emit(Event{Action: ActionRecordCommitted, RecordID: "record-1"})
	publisher.Emit(Event{Action: ActionSessionStarted, SessionID: "session-1"})

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionRecordCommitted, events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "session-1", events[1].SessionID)
}

func TestPublisher_DrainsOnShutdown(t *testing.T) {
	publisher, store := newTestPublisher(t)

	// Queue before the worker starts, then cancel immediately: the shutdown
	// drain must still persist what was queued.
	publisher.Emit(Event{Action: ActionRecordRemoved, RecordID: "record-2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := publisher.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	events, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "record-2", events[0].RecordID)
}

func TestPublisher_NilIsSafe(t *testing.T) {
	var publisher *Publisher
	publisher.Emit(Event{Action: ActionRecordCommitted})
}
