package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: "REQ-1",
		Action:  string(audit.EventRequestSubmitted),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "REQ-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRequestSubmitted), events[0].Action)
	assert.Equal(t, audit.CategoryLedger, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: "REQ-7",
			Action:  string(audit.EventRequestAccepted),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListBySubject(context.Background(), "REQ-7")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventViewSynced)})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFullDoesNotBlock(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventViewSynced)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Timestamps(t *testing.T) {
	t.Run("sets missing timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)

		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: "REQ-2", Action: "x"}))
		after := time.Now()

		events, err := pub.List(context.Background(), "REQ-2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: "REQ-3", Action: "x", Timestamp: custom}))

		events, err := pub.List(context.Background(), "REQ-3")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, audit.CategoryDegraded, audit.EventRequestSavedLocally.Category())
	assert.Equal(t, audit.CategoryLedger, audit.EventDepartmentRegistered.Category())
	assert.Equal(t, audit.CategoryOperations, audit.AuditEvent("something_new").Category())
}
