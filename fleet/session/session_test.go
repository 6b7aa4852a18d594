package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec := &Record{Id: "s1", Status: StatusInitializing, ClientId: "c1"}
	require.NoError(t, store.CreateSession(ctx, rec))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "c1", got.ClientId)
	require.Equal(t, StatusInitializing, got.Status)

	updated, err := store.UpdateSession(ctx, "s1", map[string]any{"status": StatusInitialized})
	require.NoError(t, err)
	require.Equal(t, StatusInitialized, updated.Status)

	_, err = store.UpdateSession(ctx, "s1", map[string]any{"status": StatusClosed})
	require.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.GetSession(ctx, "s1")
	require.ErrorIs(t, err, ErrNotFound)
}

type fakeEventStore struct {
	deleted []string
}

func (f *fakeEventStore) DeleteStream(_ context.Context, streamID string) error {
	f.deleted = append(f.deleted, streamID)
	return nil
}

func TestMemoryStoreDeleteSessionRemovesEventStream(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	events := &fakeEventStore{}
	store.SetEventStore(events)

	require.NoError(t, store.CreateSession(ctx, &Record{Id: "s1", Status: StatusInitializing}))
	require.NoError(t, store.DeleteSession(ctx, "s1"))

	require.Equal(t, []string{"s1"}, events.deleted)
}

func TestMemoryStoreLock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.AcquireLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.AcquireLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.ReleaseLock(ctx, "k"))
	ok, err = store.AcquireLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStatusTransitionDAG(t *testing.T) {
	require.True(t, CanTransition(StatusInitializing, StatusInitialized))
	require.True(t, CanTransition(StatusActive, StatusSuspended))
	require.True(t, CanTransition(StatusSuspended, StatusRecovering))
	require.True(t, CanTransition(StatusRecovering, StatusActive))
	require.False(t, CanTransition(StatusClosed, StatusActive))
	require.False(t, CanTransition(StatusInitializing, StatusActive))
}
