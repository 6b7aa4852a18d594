package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOrderingAndReplay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	e1, err := store.StoreEvent(ctx, "stream-a", []byte("one"))
	require.NoError(t, err)
	e2, err := store.StoreEvent(ctx, "stream-a", []byte("two"))
	require.NoError(t, err)
	e3, err := store.StoreEvent(ctx, "stream-a", []byte("three"))
	require.NoError(t, err)
	require.Less(t, e1, e2)
	require.Less(t, e2, e3)

	var replayed [][]byte
	streamID, err := store.ReplayEventsAfter(ctx, e2, func(m []byte) error {
		replayed = append(replayed, m)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "stream-a", streamID)
	require.Len(t, replayed, 1)
	require.Equal(t, "three", string(replayed[0]))
}

func TestMemoryStoreReplayUnknownID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	calls := 0
	streamID, err := store.ReplayEventsAfter(ctx, 999, func(m []byte) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "", streamID)
	require.Equal(t, 0, calls)
}

func TestMemoryStoreStreamIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	eA, _ := store.StoreEvent(ctx, "a", []byte("a1"))
	_, _ = store.StoreEvent(ctx, "b", []byte("b1"))

	var got [][]byte
	streamID, err := store.ReplayEventsAfter(ctx, eA, func(m []byte) error {
		got = append(got, m)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "a", streamID)
	require.Empty(t, got) // only b1 followed globally, but it's on a different stream
}

func TestMemoryStoreDeleteStream(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	e1, _ := store.StoreEvent(ctx, "a", []byte("a1"))
	eB, _ := store.StoreEvent(ctx, "b", []byte("b1"))

	require.NoError(t, store.DeleteStream(ctx, "a"))

	streamID, err := store.ReplayEventsAfter(ctx, e1, func(m []byte) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "", streamID, "deleted stream's events must be unreachable via replay")

	// Other streams are unaffected.
	streamID, err = store.ReplayEventsAfter(ctx, eB, func(m []byte) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "b", streamID)

	require.NoError(t, store.DeleteStream(ctx, "unknown-stream"), "deleting an unknown stream is a no-op")
}

func TestMemoryStoreCapacityEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	e1, _ := store.StoreEvent(ctx, "s", []byte("1"))
	_, _ = store.StoreEvent(ctx, "s", []byte("2"))
	_, _ = store.StoreEvent(ctx, "s", []byte("3"))

	// e1 should have been evicted; replay after it now resolves to nothing.
	streamID, err := store.ReplayEventsAfter(ctx, e1, func(m []byte) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "", streamID)
}
