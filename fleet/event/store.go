package event

import "context"

// Store is the per-stream append-only event log of the data model (C4):
// server-produced messages carry a globally unique, stream-monotonic event
// id, and replay-after-id reconstructs everything a client missed.
type Store interface {
	// StoreEvent appends message to stream streamID, assigning it a
	// store-unique event id that sorts after every prior id on this stream.
	StoreEvent(ctx context.Context, streamID string, message []byte) (eventID uint64, err error)

	// ReplayEventsAfter resolves the stream owning lastEventID and invokes
	// send for every later event on that stream, in order. If lastEventID is
	// unknown, it returns an empty streamID and invokes send zero times.
	ReplayEventsAfter(ctx context.Context, lastEventID uint64, send func(message []byte) error) (streamID string, err error)

	// DeleteStream removes every event recorded for streamID, including its
	// event-id index entries. Deleting an unknown streamID is a no-op, not an
	// error, matching DeleteSession's own idempotent delete semantics.
	DeleteStream(ctx context.Context, streamID string) error
}
