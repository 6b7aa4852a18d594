package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no record exists for the given id.
var ErrNotFound = errors.New("session: record not found")

// EventStore is the minimal event-log capability a Store needs to satisfy
// spec.md §4.3's single logical deletion ("removes the record and its
// associated event stream"). It is satisfied structurally by
// fleet/event.Store (and any store sharing its DeleteStream method) without
// this package importing fleet/event, the same duck-typing
// transport/server/base.EventSink uses to avoid a reverse dependency.
type EventStore interface {
	DeleteStream(ctx context.Context, streamID string) error
}

// Store is the durable session registry of the data model (C3): a mapping
// session id -> session record, a health probe, and an advisory lock used
// only when a caller needs strict sequencing beyond the default
// last-writer-wins field-granular update.
type Store interface {
	// CreateSession upserts record by id.
	CreateSession(ctx context.Context, record *Record) error

	// GetSession returns the record for id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*Record, error)

	// UpdateSession performs a read-modify-write merging patch over the
	// stored record. It is a no-op returning nil if id is absent.
	UpdateSession(ctx context.Context, id string, patch map[string]any) (*Record, error)

	// DeleteSession removes the record (and, logically, its event stream) for id.
	DeleteSession(ctx context.Context, id string) error

	// AcquireLock returns true exactly once across the fleet within the ttl
	// window for key; false otherwise. Non-blocking.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ReleaseLock is a best-effort release of key.
	ReleaseLock(ctx context.Context, key string) error

	// IsHealthy reports whether the store can currently be reached.
	IsHealthy(ctx context.Context) bool
}
