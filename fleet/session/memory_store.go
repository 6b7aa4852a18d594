package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process reference implementation for tests and
// degraded-mode fallback: records in a map, locks in a plain non-expiring
// set (test-only; production usage needs the external store's native TTL
// lock per SPEC open question).
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	locks   map[string]time.Time
	events  EventStore
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]*Record{},
		locks:   map[string]time.Time{},
	}
}

// SetEventStore attaches the event log whose stream DeleteSession must also
// remove, keyed by session id. Optional: a nil or never-set events store
// leaves DeleteSession record-only, same as before this hook existed.
func (s *MemoryStore) SetEventStore(events EventStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

func (s *MemoryStore) CreateSession(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.records[record.Id] = record.Clone()
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, id string, patch map[string]any) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	if err := r.ApplyPartial(patch, time.Now()); err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// DeleteSession removes the record and, if an event store is attached, its
// associated event stream (keyed by session id) in the same logical delete,
// per spec.md §4.3.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	events := s.events
	s.mu.Unlock()
	if events != nil {
		return events.DeleteStream(ctx, id)
	}
	return nil
}

func (s *MemoryStore) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if until, held := s.locks[key]; held && now.Before(until) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

func (s *MemoryStore) IsHealthy(_ context.Context) bool {
	return true
}
