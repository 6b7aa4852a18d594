package manager

import (
	"context"
	"time"

	"github.com/viant/mcpdb/fleet/cache"
	"github.com/viant/mcpdb/fleet/config"
	"github.com/viant/mcpdb/fleet/metrics"
	"github.com/viant/mcpdb/fleet/resilience"
	"github.com/viant/mcpdb/fleet/session"
)

// Manager composes the local cache (C2) and the session store (C3) behind
// resilience primitives (C1), exposing create/get/update/delete. It is the
// sole mutator of cache state: create/update/delete invalidate or refresh
// the entry, get is read-through.
type Manager struct {
	store   session.Store
	cache   *cache.Cache[*session.Record]
	breaker *resilience.CircuitBreaker
	retries int
	backoff []time.Duration
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithCache enables the local read-through cache.
func WithCache(c *cache.Cache[*session.Record]) Option {
	return func(m *Manager) { m.cache = c }
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *resilience.CircuitBreaker) Option {
	return func(m *Manager) { m.breaker = b }
}

// WithRetry overrides the retry attempt count and backoff sequence.
func WithRetry(attempts int, backoff []time.Duration) Option {
	return func(m *Manager) { m.retries = attempts; m.backoff = backoff }
}

// eventStoreSetter is satisfied by session.Store implementations that accept
// a companion event log for DeleteSession to clean up (fleet/session's
// MemoryStore and RedisStore). Stores that don't implement it simply never
// get the call.
type eventStoreSetter interface {
	SetEventStore(session.EventStore)
}

// WithEventStore attaches events to the Manager's store, if the store
// supports it, so DeleteSession also removes the session's event stream
// (spec.md §4.3's single logical deletion).
func WithEventStore(events session.EventStore) Option {
	return func(m *Manager) {
		if setter, ok := m.store.(eventStoreSetter); ok {
			setter.SetEventStore(events)
		}
	}
}

// New constructs a Manager over store, defaulting to 3 retries with
// [100,500,2000]ms backoff and a 5-failure/30s breaker, matching
// session_manager.py's defaults.
func New(store session.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		breaker: resilience.NewCircuitBreaker(5, 30*time.Second),
		retries: 3,
		backoff: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2000 * time.Millisecond},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// NewFromConfig constructs a Manager with its cache/retry/breaker sizing
// taken from cfg (fleet/config), threading SPEC_FULL.md §13's configuration
// surface into the component that actually uses it.
func NewFromConfig(store session.Store, cfg *config.Config, opts ...Option) *Manager {
	all := []Option{
		WithRetry(cfg.Resilience.RetryMaxAttempts, cfg.Resilience.RetryBackoff),
		WithBreaker(resilience.NewCircuitBreaker(cfg.Resilience.BreakerFailThreshold, cfg.Resilience.BreakerResetTimeout)),
	}
	if cfg.Cache.Enabled {
		all = append(all, WithCache(cache.New[*session.Record](cfg.Cache.MaxSize, cfg.Cache.TTL)))
	}
	all = append(all, opts...)
	return New(store, all...)
}

func (m *Manager) runWithResilience(ctx context.Context, opName string, op func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.StorageLatencySeconds.Observe(time.Since(start).Seconds(), map[string]string{"op": opName})
	}()
	if !m.breaker.Allow() {
		return resilience.ErrOpen
	}
	err := resilience.Retry(ctx, m.retries, m.backoff, op)
	if err != nil {
		m.breaker.Failure()
		return err
	}
	m.breaker.Success()
	return nil
}

// Create upserts record in the store and, if caching is enabled, primes the
// cache with it.
func (m *Manager) Create(ctx context.Context, record *session.Record) error {
	err := m.runWithResilience(ctx, "create", func(ctx context.Context) error {
		return m.store.CreateSession(ctx, record)
	})
	if err != nil {
		return err
	}
	metrics.SessionTotal.Inc(1, map[string]string{"status": string(record.Status)})
	if m.cache != nil {
		m.cache.Set(record.Id, record)
	}
	return nil
}

// Get returns the session record for id: cache hit short-circuits the
// store; a miss falls through to the store (under resilience) and, on
// success, populates the cache.
func (m *Manager) Get(ctx context.Context, id string) (*session.Record, error) {
	if m.cache != nil {
		if rec, ok := m.cache.Get(id); ok {
			metrics.CacheHitRatio.Inc(1, map[string]string{"result": "hit"})
			return rec, nil
		}
		metrics.CacheHitRatio.Inc(1, map[string]string{"result": "miss"})
	}

	var record *session.Record
	err := m.runWithResilience(ctx, "get", func(ctx context.Context) error {
		r, getErr := m.store.GetSession(ctx, id)
		if getErr == session.ErrNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		record = r
		return nil
	})
	if err != nil {
		if err == session.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if record != nil && m.cache != nil {
		m.cache.Set(id, record)
	}
	return record, nil
}

// Update merges patch into the stored record and refreshes the cache entry
// from the authoritative post-update value.
func (m *Manager) Update(ctx context.Context, id string, patch map[string]any) error {
	var updated *session.Record
	err := m.runWithResilience(ctx, "update", func(ctx context.Context) error {
		r, updateErr := m.store.UpdateSession(ctx, id, patch)
		if updateErr != nil {
			return updateErr
		}
		updated = r
		return nil
	})
	if err != nil {
		return err
	}
	if updated != nil {
		metrics.SessionTotal.Inc(1, map[string]string{"status": string(updated.Status)})
		if m.cache != nil {
			m.cache.Set(id, updated)
		}
	}
	return nil
}

// Delete removes the record from the store and invalidates the cache entry.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.runWithResilience(ctx, "delete", func(ctx context.Context) error {
		return m.store.DeleteSession(ctx, id)
	})
	if err != nil {
		return err
	}
	if m.cache != nil {
		m.cache.Delete(id)
	}
	return nil
}

// AppendEvent is a no-op: per-session event persistence is the
// responsibility of the engine's streaming transport via C4, not the
// session manager.
func (m *Manager) AppendEvent(context.Context) error {
	return nil
}

// Recover returns the current record for id, matching session_manager.py's
// recover: no event-folding happens at this layer, since the engine's
// streaming transport handles replay on reconnect.
func (m *Manager) Recover(ctx context.Context, id string) (*session.Record, error) {
	return m.Get(ctx, id)
}
