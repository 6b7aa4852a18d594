package session

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore is the durable, fleet-shared session registry backed by Redis.
// Keys follow "<prefix>:session:<id>" for records and "<prefix>:lock:<key>"
// for advisory locks, per the persisted state layout.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	events EventStore
}

// NewRedisStore constructs a RedisStore. ttl, if positive, is applied to
// every session record key (idle expiry); zero means no expiry.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "mcpdb"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// SetEventStore attaches the event log whose stream DeleteSession must also
// remove, keyed by session id.
func (s *RedisStore) SetEventStore(events EventStore) {
	s.events = events
}

func (s *RedisStore) sessionKey(id string) string { return s.prefix + ":session:" + id }
func (s *RedisStore) lockKey(key string) string   { return s.prefix + ":lock:" + key }

func (s *RedisStore) CreateSession(ctx context.Context, record *Record) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.sessionKey(record.Id), data, s.ttl).Err()
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r := &Record{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RedisStore) UpdateSession(ctx context.Context, id string, patch map[string]any) (*Record, error) {
	r, err := s.GetSession(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if err := r.ApplyPartial(patch, time.Now()); err != nil {
		return nil, err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, s.sessionKey(id), data, s.ttl).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteSession removes the record and, if an event store is attached, its
// associated event stream (keyed by session id) in the same logical delete,
// per spec.md §4.3.
func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return err
	}
	if s.events != nil {
		return s.events.DeleteStream(ctx, id)
	}
	return nil
}

func (s *RedisStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.lockKey(key), "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.lockKey(key)).Err()
}

func (s *RedisStore) IsHealthy(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}
