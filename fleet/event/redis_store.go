package event

import (
	"context"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore is the Redis Streams-backed implementation of Store: events
// live in "<prefix>:events:<stream_id>" (XADD/XRANGE), and a hash
// "<prefix>:event_index" maps event_id -> stream_id, per the persisted state
// layout. The global event_id counter is a single INCR key, giving the
// cross-stream uniqueness and monotonicity the data model requires.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	cap    int64 // 0 = unbounded
}

// NewRedisStore constructs a RedisStore. capacity, if positive, is passed to
// XADD as an approximate MAXLEN trim (oldest-first eviction).
func NewRedisStore(rdb *redis.Client, prefix string, capacity int64) *RedisStore {
	if prefix == "" {
		prefix = "mcpdb"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, cap: capacity}
}

func (s *RedisStore) streamKey(streamID string) string { return s.prefix + ":events:" + streamID }
func (s *RedisStore) indexKey() string                 { return s.prefix + ":event_index" }
func (s *RedisStore) counterKey() string               { return s.prefix + ":event_seq" }

func (s *RedisStore) StoreEvent(ctx context.Context, streamID string, message []byte) (uint64, error) {
	id, err := s.rdb.Incr(ctx, s.counterKey()).Result()
	if err != nil {
		return 0, err
	}
	eventID := uint64(id)
	values := map[string]any{
		"event_id": eventID,
		"message":  message,
	}
	add := &redis.XAddArgs{Stream: s.streamKey(streamID), Values: values}
	if s.cap > 0 {
		add.MaxLen = s.cap
		add.Approx = true
	}
	pipe := s.rdb.TxPipeline()
	pipe.XAdd(ctx, add)
	pipe.HSet(ctx, s.indexKey(), strconv.FormatUint(eventID, 10), streamID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return eventID, nil
}

// DeleteStream removes streamID's Redis Stream key and prunes its entries
// from the shared event_id -> stream_id index, mirroring the XRange scan
// ReplayEventsAfter already does to locate a stream's event ids.
func (s *RedisStore) DeleteStream(ctx context.Context, streamID string) error {
	entries, err := s.rdb.XRange(ctx, s.streamKey(streamID), "-", "+").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, entry := range entries {
		if idStr, ok := entry.Values["event_id"].(string); ok {
			pipe.HDel(ctx, s.indexKey(), idStr)
		}
	}
	pipe.Del(ctx, s.streamKey(streamID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ReplayEventsAfter(ctx context.Context, lastEventID uint64, send func([]byte) error) (string, error) {
	streamID, err := s.rdb.HGet(ctx, s.indexKey(), strconv.FormatUint(lastEventID, 10)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}

	entries, err := s.rdb.XRange(ctx, s.streamKey(streamID), "-", "+").Result()
	if err != nil {
		return streamID, err
	}
	for _, entry := range entries {
		idStr, _ := entry.Values["event_id"].(string)
		eid, convErr := strconv.ParseUint(idStr, 10, 64)
		if convErr != nil || eid <= lastEventID {
			continue
		}
		message, _ := entry.Values["message"].(string)
		if err := send([]byte(message)); err != nil {
			return streamID, err
		}
	}
	return streamID, nil
}
