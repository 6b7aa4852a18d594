package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	c := &Config{}
	c.Normalize()
	require.Equal(t, "memory", c.Storage.Type)
	require.Equal(t, 1000, c.Cache.MaxSize)
	require.Equal(t, 60*time.Second, c.Cache.TTL)
	require.Equal(t, 3, c.Resilience.RetryMaxAttempts)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2000 * time.Millisecond}, c.Resilience.RetryBackoff)
	require.Equal(t, 5, c.Resilience.BreakerFailThreshold)
	require.Equal(t, 30*time.Second, c.Resilience.BreakerResetTimeout)
}

func TestNormalizePreservesExplicitValues(t *testing.T) {
	c := &Config{Cache: CacheConfig{MaxSize: 42}}
	c.Normalize()
	require.Equal(t, 42, c.Cache.MaxSize)
}

func TestNewWithOptions(t *testing.T) {
	c := New(WithStorage(StorageConfig{Type: "redis", KeyPrefix: "p"}))
	require.Equal(t, "redis", c.Storage.Type)
	require.Equal(t, "p", c.Storage.KeyPrefix)
	require.Equal(t, 1000, c.Cache.MaxSize) // normalized default still applied
}
