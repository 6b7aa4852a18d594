package config

import "time"

// CacheConfig controls the local read-through cache (C2).
type CacheConfig struct {
	Enabled bool
	MaxSize int
	TTL     time.Duration
}

// SessionConfig controls session-record and event-buffer sizing (C3/C4).
type SessionConfig struct {
	TTL                 time.Duration
	MaxEventsPerSession int
	SnapshotInterval    int
}

// ResilienceConfig controls the breaker and retry wrapper (C1).
type ResilienceConfig struct {
	CircuitBreakerEnabled bool
	FallbackToMemory      bool
	RetryMaxAttempts      int
	RetryBackoff          []time.Duration
	BreakerFailThreshold  int
	BreakerResetTimeout   time.Duration
}

// StorageConfig selects and configures the shared session/event backend.
type StorageConfig struct {
	Type             string // "memory" | "redis"
	ConnectionString string
	KeyPrefix        string
	PerStreamCap     int
}

// Config is the top-level configuration surface, mirroring the external
// interfaces' enumerated configuration (spec.md §6).
type Config struct {
	Storage    StorageConfig
	Session    SessionConfig
	Cache      CacheConfig
	Resilience ResilienceConfig
}

// Option mutates a Config during construction.
type Option func(*Config)

// New builds a Config from defaults (Normalize) plus any options.
func New(opts ...Option) *Config {
	c := &Config{}
	c.Normalize()
	for _, o := range opts {
		o(c)
	}
	return c
}

// Normalize fills every zero-valued field with the spec's documented
// defaults: cache max size 1000 / TTL 60s, retry attempts 3, backoff
// [100,500,2000]ms, breaker threshold 5 / reset 30s.
func (c *Config) Normalize() {
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "mcpdb"
	}

	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Session.MaxEventsPerSession == 0 {
		c.Session.MaxEventsPerSession = 10000
	}
	if c.Session.SnapshotInterval == 0 {
		c.Session.SnapshotInterval = 100
	}

	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Second
	}

	if c.Resilience.RetryMaxAttempts == 0 {
		c.Resilience.RetryMaxAttempts = 3
	}
	if len(c.Resilience.RetryBackoff) == 0 {
		c.Resilience.RetryBackoff = []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
			2000 * time.Millisecond,
		}
	}
	if c.Resilience.BreakerFailThreshold == 0 {
		c.Resilience.BreakerFailThreshold = 5
	}
	if c.Resilience.BreakerResetTimeout == 0 {
		c.Resilience.BreakerResetTimeout = 30 * time.Second
	}
}

// WithStorage sets the storage backend configuration.
func WithStorage(s StorageConfig) Option { return func(c *Config) { c.Storage = s } }

// WithSession sets the session configuration.
func WithSession(s SessionConfig) Option { return func(c *Config) { c.Session = s } }

// WithCache sets the cache configuration.
func WithCache(cc CacheConfig) Option { return func(c *Config) { c.Cache = cc } }

// WithResilience sets the resilience configuration.
func WithResilience(r ResilienceConfig) Option { return func(c *Config) { c.Resilience = r } }
