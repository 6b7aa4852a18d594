package metrics

import (
	"sort"
	"strings"
	"sync"
)

// labelKey renders a label set as a stable, comparable map key.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

// Counter is a monotonic counter partitioned by label set, matching
// monitoring/metrics.py's Counter. No exporter is wired (see DESIGN.md) — it
// exists so fleet/manager and fleet/wrapper have somewhere to record
// session-count-by-status, cache hit ratio and event-store growth.
type Counter struct {
	Name string
	Help string

	mu     sync.Mutex
	values map[string]float64
}

// NewCounter constructs an empty Counter.
func NewCounter(name, help string) *Counter {
	return &Counter{Name: name, Help: help, values: map[string]float64{}}
}

// Inc adds value (default 1 when value is 0) under the given labels.
func (c *Counter) Inc(value float64, labels map[string]string) {
	if value == 0 {
		value = 1
	}
	key := labelKey(labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += value
}

// Value returns the current total for the given labels.
func (c *Counter) Value(labels map[string]string) float64 {
	key := labelKey(labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// Histogram buckets observations by upper bound, matching
// monitoring/metrics.py's Histogram (first bucket with val <= bound wins).
type Histogram struct {
	Name    string
	Help    string
	Buckets []float64

	mu     sync.Mutex
	counts map[string][]int
}

// NewHistogram constructs an empty Histogram with the given bucket bounds.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	return &Histogram{Name: name, Help: help, Buckets: buckets, counts: map[string][]int{}}
}

// Observe records val under the given labels, incrementing the first bucket
// whose bound is >= val.
func (h *Histogram) Observe(val float64, labels map[string]string) {
	key := labelKey(labels)
	h.mu.Lock()
	defer h.mu.Unlock()
	row, ok := h.counts[key]
	if !ok {
		row = make([]int, len(h.Buckets))
		h.counts[key] = row
	}
	for i, bound := range h.Buckets {
		if val <= bound {
			row[i]++
			break
		}
	}
}

// Counts returns a copy of the bucket counts for the given labels.
func (h *Histogram) Counts(labels map[string]string) []int {
	key := labelKey(labels)
	h.mu.Lock()
	defer h.mu.Unlock()
	row := h.counts[key]
	return append([]int(nil), row...)
}

// Predefined metrics, mirroring monitoring/metrics.py's module-level instances.
var (
	SessionTotal = NewCounter("mcp_session_total", "Total sessions by status")
	StorageLatencySeconds = NewHistogram(
		"mcp_storage_latency_seconds", "Storage operation latency",
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	)
	CacheHitRatio       = NewCounter("mcp_cache_hit_ratio", "Cache hits vs misses")
	EventStoreSizeBytes = NewCounter("mcp_event_store_size_bytes", "Event store growth (approx)")
	WrapperOverheadSeconds = NewHistogram(
		"mcp_wrapper_overhead_seconds", "Wrapper processing overhead",
		[]float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02},
	)
)
