package monitoring

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metric names emitted by idguard.
const (
	MetricDecryptFailures = "idguard.decrypt_failures"
	MetricEncryptFailures = "idguard.encrypt_failures"
	MetricModeFallbacks   = "idguard.mode_fallbacks"
	MetricLookupHits      = "idguard.lookup_hits"
	MetricLookupMisses    = "idguard.lookup_misses"
	MetricCryptoDegraded  = "idguard.crypto_degraded"
	MetricOperationTiming = "idguard.operation.duration"
)

// MetricsCollector defines the interface for collecting and reporting metrics
type MetricsCollector interface {
	IncrementCounter(name string, tags map[string]string)
	RecordTiming(name string, duration time.Duration, tags map[string]string)
	Flush() error
}

// NoOpMetricsCollector is a no-op implementation of MetricsCollector
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) IncrementCounter(name string, tags map[string]string) {}
func (n *NoOpMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
}
func (n *NoOpMetricsCollector) Flush() error { return nil }

// InMemoryMetricsCollector is an in-memory implementation for testing
type InMemoryMetricsCollector struct {
	mu       sync.RWMutex
	counters map[string]*int64
	timings  map[string][]time.Duration
}

// NewInMemoryMetricsCollector creates a new in-memory metrics collector
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		counters: make(map[string]*int64),
		timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetricsCollector) IncrementCounter(name string, tags map[string]string) {
	key := keyWithTags(name, tags)
	m.mu.Lock()
	counter, exists := m.counters[key]
	if !exists {
		counter = new(int64)
		m.counters[key] = counter
	}
	m.mu.Unlock()
	atomic.AddInt64(counter, 1)
}

func (m *InMemoryMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	key := keyWithTags(name, tags)
	m.mu.Lock()
	m.timings[key] = append(m.timings[key], duration)
	m.mu.Unlock()
}

func (m *InMemoryMetricsCollector) Flush() error {
	return nil
}

// GetCounter returns the value of a counter
func (m *InMemoryMetricsCollector) GetCounter(name string, tags map[string]string) int64 {
	key := keyWithTags(name, tags)
	m.mu.RLock()
	counter, exists := m.counters[key]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(counter)
}

// GetTimings returns all recorded timings
func (m *InMemoryMetricsCollector) GetTimings(name string, tags map[string]string) []time.Duration {
	key := keyWithTags(name, tags)
	m.mu.RLock()
	timings := make([]time.Duration, len(m.timings[key]))
	copy(timings, m.timings[key])
	m.mu.RUnlock()
	return timings
}

// Reset clears all metrics
func (m *InMemoryMetricsCollector) Reset() {
	m.mu.Lock()
	m.counters = make(map[string]*int64)
	m.timings = make(map[string][]time.Duration)
	m.mu.Unlock()
}

// keyWithTags sorts tags so the same tag set always yields the same key.
func keyWithTags(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(",")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(tags[k])
	}
	return b.String()
}
