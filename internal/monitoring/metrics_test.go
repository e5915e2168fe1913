package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetricsCollector(t *testing.T) {
	collector := &NoOpMetricsCollector{}
	tags := map[string]string{"field": "address"}

	collector.IncrementCounter(MetricDecryptFailures, tags)
	collector.RecordTiming(MetricOperationTiming, time.Millisecond, tags)
	assert.NoError(t, collector.Flush())
}

func TestInMemoryMetricsCollector_IncrementCounter(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	tags := map[string]string{"via": "hashed"}

	collector.IncrementCounter(MetricLookupHits, tags)
	collector.IncrementCounter(MetricLookupHits, tags)
	collector.IncrementCounter(MetricLookupHits, map[string]string{"via": "raw"})

	assert.Equal(t, int64(2), collector.GetCounter(MetricLookupHits, tags))
	assert.Equal(t, int64(1), collector.GetCounter(MetricLookupHits, map[string]string{"via": "raw"}))
	assert.Equal(t, int64(0), collector.GetCounter(MetricLookupHits, nil))
}

func TestInMemoryMetricsCollector_TagOrderIsIrrelevant(t *testing.T) {
	collector := NewInMemoryMetricsCollector()

	collector.IncrementCounter("c", map[string]string{"a": "1", "b": "2"})
	collector.IncrementCounter("c", map[string]string{"b": "2", "a": "1"})

	assert.Equal(t, int64(2), collector.GetCounter("c", map[string]string{"a": "1", "b": "2"}))
	assert.Equal(t, "c,a=1,b=2", keyWithTags("c", map[string]string{"b": "2", "a": "1"}))
}

func TestInMemoryMetricsCollector_RecordTiming(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	tags := map[string]string{"operation": "protect_for_write"}

	collector.RecordTiming(MetricOperationTiming, 10*time.Millisecond, tags)
	collector.RecordTiming(MetricOperationTiming, 20*time.Millisecond, tags)

	timings := collector.GetTimings(MetricOperationTiming, tags)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, timings)

	// returned slice is a copy
	timings[0] = 0
	assert.Equal(t, 10*time.Millisecond, collector.GetTimings(MetricOperationTiming, tags)[0])
}

func TestInMemoryMetricsCollector_Reset(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	collector.IncrementCounter("c", nil)
	collector.RecordTiming("t", time.Second, nil)

	collector.Reset()

	assert.Zero(t, collector.GetCounter("c", nil))
	assert.Empty(t, collector.GetTimings("t", nil))
}

func TestInMemoryMetricsCollector_Concurrent(t *testing.T) {
	collector := NewInMemoryMetricsCollector()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				collector.IncrementCounter("c", nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), collector.GetCounter("c", nil))
}
