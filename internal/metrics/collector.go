// Package metrics collects counters, gauges, and per-operation timers for
// the catalog core. Snapshot maps serve in-process consumers (the display
// layer reads them directly); every sample is also mirrored into a private
// Prometheus registry so an embedding process can scrape the same numbers.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// OperationStats is the snapshot of one named operation timer.
type OperationStats struct {
	Count   int64
	Total   time.Duration
	Average time.Duration
}

// Collector accumulates counters, gauges, and operation timings. All methods
// are safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
	totals   map[string]time.Duration
	opCounts map[string]int64

	registry      *prometheus.Registry
	promCounters  *prometheus.CounterVec
	promGauges    *prometheus.GaugeVec
	promDurations *prometheus.HistogramVec
}

// NewCollector creates an empty collector with its own Prometheus registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		counters: make(map[string]int64),
		gauges:   make(map[string]int64),
		totals:   make(map[string]time.Duration),
		opCounts: make(map[string]int64),
		registry: registry,
		promCounters: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total occurrences of named catalog events.",
		}, []string{"name"}),
		promGauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current value of named catalog gauges.",
		}, []string{"name"}),
		promDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of named catalog operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Increment bumps the named counter by one.
func (c *Collector) Increment(name string) {
	c.mu.Lock()
	c.counters[name]++
	c.mu.Unlock()

	c.promCounters.WithLabelValues(name).Inc()
}

// Counter returns the current value of the named counter.
func (c *Collector) Counter(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// SetGauge records the current value of a named gauge.
func (c *Collector) SetGauge(name string, value int64) {
	c.mu.Lock()
	c.gauges[name] = value
	c.mu.Unlock()

	c.promGauges.WithLabelValues(name).Set(float64(value))
}

// Gauge returns the current value of the named gauge.
func (c *Collector) Gauge(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gauges[name]
}

// StartTimer begins timing the named operation and returns the stop
// function. The stop function records the sample exactly once and is safe to
// call from a defer, so failure paths are measured too.
func (c *Collector) StartTimer(operation string) func() time.Duration {
	start := time.Now()
	var once sync.Once
	var elapsed time.Duration

	return func() time.Duration {
		once.Do(func() {
			elapsed = time.Since(start)

			c.mu.Lock()
			c.totals[operation] += elapsed
			c.opCounts[operation]++
			c.mu.Unlock()

			c.promDurations.WithLabelValues(operation).Observe(elapsed.Seconds())
		})
		return elapsed
	}
}

// OperationStats returns the snapshot for one operation name.
func (c *Collector) OperationStats(operation string) OperationStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked(operation)
}

// Counters returns a copy of all counters.
func (c *Collector) Counters() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.counters)
}

// Gauges returns a copy of all gauges.
func (c *Collector) Gauges() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.gauges)
}

// Operations returns a snapshot of all operation timers.
func (c *Collector) Operations() map[string]OperationStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]OperationStats, len(c.opCounts))
	for name := range c.opCounts {
		out[name] = c.statsLocked(name)
	}
	return out
}

// Registry exposes the Prometheus registry holding the mirrored metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) statsLocked(operation string) OperationStats {
	count := c.opCounts[operation]
	total := c.totals[operation]
	stats := OperationStats{Count: count, Total: total}
	if count > 0 {
		stats.Average = total / time.Duration(count)
	}
	return stats
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
