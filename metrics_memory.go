package mqttv3

import (
	"sync"
	"sync/atomic"
)

// MemoryMetrics is an in-memory implementation of Metrics, suitable for
// tests and for embedding programs that scrape values themselves.
type MemoryMetrics struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	gauges   map[string]*memoryGauge
}

// NewMemoryMetrics creates a new in-memory metrics instance.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		counters: make(map[string]*memoryCounter),
		gauges:   make(map[string]*memoryGauge),
	}
}

// Counter returns the named counter metric.
func (m *MemoryMetrics) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}

	c := &memoryCounter{}
	m.counters[name] = c
	return c
}

// Gauge returns the named gauge metric.
func (m *MemoryMetrics) Gauge(name string) Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g
	}

	g := &memoryGauge{}
	m.gauges[name] = g
	return g
}

// CounterValue returns the current value of the named counter.
func (m *MemoryMetrics) CounterValue(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c.value.Load()
	}
	return 0
}

// GaugeValue returns the current value of the named gauge.
func (m *MemoryMetrics) GaugeValue(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g.value.Load()
	}
	return 0
}

type memoryCounter struct {
	value atomic.Uint64
}

func (c *memoryCounter) Inc() { c.value.Add(1) }

func (c *memoryCounter) Add(v uint64) { c.value.Add(v) }

type memoryGauge struct {
	value atomic.Int64
}

func (g *memoryGauge) Set(v int64) { g.value.Store(v) }

func (g *memoryGauge) Inc() { g.value.Add(1) }

func (g *memoryGauge) Dec() { g.value.Add(-1) }
