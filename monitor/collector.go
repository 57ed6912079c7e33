package monitor

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 100

// SimpleMetricsCollector keeps per-operation counters and latency samples in
// memory. It satisfies jms.MetricsCollector.
type SimpleMetricsCollector struct {
	mu sync.RWMutex

	messages map[string]int64
	errors   map[string]map[string]int64
	timings  map[string]*timing
}

type timing struct {
	count   int64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	samples []time.Duration // ring of the last maxSamples
	next    int
}

// NewSimpleMetricsCollector creates an empty collector
func NewSimpleMetricsCollector() *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		messages: make(map[string]int64),
		errors:   make(map[string]map[string]int64),
		timings:  make(map[string]*timing),
	}
}

func (c *SimpleMetricsCollector) IncrementMessageCount(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[op]++
}

func (c *SimpleMetricsCollector) RecordProcessingTime(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timings[op]
	if !ok {
		t = &timing{min: d, max: d, samples: make([]time.Duration, 0, maxSamples)}
		c.timings[op] = t
	}
	t.count++
	t.total += d
	t.min = min(t.min, d)
	t.max = max(t.max, d)

	if len(t.samples) < maxSamples {
		t.samples = append(t.samples, d)
		return
	}
	t.samples[t.next] = d
	t.next = (t.next + 1) % maxSamples
}

func (c *SimpleMetricsCollector) IncrementErrorCount(op, errorType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errors[op] == nil {
		c.errors[op] = make(map[string]int64)
	}
	c.errors[op][errorType]++
}

// MetricsSummary is a snapshot of a SimpleMetricsCollector
type MetricsSummary struct {
	MessageCounts   map[string]int64            `json:"message_counts"`
	ErrorCounts     map[string]map[string]int64 `json:"error_counts"`
	ProcessingStats map[string]ProcessingStats  `json:"processing_stats"`
}

// ProcessingStats summarizes the latency of one operation. Percentiles
// cover the most recent samples only.
type ProcessingStats struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// Summary returns a snapshot of everything collected so far
func (c *SimpleMetricsCollector) Summary() MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := MetricsSummary{
		MessageCounts:   make(map[string]int64, len(c.messages)),
		ErrorCounts:     make(map[string]map[string]int64, len(c.errors)),
		ProcessingStats: make(map[string]ProcessingStats, len(c.timings)),
	}
	for op, n := range c.messages {
		s.MessageCounts[op] = n
	}
	for op, byType := range c.errors {
		s.ErrorCounts[op] = make(map[string]int64, len(byType))
		for errType, n := range byType {
			s.ErrorCounts[op][errType] = n
		}
	}
	for op, t := range c.timings {
		sorted := append([]time.Duration(nil), t.samples...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		s.ProcessingStats[op] = ProcessingStats{
			Count: t.count,
			Avg:   t.total / time.Duration(t.count),
			Min:   t.min,
			Max:   t.max,
			P50:   percentile(sorted, 0.50),
			P95:   percentile(sorted, 0.95),
			P99:   percentile(sorted, 0.99),
		}
	}
	return s
}

// Reset drops everything collected so far
func (c *SimpleMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make(map[string]int64)
	c.errors = make(map[string]map[string]int64)
	c.timings = make(map[string]*timing)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
