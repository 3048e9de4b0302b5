package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector aggregates in-process observability samples: additive counters
// keyed by name+tags, per-endpoint latency stats and error counts by type.
// State is non-durable and resets on process restart.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]float64
	latencies map[string]*latencyAgg
	errors    map[string]int64
	startedAt time.Time
}

// latencySampleWindow bounds the per-endpoint sample ring used for the p95
// estimate so memory stays constant under load.
const latencySampleWindow = 512

type latencyAgg struct {
	count      int64
	sumMs      float64
	statusErrs int64 // responses with status >= 500
	samples    []float64
	next       int
}

// LatencySample is one timed request.
type LatencySample struct {
	Endpoint   string
	Method     string
	Duration   time.Duration
	StatusCode int
	UserID     int64
}

// LatencyStats is the read-side aggregate for one endpoint.
type LatencyStats struct {
	Endpoint   string  `json:"endpoint"`
	Count      int64   `json:"count"`
	AvgMs      float64 `json:"avg_ms"`
	P95Ms      float64 `json:"p95_ms"`
	ServerErrs int64   `json:"server_errors"`
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]float64),
		latencies: make(map[string]*latencyAgg),
		errors:    make(map[string]int64),
		startedAt: time.Now(),
	}
}

// RecordMetric adds value to the counter identified by name and tags.
func (c *Collector) RecordMetric(name string, value float64, tags map[string]string) {
	key := metricKey(name, tags)

	c.mu.Lock()
	c.counters[key] += value
	c.mu.Unlock()
}

// MetricSum returns the accumulated value for name+tags, zero if never recorded.
func (c *Collector) MetricSum(name string, tags map[string]string) float64 {
	key := metricKey(name, tags)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[key]
}

// RecordLatency folds one request sample into the per-endpoint aggregate.
func (c *Collector) RecordLatency(s LatencySample) {
	ms := float64(s.Duration) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	agg, ok := c.latencies[s.Endpoint]
	if !ok {
		agg = &latencyAgg{}
		c.latencies[s.Endpoint] = agg
	}

	agg.count++
	agg.sumMs += ms
	if s.StatusCode >= 500 {
		agg.statusErrs++
	}

	if len(agg.samples) < latencySampleWindow {
		agg.samples = append(agg.samples, ms)
	} else {
		agg.samples[agg.next] = ms
		agg.next = (agg.next + 1) % latencySampleWindow
	}
}

// LatencyStats returns the aggregate for one endpoint, or nil when unseen.
func (c *Collector) LatencyStats(endpoint string) *LatencyStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	agg, ok := c.latencies[endpoint]
	if !ok {
		return nil
	}

	stats := &LatencyStats{
		Endpoint:   endpoint,
		Count:      agg.count,
		AvgMs:      agg.sumMs / float64(agg.count),
		ServerErrs: agg.statusErrs,
	}

	if len(agg.samples) > 0 {
		sorted := make([]float64, len(agg.samples))
		copy(sorted, agg.samples)
		sort.Float64s(sorted)
		idx := (len(sorted)*95 - 1) / 100
		if idx < 0 {
			idx = 0
		}
		stats.P95Ms = sorted[idx]
	}

	return stats
}

// RecordError counts an error occurrence by type.
func (c *Collector) RecordError(errType, message, endpoint string) {
	_ = message // retained in logs, not aggregated

	c.mu.Lock()
	c.errors[errType]++
	c.mu.Unlock()

	if endpoint != "" {
		c.RecordMetric("errors_by_endpoint", 1, map[string]string{"endpoint": endpoint})
	}
}

// ErrorCounts returns a copy of the per-type error counters.
func (c *Collector) ErrorCounts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int64, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// UsageStats is an operator-facing summary of process activity.
type UsageStats struct {
	UptimeSeconds  int64            `json:"uptime_seconds"`
	TotalRequests  int64            `json:"total_requests"`
	TotalErrors    int64            `json:"total_errors"`
	EndpointCounts map[string]int64 `json:"endpoint_counts"`
}

func (c *Collector) UsageStats() *UsageStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &UsageStats{
		UptimeSeconds:  int64(time.Since(c.startedAt).Seconds()),
		EndpointCounts: make(map[string]int64, len(c.latencies)),
	}
	for ep, agg := range c.latencies {
		stats.EndpointCounts[ep] = agg.count
		stats.TotalRequests += agg.count
	}
	for _, n := range c.errors {
		stats.TotalErrors += n
	}
	return stats
}

// Dashboard combines usage, latency and error aggregates into one payload.
type Dashboard struct {
	Usage     *UsageStats      `json:"usage"`
	Latencies []*LatencyStats  `json:"latencies"`
	Errors    map[string]int64 `json:"errors"`
}

func (c *Collector) MetricsDashboard() *Dashboard {
	c.mu.RLock()
	endpoints := make([]string, 0, len(c.latencies))
	for ep := range c.latencies {
		endpoints = append(endpoints, ep)
	}
	c.mu.RUnlock()

	sort.Strings(endpoints)

	dash := &Dashboard{
		Usage:     c.UsageStats(),
		Latencies: make([]*LatencyStats, 0, len(endpoints)),
		Errors:    c.ErrorCounts(),
	}
	for _, ep := range endpoints {
		if s := c.LatencyStats(ep); s != nil {
			dash.Latencies = append(dash.Latencies, s)
		}
	}
	return dash
}

// metricKey canonicalizes name+tags so tag ordering does not split counters.
func metricKey(name string, tags map[string]string) string {
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
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}
