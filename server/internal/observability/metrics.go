package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates request counts and latencies per route.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	routeMetrics map[string]*RouteMetrics
}

// RouteMetrics represents metrics for one route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		routeMetrics: make(map[string]*RouteMetrics),
	}
}

// Record counts one finished request. Failures are responses with status >= 500.
func (m *Metrics) Record(route string, status int, duration time.Duration) {
	rm := m.route(route)
	m.requestTotal.Add(1)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if status >= 500 {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}
}

func (m *Metrics) route(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routeMetrics[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routeMetrics[route] = rm
	}
	return rm
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.routeMetrics = make(map[string]*RouteMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteMetricsSnapshot, len(m.routeMetrics))
	for route, rm := range m.routeMetrics {
		count := rm.requestCount.Load()
		snapshot := &RouteMetricsSnapshot{
			RequestCount:  count,
			TotalDuration: rm.totalDuration.Load(),
			ErrorCount:    rm.errorCount.Load(),
		}
		if count > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / count
		}
		routes[route] = snapshot
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Routes:        routes,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                            `json:"requestTotal"`
	RequestFailed int64                            `json:"requestFailed"`
	Routes        map[string]*RouteMetricsSnapshot `json:"routes"`
}

// RouteMetricsSnapshot represents metrics for one route.
type RouteMetricsSnapshot struct {
	RequestCount    int64 `json:"requestCount"`
	TotalDuration   int64 `json:"totalDurationMs"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
