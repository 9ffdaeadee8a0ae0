package libauth

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics block.
type MetricID uint8

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts successful rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts structurally rejected refreshes.
	MetricRefreshFailure
	// MetricRefreshSuperseded counts pointer-mismatch rejections, including
	// the losing side of a concurrent double refresh.
	MetricRefreshSuperseded
	// MetricRefreshRevoked counts refreshes rejected by the blacklist.
	MetricRefreshRevoked
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricValidateSuccess counts accepted access-token validations.
	MetricValidateSuccess
	// MetricValidateFailure counts rejected access-token validations.
	MetricValidateFailure
	// MetricStoreFailure counts revocation-store round trips that ended in
	// ErrStoreUnavailable.
	MetricStoreFailure

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds per-event atomic counters. When disabled, every operation
// is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics block per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Get reads one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
