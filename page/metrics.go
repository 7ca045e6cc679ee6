package page

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks page-file activity for operational visibility. It is
// optional: a nil *Metrics is valid everywhere it is accepted and simply
// disables instrumentation.
type Metrics struct {
	pagesAllocated prometheus.Counter
	pageHits       prometheus.Counter
	syncs          prometheus.Counter

	mu          sync.Mutex
	syncLatency *hdrhistogram.Histogram
}

// NewMetrics builds a Metrics instance and registers its counters with reg.
// namespace/subsystem follow the usual Prometheus convention, e.g.
// ("prinbee", "pagefile").
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	m := &Metrics{
		pagesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pages_allocated_total",
			Help:      "Number of pages appended to the page file.",
		}),
		pageHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "page_gets_total",
			Help:      "Number of successful GetPage calls.",
		}),
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "syncs_total",
			Help:      "Number of page syncs issued (immediate or async).",
		}),
		syncLatency: hdrhistogram.New(1, int64(10*time.Second/time.Microsecond), 3),
	}
	reg.MustRegister(m.pagesAllocated, m.pageHits, m.syncs)
	return m
}

// ObserveSyncLatency records how long an immediate sync took, in
// microseconds, into the latency histogram. It is safe for concurrent use.
func (m *Metrics) ObserveSyncLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.syncLatency.RecordValue(int64(d / time.Microsecond))
}

// SyncLatencyQuantile returns the estimated q-th percentile (0..100) sync
// latency observed so far, in microseconds.
func (m *Metrics) SyncLatencyQuantile(q float64) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncLatency.ValueAtQuantile(q)
}
