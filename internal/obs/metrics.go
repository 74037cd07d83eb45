package obs

import (
	"sync/atomic"
	"time"

	"main/internal/model/enum"
)

const maxOp = int(enum.OpCancel)

// Metrics collects lightweight counters and latency stats for the
// simulation loop.
type Metrics struct {
	opCounts       [maxOp + 1]uint64
	tradesExecuted uint64
	externalOrders uint64
	publishDrops   uint64

	applyLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	OpCounts       map[enum.Op]uint64
	TradesExecuted uint64
	ExternalOrders uint64
	PublishDrops   uint64
	ApplyLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveOp counts an applied operation and the trades it produced.
func (m *Metrics) ObserveOp(op enum.Op, trades int) {
	if m == nil {
		return
	}
	idx := int(op)
	if idx >= 0 && idx < len(m.opCounts) {
		atomic.AddUint64(&m.opCounts[idx], 1)
	}
	if trades > 0 {
		atomic.AddUint64(&m.tradesExecuted, uint64(trades))
	}
}

// IncExternalOrder counts an order injected from outside the scheduler.
func (m *Metrics) IncExternalOrder() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.externalOrders, 1)
}

// IncPublishDrop records a snapshot dropped by a slow subscriber.
func (m *Metrics) IncPublishDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.publishDrops, 1)
}

// ObserveApply measures the latency of one engine operation.
func (m *Metrics) ObserveApply(d time.Duration) {
	if m == nil {
		return
	}
	m.applyLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	opCounts := make(map[enum.Op]uint64)
	for i := range m.opCounts {
		if v := atomic.LoadUint64(&m.opCounts[i]); v > 0 {
			opCounts[enum.Op(i)] = v
		}
	}
	return Snapshot{
		OpCounts:       opCounts,
		TradesExecuted: atomic.LoadUint64(&m.tradesExecuted),
		ExternalOrders: atomic.LoadUint64(&m.externalOrders),
		PublishDrops:   atomic.LoadUint64(&m.publishDrops),
		ApplyLatency:   m.applyLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
