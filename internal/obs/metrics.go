package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for one engine
// instance. All methods are nil-safe so wiring metrics stays optional.
type Metrics struct {
	ordersPlaced    uint64
	ordersCancelled uint64
	ordersRejected  uint64
	ordersTimedOut  uint64
	fillsReconciled uint64
	quotesSeen      uint64
	eventsIgnored   uint64

	placeLatency  LatencyStats
	cancelLatency LatencyStats
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
	OrdersPlaced    uint64
	OrdersCancelled uint64
	OrdersRejected  uint64
	OrdersTimedOut  uint64
	FillsReconciled uint64
	QuotesSeen      uint64
	EventsIgnored   uint64
	PlaceLatency    LatencySnapshot
	CancelLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncOrderPlaced records an accepted place round trip.
func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncOrderCancelled records a completed cancel round trip.
func (m *Metrics) IncOrderCancelled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersCancelled, 1)
}

// IncOrderRejected records an order denied locally or by the gateway.
func (m *Metrics) IncOrderRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncOrderTimedOut records a deferred auto-cancel firing.
func (m *Metrics) IncOrderTimedOut() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersTimedOut, 1)
}

// IncFillReconciled records one closing report folded into state.
func (m *Metrics) IncFillReconciled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fillsReconciled, 1)
}

// IncQuoteSeen records one quote appended to history.
func (m *Metrics) IncQuoteSeen() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.quotesSeen, 1)
}

// IncEventIgnored records an execution event for an untracked order.
func (m *Metrics) IncEventIgnored() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventsIgnored, 1)
}

// ObservePlace measures a place round trip.
func (m *Metrics) ObservePlace(d time.Duration) {
	if m == nil {
		return
	}
	m.placeLatency.Observe(d)
}

// ObserveCancel measures a cancel round trip.
func (m *Metrics) ObserveCancel(d time.Duration) {
	if m == nil {
		return
	}
	m.cancelLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		OrdersPlaced:    atomic.LoadUint64(&m.ordersPlaced),
		OrdersCancelled: atomic.LoadUint64(&m.ordersCancelled),
		OrdersRejected:  atomic.LoadUint64(&m.ordersRejected),
		OrdersTimedOut:  atomic.LoadUint64(&m.ordersTimedOut),
		FillsReconciled: atomic.LoadUint64(&m.fillsReconciled),
		QuotesSeen:      atomic.LoadUint64(&m.quotesSeen),
		EventsIgnored:   atomic.LoadUint64(&m.eventsIgnored),
		PlaceLatency:    m.placeLatency.Snapshot(),
		CancelLatency:   m.cancelLatency.Snapshot(),
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
