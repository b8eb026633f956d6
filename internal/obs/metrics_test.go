package obs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncOrderPlaced()
	m.IncOrderCancelled()
	m.IncOrderRejected()
	m.IncOrderTimedOut()
	m.IncFillReconciled()
	m.IncQuoteSeen()
	m.IncEventIgnored()
	m.ObservePlace(time.Millisecond)
	m.ObserveCancel(time.Millisecond)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCountersConcurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.IncOrderPlaced()
				m.IncQuoteSeen()
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, uint64(8000), snap.OrdersPlaced)
	assert.Equal(t, uint64(8000), snap.QuotesSeen)
}

func TestLatencyStats(t *testing.T) {
	m := NewMetrics()
	m.ObservePlace(2 * time.Millisecond)
	m.ObservePlace(6 * time.Millisecond)
	m.ObservePlace(4 * time.Millisecond)
	m.ObservePlace(-time.Millisecond) // negative samples are dropped

	snap := m.Snapshot().PlaceLatency
	assert.Equal(t, uint64(3), snap.Count)
	assert.Equal(t, 2*time.Millisecond, snap.Min)
	assert.Equal(t, 6*time.Millisecond, snap.Max)
	assert.Equal(t, 4*time.Millisecond, snap.Avg)

	empty := m.Snapshot().CancelLatency
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.Min)
}
