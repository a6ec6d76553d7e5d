package gateway

import (
	"log"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
)

var monitor *Monitor

// Monitor keeps Gateway stats.
type Monitor struct {
	sync.Mutex
	netReqDur        *movingaverage.MovingAverage
	netServed        int
	cacheHits        int
	offlineFallbacks int
	stopCh           chan struct{}
}

// NetworkServed updates the network-served counter and duration metric.
func (m *Monitor) NetworkServed(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.netServed++
	m.netReqDur.Add(float64(dur/time.Microsecond) / 1000.0)
}

// CacheHit increments the cache-fallback counter.
func (m *Monitor) CacheHit() {
	m.Lock()
	defer m.Unlock()

	m.cacheHits++
}

// OfflineFallback increments the synthetic offline response counter.
func (m *Monitor) OfflineFallback() {
	m.Lock()
	defer m.Unlock()

	m.offlineFallbacks++
}

// Start starts the Monitor worker.
func (m *Monitor) Start() {
	if m.stopCh != nil {
		return
	}

	m.stopCh = make(chan struct{})
	go m.worker(m.stopCh)
}

// Stop stops the Monitor worker.
func (m *Monitor) Stop() {
	if m.stopCh == nil {
		return
	}

	close(m.stopCh)
	m.stopCh = nil
}

// worker does the actual job.
// The stop channel is passed in: the field is re-assigned by Start/Stop and
// must not be re-read from another goroutine.
func (m *Monitor) worker(stopCh chan struct{}) {
	const period = 30 * time.Second

	tickCh := time.Tick(period)
	for {
		select {
		case <-stopCh:
			// Stop the monitor
			return
		case <-tickCh:
			// Print the report
			m.Lock()

			log.Printf("Gateway monitor:")
			log.Printf("  - Network served:        %d", m.netServed)
			log.Printf("  - Cache hits:            %d", m.cacheHits)
			log.Printf("  - Offline fallbacks:     %d", m.offlineFallbacks)
			log.Printf("  - Network req dur [ms]:  %.2f", m.netReqDur.Avg())
			m.netServed = 0
			m.cacheHits = 0
			m.offlineFallbacks = 0

			m.Unlock()
		}
	}
}

func init() {
	monitor = &Monitor{
		netReqDur: movingaverage.New(3),
	}
}
