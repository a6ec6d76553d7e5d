package syncer

import (
	"log"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
)

var monitor *Monitor

// Monitor keeps Syncer stats.
type Monitor struct {
	sync.Mutex
	drainDur        *movingaverage.MovingAverage
	queued          int
	replayConfirmed int
	replayFailed    int
	stopCh          chan struct{}
}

// ActionQueued increments the enqueued actions counter.
func (m *Monitor) ActionQueued() {
	m.Lock()
	defer m.Unlock()

	m.queued++
}

// ReplayConfirmed increments the confirmed replays counter.
func (m *Monitor) ReplayConfirmed() {
	m.Lock()
	defer m.Unlock()

	m.replayConfirmed++
}

// ReplayFailed increments the failed replays counter.
func (m *Monitor) ReplayFailed() {
	m.Lock()
	defer m.Unlock()

	m.replayFailed++
}

// DrainCompleted updates the drain pass duration metric.
func (m *Monitor) DrainCompleted(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.drainDur.Add(float64(dur/time.Microsecond) / 1000.0)
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

			log.Printf("Syncer monitor:")
			log.Printf("  - Actions queued:    %d", m.queued)
			log.Printf("  - Replays confirmed: %d", m.replayConfirmed)
			log.Printf("  - Replays failed:    %d", m.replayFailed)
			log.Printf("  - Drain dur [ms]:    %.2f", m.drainDur.Avg())
			m.queued = 0
			m.replayConfirmed = 0
			m.replayFailed = 0

			m.Unlock()
		}
	}
}

func init() {
	monitor = &Monitor{
		drainDur: movingaverage.New(3),
	}
}
