package syncer

import (
	"testing"
	"time"
)

// Test checks the monitor worker lifecycle: stop, double stop and restart
// must not panic or leave a worker behind.
func Test_Monitor_StartStop(t *testing.T) {
	monitor.Start()
	monitor.ActionQueued()
	monitor.ReplayConfirmed()
	monitor.ReplayFailed()
	monitor.DrainCompleted(5 * time.Millisecond)
	monitor.Stop()
	monitor.Stop()

	monitor.Start()
	monitor.DrainCompleted(5 * time.Millisecond)
	monitor.Stop()
}
