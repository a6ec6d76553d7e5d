package connectivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test checks that subscribers get edges on transitions only.
func Test_Tracker_Edges(t *testing.T) {
	tracker := NewTracker(false)
	require.False(t, tracker.IsOnline())

	subId, edgeCh := tracker.Subscribe()
	defer tracker.Unsubscribe(subId)

	// repeated state: no edge
	tracker.SetOnline(false)
	select {
	case edge := <-edgeCh:
		t.Fatalf("unexpected edge: %s", edge.String())
	case <-time.After(50 * time.Millisecond):
	}

	// transition: one edge
	tracker.SetOnline(true)
	require.True(t, tracker.IsOnline())

	select {
	case edge := <-edgeCh:
		require.True(t, edge.Online)
	case <-time.After(time.Second):
		t.Fatal("online edge not received")
	}

	// transition back
	tracker.SetOnline(false)
	select {
	case edge := <-edgeCh:
		require.False(t, edge.Online)
	case <-time.After(time.Second):
		t.Fatal("offline edge not received")
	}
}

// Test checks that an unsubscribed listener stops receiving edges and that a
// full subscriber buffer never blocks the signal source.
func Test_Tracker_Unsubscribe(t *testing.T) {
	tracker := NewTracker(false)

	subId, edgeCh := tracker.Subscribe()
	tracker.Unsubscribe(subId)

	tracker.SetOnline(true)
	select {
	case edge := <-edgeCh:
		t.Fatalf("unexpected edge after unsubscribe: %s", edge.String())
	case <-time.After(50 * time.Millisecond):
	}

	// saturate a live subscriber's buffer: SetOnline must not block
	_, _ = tracker.Subscribe()
	for i := 0; i < 32; i++ {
		tracker.SetOnline(i%2 == 0)
	}
}
