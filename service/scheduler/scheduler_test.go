package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/model"
	"github.com/itiky/offline-bridge/service/gateway"
	"github.com/itiky/offline-bridge/service/syncer"
	"github.com/itiky/offline-bridge/storage"
	"github.com/itiky/offline-bridge/transport"
)

func newTestScheduler(t *testing.T, online bool) (*Scheduler, *transport.MockTransport, *syncer.Syncer, *storage.MemStorage) {
	store := storage.NewMemStorage()
	network := transport.NewMockTransport()
	network.SetOffline(!online)
	tracker := connectivity.NewTracker(online)

	gw, err := gateway.NewGateway(store, network, tracker, "/api/", 24*time.Hour)
	require.NoError(t, err)

	sync, err := syncer.NewSyncer(store, network, tracker)
	require.NoError(t, err)

	s, err := NewScheduler(tracker, gw, sync, 30*time.Second, 5*time.Minute, []string{"/api/resources"})
	require.NoError(t, err)

	return s, network, sync, store
}

// Test checks the pending check is gated: offline does nothing, online with an
// empty queue does nothing, online with pending actions triggers a drain.
func Test_Scheduler_CheckPending(t *testing.T) {
	ctx := context.Background()

	// offline: the queue is left alone
	s, network, sync, _ := newTestScheduler(t, false)
	sync.Start()
	defer sync.Stop()

	_, err := sync.Enqueue(ctx, model.CreateOperationKind, "/api/resources", "POST", []byte(`{}`), nil)
	require.NoError(t, err)

	s.checkPending()
	time.Sleep(50 * time.Millisecond)

	count, err := sync.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 0, network.SentCount())

	// online with pending: the check triggers a drain
	s, network, sync, _ = newTestScheduler(t, true)
	sync.Start()
	defer sync.Stop()

	_, err = sync.Enqueue(ctx, model.CreateOperationKind, "/api/resources", "POST", []byte(`{}`), nil)
	require.NoError(t, err)

	s.checkPending()
	require.Eventually(t, func() bool {
		count, err := sync.PendingCount(ctx)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond, "pending check drains the queue")
	require.Equal(t, 1, network.SentCount())

	// online with an empty queue: nothing to send
	s.checkPending()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, network.SentCount())
}

// Test checks the warmup is gated: offline skips the pass, online refreshes
// the configured endpoints into the cache.
func Test_Scheduler_WarmCache(t *testing.T) {
	ctx := context.Background()

	// offline: no fetches at all
	s, network, _, _ := newTestScheduler(t, false)
	s.warmCache()
	require.Equal(t, 0, network.SentCount())

	// online: the endpoint payload lands in the API cache
	s, network, _, store := newTestScheduler(t, true)
	network.Responses[model.RequestKey("GET", "/api/resources")] = model.Response{
		Status: 200, Body: []byte(`[]`), ContentType: "application/json", Source: model.NetworkResponseSource,
	}

	s.warmCache()
	require.Equal(t, 1, network.SentCount())

	entry, err := store.GetCache(ctx, model.APICacheBucket, model.RequestKey("GET", "/api/resources"), 0)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(entry.Payload))
}
