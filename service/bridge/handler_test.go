package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestBridge(t *testing.T, online bool) (*Bridge, *transport.MockTransport, *syncer.Syncer, *connectivity.Tracker) {
	store := storage.NewMemStorage()
	network := transport.NewMockTransport()
	network.SetOffline(!online)
	tracker := connectivity.NewTracker(online)

	gw, err := gateway.NewGateway(store, network, tracker, "/api/", 24*time.Hour)
	require.NoError(t, err)

	sync, err := syncer.NewSyncer(store, network, tracker)
	require.NoError(t, err)

	b, err := NewBridge(gw, sync, tracker)
	require.NoError(t, err)

	return b, network, sync, tracker
}

// Test checks the status endpoint payload.
func Test_Bridge_Status(t *testing.T) {
	b, _, sync, _ := newTestBridge(t, false)

	_, err := sync.Enqueue(context.Background(), model.CreateOperationKind, "/api/resources", "POST", []byte(`{}`), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("GET", StatusPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	status := statusPayload{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.False(t, status.Online)
	require.Equal(t, 1, status.Pending)
}

// Test checks the proxied read path: network success and offline fallback.
func Test_Bridge_ProxyRead(t *testing.T) {
	b, network, _, _ := newTestBridge(t, true)

	network.Responses[model.RequestKey("GET", "/api/resources")] = model.Response{
		Status: 200, Body: []byte(`[{"id":1}]`), ContentType: "application/json", Source: model.NetworkResponseSource,
	}

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("GET", "/api/resources", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `[{"id":1}]`, rec.Body.String())
	require.Equal(t, string(model.NetworkResponseSource), rec.Header().Get(SourceHeader))

	// offline: cached copy with the source marker
	network.SetOffline(true)
	rec = httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("GET", "/api/resources", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `[{"id":1}]`, rec.Body.String())
	require.Equal(t, string(model.CacheResponseSource), rec.Header().Get(SourceHeader))
}

// Test checks the offline write path: the mutation is queued and acknowledged
// with 202, then replayed on a sync trigger once online.
func Test_Bridge_OfflineWriteQueued(t *testing.T) {
	b, network, sync, _ := newTestBridge(t, false)

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest("POST", "/api/resources", bytes.NewReader([]byte(`{"title":"X"}`)))
	httpReq.Header.Set("Content-Type", "application/json")
	b.ServeHTTP(rec, httpReq)

	require.Equal(t, http.StatusAccepted, rec.Code)

	queued := queuedPayload{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queued))
	require.True(t, queued.Queued)
	require.NotEmpty(t, queued.Id)

	count, err := sync.PendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// back online: the queued mutation replays with its captured body and headers
	network.SetOffline(false)
	report, err := sync.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Confirmed)

	require.Len(t, network.Sent, 1)
	require.Equal(t, "/api/resources", network.Sent[0].URL)
	require.Equal(t, `{"title":"X"}`, string(network.Sent[0].Body))
	require.Equal(t, "application/json", network.Sent[0].Headers["Content-Type"])
}

// Test checks that a failed mutation outside the API prefix is rejected with
// 502 instead of being queued for replay.
func Test_Bridge_NonAPIWriteNotQueued(t *testing.T) {
	b, _, sync, _ := newTestBridge(t, false)

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(`{"event":"ping"}`))))

	require.Equal(t, http.StatusBadGateway, rec.Code)

	count, err := sync.PendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count, "non-API mutation must not enter the queue")
}

// Test checks the online write path: the upstream response passes through.
func Test_Bridge_OnlineWritePassthrough(t *testing.T) {
	b, network, sync, _ := newTestBridge(t, true)

	network.Responses[model.RequestKey("POST", "/api/goals")] = model.Response{
		Status: 201, Body: []byte(`{"id":3}`), ContentType: "application/json", Source: model.NetworkResponseSource,
	}

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("POST", "/api/goals", bytes.NewReader([]byte(`{}`))))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, `{"id":3}`, rec.Body.String())

	count, err := sync.PendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count, "nothing queued on success")
}
