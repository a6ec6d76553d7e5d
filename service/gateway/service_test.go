package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/model"
	"github.com/itiky/offline-bridge/storage"
	"github.com/itiky/offline-bridge/transport"
)

func newTestGateway(t *testing.T) (*Gateway, *transport.MockTransport, *storage.MemStorage, *connectivity.Tracker) {
	store := storage.NewMemStorage()
	network := transport.NewMockTransport()
	tracker := connectivity.NewTracker(true)

	gw, err := NewGateway(store, network, tracker, "/api/", 24*time.Hour)
	require.NoError(t, err)

	return gw, network, store, tracker
}

func mustRequest(t *testing.T, method, url string, body []byte) model.Request {
	req, err := model.NewRequest(method, url, nil, body)
	require.NoError(t, err)

	return req
}

// Test checks the network-first read path: the latest successful payload wins
// and an offline read returns exactly that payload.
func Test_Gateway_ReadCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	gw, network, _, _ := newTestGateway(t)

	req := mustRequest(t, "GET", "/api/resources", nil)

	network.Responses[req.Key()] = model.Response{Status: 200, Body: []byte(`{"v":1}`), ContentType: "application/json", Source: model.NetworkResponseSource}
	res, err := gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, `{"v":1}`, string(res.Body))
	require.Equal(t, model.NetworkResponseSource, res.Source)

	network.Responses[req.Key()] = model.Response{Status: 200, Body: []byte(`{"v":2}`), ContentType: "application/json", Source: model.NetworkResponseSource}
	_, err = gw.Handle(ctx, req)
	require.NoError(t, err)

	// go offline: the cached fallback is the second payload, never the first
	network.SetOffline(true)
	res, err = gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, model.CacheResponseSource, res.Source)
	require.Equal(t, `{"v":2}`, string(res.Body))
}

// Test checks the never-been-online read path: a synthetic success-shaped
// offline payload instead of a transport error.
func Test_Gateway_ReadOfflineFallback(t *testing.T) {
	ctx := context.Background()
	gw, network, _, _ := newTestGateway(t)

	network.SetOffline(true)

	res, err := gw.Handle(ctx, mustRequest(t, "GET", "/api/goals", nil))
	require.NoError(t, err)
	require.Equal(t, 200, res.Status)
	require.Equal(t, model.OfflineResponseSource, res.Source)

	payload := model.OfflinePayload{}
	require.NoError(t, json.Unmarshal(res.Body, &payload))
	require.Equal(t, "offline", payload.Error)
}

// Test checks that an HTTP error status on a read is returned as-is and not cached.
func Test_Gateway_ReadErrorStatusNotCached(t *testing.T) {
	ctx := context.Background()
	gw, network, store, _ := newTestGateway(t)

	req := mustRequest(t, "GET", "/api/activity", nil)
	network.Responses[req.Key()] = model.Response{Status: 500, Body: []byte(`boom`), Source: model.NetworkResponseSource}

	res, err := gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 500, res.Status)

	_, err = store.GetCache(ctx, model.APICacheBucket, req.Key(), 0)
	require.Equal(t, storage.ErrNotFound, err)
}

// Test checks the write path: server responses pass through unmodified,
// transport failures surface to the caller.
func Test_Gateway_WritePassthrough(t *testing.T) {
	ctx := context.Background()
	gw, network, store, _ := newTestGateway(t)

	req := mustRequest(t, "POST", "/api/resources", []byte(`{"title":"X"}`))
	network.Responses[req.Key()] = model.Response{Status: 201, Body: []byte(`{"id":7}`), Source: model.NetworkResponseSource}

	res, err := gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 201, res.Status)
	require.Equal(t, `{"id":7}`, string(res.Body))

	// writes are never cached
	_, err = store.GetCache(ctx, model.APICacheBucket, req.Key(), 0)
	require.Equal(t, storage.ErrNotFound, err)

	// transport failure surfaces
	network.SetOffline(true)
	_, err = gw.Handle(ctx, req)
	require.Error(t, err)
}

// Test checks the cache-first static policy: the second request is served
// without a network call.
func Test_Gateway_StaticCacheFirst(t *testing.T) {
	ctx := context.Background()
	gw, network, _, _ := newTestGateway(t)

	req := mustRequest(t, "GET", "/index.html", nil)
	network.Responses[req.Key()] = model.Response{Status: 200, Body: []byte(`<html/>`), ContentType: "text/html", Source: model.NetworkResponseSource}

	res, err := gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, model.NetworkResponseSource, res.Source)
	require.Equal(t, 1, network.SentCount())

	res, err = gw.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, model.CacheResponseSource, res.Source)
	require.Equal(t, `<html/>`, string(res.Body))
	require.Equal(t, 1, network.SentCount(), "no second network call")
}

// Test checks the warmup pass: configured endpoints are fetched and cached,
// failures are counted, offline skips the pass entirely.
func Test_Gateway_Warm(t *testing.T) {
	ctx := context.Background()
	gw, network, store, tracker := newTestGateway(t)

	endpoints := []string{"/api/resources", "/api/stats", "/api/broken"}
	network.Responses[model.RequestKey("GET", "/api/resources")] = model.Response{Status: 200, Body: []byte(`[]`), ContentType: "application/json", Source: model.NetworkResponseSource}
	network.Responses[model.RequestKey("GET", "/api/stats")] = model.Response{Status: 200, Body: []byte(`{}`), ContentType: "application/json", Source: model.NetworkResponseSource}
	network.FailKeys[model.RequestKey("GET", "/api/broken")] = true

	report := gw.Warm(ctx, endpoints)
	require.Equal(t, 2, report.Refreshed)
	require.Equal(t, 1, report.Failed)

	_, err := store.GetCache(ctx, model.APICacheBucket, model.RequestKey("GET", "/api/resources"), 0)
	require.NoError(t, err)

	// offline: no fetches at all
	sentBefore := network.SentCount()
	tracker.SetOnline(false)
	report = gw.Warm(ctx, endpoints)
	require.Equal(t, WarmReport{}, report)
	require.Equal(t, sentBefore, network.SentCount())
}

// Test checks the URL path classification against the API prefix.
func Test_Gateway_APIClassification(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)

	require.True(t, gw.IsAPIRequest(mustRequest(t, "GET", "/api/resources", nil)))
	require.True(t, gw.IsAPIRequest(mustRequest(t, "GET", "/api/resources?page=2", nil)))
	require.True(t, gw.IsAPIRequest(mustRequest(t, "GET", "http://localhost:5000/api/timeline", nil)))
	require.False(t, gw.IsAPIRequest(mustRequest(t, "GET", "/index.html", nil)))
	require.False(t, gw.IsAPIRequest(mustRequest(t, "GET", "http://localhost:5000/assets/app.js", nil)))
}

// Test checks that a mutating request outside the API prefix never degrades to
// the synthetic offline payload: the transport failure surfaces to the caller.
func Test_Gateway_StaticWriteFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	gw, network, store, _ := newTestGateway(t)

	network.SetOffline(true)

	_, err := gw.Handle(ctx, mustRequest(t, "POST", "/webhook", []byte(`{"event":"ping"}`)))
	require.Error(t, err)

	// a read on the same path still gets the offline payload
	res, err := gw.Handle(ctx, mustRequest(t, "GET", "/webhook", nil))
	require.NoError(t, err)
	require.Equal(t, model.OfflineResponseSource, res.Source)

	// the failed write never polluted the static cache
	_, err = store.GetCache(ctx, model.StaticCacheBucket, model.RequestKey("POST", "/webhook"), 0)
	require.Equal(t, storage.ErrNotFound, err)
}
