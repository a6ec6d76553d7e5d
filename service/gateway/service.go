package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/model"
	"github.com/itiky/offline-bridge/storage"
	"github.com/itiky/offline-bridge/transport"
)

type (
	// Gateway routes outgoing API requests: network-first for API traffic with
	// cache fallback on reads, cache-first for static assets.
	// Read-path callers always get a response; transport errors surface only
	// for API writes (the caller decides whether to queue).
	Gateway struct {
		// Config
		apiPrefix string
		cacheTTL  time.Duration
		// Deps
		store   storage.Storage
		network transport.Transport
		tracker *connectivity.Tracker
	}

	// WarmReport is the result of one cache warmup pass.
	WarmReport struct {
		Refreshed int
		Failed    int
	}
)

// String implements the stringer interface.
func (r WarmReport) String() string {
	return fmt.Sprintf("WarmReport (refreshed: %d, failed: %d)", r.Refreshed, r.Failed)
}

// Handle routes a single request.
// API write: network only, transport error surfaces to the caller.
// API read: network-first, then cached payload, then synthetic offline payload.
// Static: cache-first with opportunistic populate.
func (g *Gateway) Handle(ctx context.Context, req model.Request) (model.Response, error) {
	if g.IsAPIRequest(req) {
		if req.IsRead() {
			return g.handleAPIRead(ctx, req), nil
		}
		return g.handleAPIWrite(ctx, req)
	}

	return g.handleStatic(ctx, req)
}

// Warm refreshes the API cache for the given read endpoints (skipped while offline).
// Per-endpoint failures are logged and counted, never fatal.
func (g *Gateway) Warm(ctx context.Context, endpoints []string) WarmReport {
	report := WarmReport{}

	if !g.tracker.IsOnline() {
		return report
	}

	for _, endpoint := range endpoints {
		req, err := model.NewRequest("GET", endpoint, nil, nil)
		if err != nil {
			log.Printf("Gateway: warm %s: skipped: %v", endpoint, err)
			report.Failed++
			continue
		}

		res, err := g.network.Send(ctx, req)
		if err != nil || !res.Ok() {
			log.Printf("Gateway: warm %s: fetch failed", endpoint)
			report.Failed++
			continue
		}

		if err := g.cacheResponse(ctx, model.APICacheBucket, req, res); err != nil {
			log.Printf("Gateway: warm %s: cache write: %v", endpoint, err)
			report.Failed++
			continue
		}
		report.Refreshed++
	}

	return report
}

// Start starts the Gateway stats reporting.
func (g *Gateway) Start() {
	monitor.Start()
}

// Stop stops the Gateway stats reporting.
func (g *Gateway) Stop() {
	monitor.Stop()
}

// handleAPIWrite delivers a mutating request; no caching, no fallback.
func (g *Gateway) handleAPIWrite(ctx context.Context, req model.Request) (model.Response, error) {
	opStart := time.Now()

	res, err := g.network.Send(ctx, req)
	if err != nil {
		return model.Response{}, fmt.Errorf("network: %w", err)
	}

	monitor.NetworkServed(time.Since(opStart))

	return res, nil
}

// handleAPIRead delivers a read request network-first and degrades to the
// cache or to the offline-indicator payload; never returns an error.
func (g *Gateway) handleAPIRead(ctx context.Context, req model.Request) model.Response {
	opStart := time.Now()

	res, err := g.network.Send(ctx, req)
	if err == nil {
		if res.Ok() {
			if cacheErr := g.cacheResponse(ctx, model.APICacheBucket, req, res); cacheErr != nil {
				log.Printf("Gateway: %s: cache write: %v", req.String(), cacheErr)
			}
		}
		monitor.NetworkServed(time.Since(opStart))

		return res
	}

	entry, cacheErr := g.store.GetCache(ctx, model.APICacheBucket, req.Key(), g.cacheTTL)
	if cacheErr == nil {
		monitor.CacheHit()

		return model.Response{
			Status:      200,
			Body:        entry.Payload,
			ContentType: entry.ContentType,
			Source:      model.CacheResponseSource,
		}
	}
	if cacheErr != storage.ErrNotFound {
		log.Printf("Gateway: %s: cache read: %v", req.String(), cacheErr)
	}

	monitor.OfflineFallback()

	return model.NewOfflineResponse()
}

// handleStatic serves a non-API asset cache-first.
// Only reads touch the static cache and degrade to the offline payload; a
// non-read transport failure surfaces so the caller never mistakes a dropped
// mutation for success.
func (g *Gateway) handleStatic(ctx context.Context, req model.Request) (model.Response, error) {
	if req.IsRead() {
		entry, err := g.store.GetCache(ctx, model.StaticCacheBucket, req.Key(), 0)
		if err == nil {
			monitor.CacheHit()

			return model.Response{
				Status:      200,
				Body:        entry.Payload,
				ContentType: entry.ContentType,
				Source:      model.CacheResponseSource,
			}, nil
		}
		if err != storage.ErrNotFound {
			log.Printf("Gateway: %s: cache read: %v", req.String(), err)
		}
	}

	opStart := time.Now()

	res, err := g.network.Send(ctx, req)
	if err != nil {
		if !req.IsRead() {
			return model.Response{}, fmt.Errorf("network: %w", err)
		}

		monitor.OfflineFallback()

		return model.NewOfflineResponse(), nil
	}

	if req.IsRead() && res.Ok() {
		if cacheErr := g.cacheResponse(ctx, model.StaticCacheBucket, req, res); cacheErr != nil {
			log.Printf("Gateway: %s: cache write: %v", req.String(), cacheErr)
		}
	}
	monitor.NetworkServed(time.Since(opStart))

	return res, nil
}

// cacheResponse overwrites the stored payload for the request key.
func (g *Gateway) cacheResponse(ctx context.Context, bucket model.CacheBucket, req model.Request, res model.Response) error {
	return g.store.PutCache(ctx, model.CachedResponse{
		Key:         req.Key(),
		Bucket:      bucket,
		Payload:     res.Body,
		ContentType: res.ContentType,
		StoredAt:    time.Now().UTC(),
	})
}

// IsAPIRequest classifies the request by its URL path against the API prefix.
func (g *Gateway) IsAPIRequest(req model.Request) bool {
	path := req.URL
	if idx := strings.Index(path, "://"); idx != -1 {
		rest := path[idx+3:]
		if slash := strings.Index(rest, "/"); slash != -1 {
			path = rest[slash:]
		} else {
			path = "/"
		}
	}
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	return strings.HasPrefix(path, g.apiPrefix)
}

// NewGateway creates a new Gateway object.
func NewGateway(store storage.Storage, network transport.Transport, tracker *connectivity.Tracker, apiPrefix string, cacheTTL time.Duration) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("%s: nil", "store")
	}
	if network == nil {
		return nil, fmt.Errorf("%s: nil", "network")
	}
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}
	if apiPrefix == "" {
		return nil, fmt.Errorf("%s: empty", "apiPrefix")
	}
	if cacheTTL < 0 {
		return nil, fmt.Errorf("%s: must be GTE 0", "cacheTTL")
	}

	return &Gateway{
		apiPrefix: apiPrefix,
		cacheTTL:  cacheTTL,
		store:     store,
		network:   network,
		tracker:   tracker,
	}, nil
}
