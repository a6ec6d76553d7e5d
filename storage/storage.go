package storage

import (
	"context"
	"errors"
	"time"

	"github.com/itiky/offline-bridge/model"
)

// ErrNotFound is returned by lookup operations when no entry exists.
var ErrNotFound = errors.New("not found")

type (
	// Storage is the durable store consumed by the gateway and the syncer:
	// two independent collections (cached responses and pending actions).
	// No other component touches the underlying tables directly.
	Storage interface {
		// PutCache creates/overwrites the CachedResponse for its key (atomic, newest wins).
		PutCache(ctx context.Context, entry model.CachedResponse) error
		// GetCache returns the CachedResponse for the key.
		// Entries older than maxAge are treated as a miss (check-at-read).
		// Returns ErrNotFound on miss.
		GetCache(ctx context.Context, bucket model.CacheBucket, key string, maxAge time.Duration) (model.CachedResponse, error)

		// SavePendingAction persists the action; returns only once durably stored.
		SavePendingAction(ctx context.Context, action model.PendingAction) error
		// ListPendingActions returns all pending actions in insertion order.
		ListPendingActions(ctx context.Context) ([]model.PendingAction, error)
		// DeletePendingAction removes a confirmed action by id.
		DeletePendingAction(ctx context.Context, id string) error
		// PendingCount returns the current queue length.
		PendingCount(ctx context.Context) (int, error)
		// ClearPendingActions purges the whole queue (explicit operator action).
		ClearPendingActions(ctx context.Context) error

		// Close releases the underlying resources.
		Close() error
	}
)
