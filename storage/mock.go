package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/itiky/offline-bridge/model"
)

type (
	// MemStorage implements the Storage interface in memory.
	// Used by tests and as an ephemeral fallback (no durability across restarts).
	MemStorage struct {
		sync.Mutex
		cache   map[string]model.CachedResponse
		actions map[string]model.PendingAction
		// FailNextOp (if set) is returned by the next mutating operation (test hook).
		FailNextOp error
	}
)

func (s *MemStorage) cacheKey(bucket model.CacheBucket, key string) string {
	return string(bucket) + "|" + key
}

func (s *MemStorage) takeFailure() error {
	err := s.FailNextOp
	s.FailNextOp = nil

	return err
}

// PutCache implements the Storage interface.
func (s *MemStorage) PutCache(ctx context.Context, entry model.CachedResponse) error {
	s.Lock()
	defer s.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	payloadCopy := make([]byte, len(entry.Payload))
	copy(payloadCopy, entry.Payload)
	entry.Payload = payloadCopy

	s.cache[s.cacheKey(entry.Bucket, entry.Key)] = entry

	return nil
}

// GetCache implements the Storage interface.
func (s *MemStorage) GetCache(ctx context.Context, bucket model.CacheBucket, key string, maxAge time.Duration) (model.CachedResponse, error) {
	s.Lock()
	defer s.Unlock()

	entry, found := s.cache[s.cacheKey(bucket, key)]
	if !found || entry.IsStale(time.Now().UTC(), maxAge) {
		return model.CachedResponse{}, ErrNotFound
	}

	return entry, nil
}

// SavePendingAction implements the Storage interface.
func (s *MemStorage) SavePendingAction(ctx context.Context, action model.PendingAction) error {
	s.Lock()
	defer s.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	s.actions[action.Id] = action

	return nil
}

// ListPendingActions implements the Storage interface.
func (s *MemStorage) ListPendingActions(ctx context.Context) ([]model.PendingAction, error) {
	s.Lock()
	defer s.Unlock()

	actions := make([]model.PendingAction, 0, len(s.actions))
	for _, action := range s.actions {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].Id < actions[j].Id
	})

	return actions, nil
}

// DeletePendingAction implements the Storage interface.
func (s *MemStorage) DeletePendingAction(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	delete(s.actions, id)

	return nil
}

// PendingCount implements the Storage interface.
func (s *MemStorage) PendingCount(ctx context.Context) (int, error) {
	s.Lock()
	defer s.Unlock()

	return len(s.actions), nil
}

// ClearPendingActions implements the Storage interface.
func (s *MemStorage) ClearPendingActions(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}

	s.actions = make(map[string]model.PendingAction)

	return nil
}

// Close implements the Storage interface.
func (s *MemStorage) Close() error {
	return nil
}

// NewMemStorage creates a new MemStorage object.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		cache:   make(map[string]model.CachedResponse),
		actions: make(map[string]model.PendingAction),
	}
}
