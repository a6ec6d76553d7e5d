package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type (
	// CachedResponse keeps the last-known-good payload for a read request.
	CachedResponse struct {
		Key         string
		Bucket      CacheBucket
		Payload     []byte
		ContentType string
		StoredAt    time.Time
	}

	// OfflinePayload is the synthetic body returned when a read request fails
	// and no cached response exists.
	OfflinePayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

// String implements the stringer interface.
func (c CachedResponse) String() string {
	return fmt.Sprintf("CachedResponse (%s/%s): %d bytes stored at %s", c.Bucket, c.Key, len(c.Payload), c.StoredAt.Format(time.RFC3339))
}

// IsStale checks the entry age against the ttl (check-at-read semantics).
func (c CachedResponse) IsStale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	return now.Sub(c.StoredAt) >= ttl
}

// NewOfflineResponse builds the offline-indicator response: success-shaped,
// so read callers never have to handle a transport error directly.
func NewOfflineResponse() Response {
	payload := OfflinePayload{
		Error:   "offline",
		Message: "You are currently offline. Some features may be limited.",
	}
	raw, _ := json.Marshal(payload)

	return Response{
		Status:      200,
		Body:        raw,
		ContentType: "application/json",
		Source:      OfflineResponseSource,
	}
}
