package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	// PendingAction keeps one mutating request that could not be delivered
	// to the server and awaits replay.
	PendingAction struct {
		Id         string
		Kind       OperationKind
		Endpoint   string
		Method     string
		Body       []byte
		Headers    map[string]string
		EnqueuedAt time.Time
	}
)

// String implements the stringer interface.
func (a PendingAction) String() string {
	return fmt.Sprintf("PendingAction (%s): %s %s %s", a.Id, a.Kind, a.Method, a.Endpoint)
}

// NewPendingAction creates a valid PendingAction object.
// The id embeds the enqueue timestamp, so lexicographical id order matches insertion order.
func NewPendingAction(kind OperationKind, endpoint, method string, body []byte, headers map[string]string, enqueuedAt time.Time) (PendingAction, error) {
	if !kind.Valid() {
		return PendingAction{}, fmt.Errorf("%s: unknown: %s", "kind", kind)
	}
	if endpoint == "" {
		return PendingAction{}, fmt.Errorf("%s: empty", "endpoint")
	}
	if method == "" {
		return PendingAction{}, fmt.Errorf("%s: empty", "method")
	}
	if enqueuedAt.IsZero() {
		return PendingAction{}, fmt.Errorf("%s: zero", "enqueuedAt")
	}

	headersCopy := make(map[string]string, len(headers))
	for k, v := range headers {
		headersCopy[k] = v
	}

	return PendingAction{
		Id:         fmt.Sprintf("%020d-%s", enqueuedAt.UnixNano(), strings.Split(uuid.New().String(), "-")[0]),
		Kind:       kind,
		Endpoint:   endpoint,
		Method:     strings.ToUpper(method),
		Body:       body,
		Headers:    headersCopy,
		EnqueuedAt: enqueuedAt,
	}, nil
}
