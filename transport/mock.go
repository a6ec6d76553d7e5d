package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/itiky/offline-bridge/model"
)

// ErrMockUnreachable is the transport failure returned by MockTransport when offline.
var ErrMockUnreachable = errors.New("mock transport: network unreachable")

type (
	// MockTransport implements the Transport interface with scripted responses (tests only).
	MockTransport struct {
		sync.Mutex
		// Offline (if set) makes every Send fail with ErrMockUnreachable.
		Offline bool
		// Responses maps "METHOD URL" to the scripted response.
		Responses map[string]model.Response
		// FailKeys marks request keys whose Send fails at transport level.
		FailKeys map[string]bool
		// Sent keeps every delivered request in order.
		Sent []model.Request
		// Delay is applied before each Send resolves.
		Delay time.Duration
	}
)

// Send implements the Transport interface.
func (t *MockTransport) Send(ctx context.Context, req model.Request) (model.Response, error) {
	t.Lock()
	delay := t.Delay
	t.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	t.Lock()
	defer t.Unlock()

	if t.Offline {
		return model.Response{}, ErrMockUnreachable
	}
	if t.FailKeys[req.Key()] {
		return model.Response{}, ErrMockUnreachable
	}

	t.Sent = append(t.Sent, req)

	if res, found := t.Responses[req.Key()]; found {
		return res, nil
	}

	return model.Response{Status: 200, Body: []byte(`{}`), ContentType: "application/json", Source: model.NetworkResponseSource}, nil
}

// SetOffline switches the scripted connectivity state.
func (t *MockTransport) SetOffline(offline bool) {
	t.Lock()
	defer t.Unlock()

	t.Offline = offline
}

// SentCount returns the number of requests delivered so far.
func (t *MockTransport) SentCount() int {
	t.Lock()
	defer t.Unlock()

	return len(t.Sent)
}

// NewMockTransport creates a new MockTransport object.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Responses: make(map[string]model.Response),
		FailKeys:  make(map[string]bool),
	}
}
