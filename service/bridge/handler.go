package bridge

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/model"
	"github.com/itiky/offline-bridge/service/gateway"
	"github.com/itiky/offline-bridge/service/syncer"
)

// StatusPath serves the bridge's own state (online flag, pending count) for
// UI indicators; it is never proxied upstream.
const StatusPath = "/bridge/status"

// SourceHeader carries the response origin (network / cache / offline).
const SourceHeader = "X-Offline-Bridge-Source"

type (
	// Bridge is the local HTTP surface: every inbound request goes through the
	// Gateway; mutating requests that fail at transport level are queued into
	// the Syncer and acknowledged with 202.
	Bridge struct {
		gw      *gateway.Gateway
		sync    *syncer.Syncer
		tracker *connectivity.Tracker
	}

	statusPayload struct {
		Online  bool `json:"online"`
		Pending int  `json:"pending"`
	}

	queuedPayload struct {
		Queued  bool   `json:"queued"`
		Id      string `json:"id"`
		Message string `json:"message"`
	}
)

// ServeHTTP implements the http.Handler interface.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == StatusPath {
		b.serveStatus(w, r)
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body read failed", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		body = nil
	}

	headers := make(map[string]string)
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	req, err := model.NewRequest(r.Method, r.URL.RequestURI(), headers, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := b.gw.Handle(r.Context(), req)
	if err != nil {
		// API write transport failure: queue the mutation for replay.
		// Only API mutations are replayable; anything else fails loudly.
		if b.gw.IsAPIRequest(req) {
			b.queueMutation(w, r, req)
			return
		}

		http.Error(w, fmt.Sprintf("upstream unreachable: %v", err), http.StatusBadGateway)
		return
	}

	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	}
	w.Header().Set(SourceHeader, string(res.Source))
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}

// serveStatus reports the connectivity state and the pending queue length.
func (b *Bridge) serveStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := b.sync.PendingCount(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("pending count: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusPayload{
		Online:  b.tracker.IsOnline(),
		Pending: pending,
	})
}

// queueMutation persists the failed mutating request and acknowledges it.
// A storage failure here must not be swallowed: the caller gets a 503.
func (b *Bridge) queueMutation(w http.ResponseWriter, r *http.Request, req model.Request) {
	kind, err := model.KindForMethod(req.Method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	action, err := b.sync.Enqueue(r.Context(), kind, req.URL, req.Method, req.Body, req.Headers)
	if err != nil {
		log.Printf("Bridge: enqueue %s: %v", req.String(), err)
		http.Error(w, "offline and the action could not be queued", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(SourceHeader, string(model.OfflineResponseSource))
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(queuedPayload{
		Queued:  true,
		Id:      action.Id,
		Message: "You are offline. The action was saved and will sync automatically.",
	})
}

// NewBridge creates a new Bridge object.
func NewBridge(gw *gateway.Gateway, sync *syncer.Syncer, tracker *connectivity.Tracker) (*Bridge, error) {
	if gw == nil {
		return nil, fmt.Errorf("%s: nil", "gateway")
	}
	if sync == nil {
		return nil, fmt.Errorf("%s: nil", "syncer")
	}
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}

	return &Bridge{
		gw:      gw,
		sync:    sync,
		tracker: tracker,
	}, nil
}
