package connectivity

import (
	"context"
	"fmt"
	"log"
	"time"

	"nhooyr.io/websocket"
)

type (
	// WSWatcher keeps a persistent websocket to the upstream and treats the
	// connection health as the connectivity signal: a live, ping-able socket
	// means online, a failed dial or ping means offline.
	// Alternative edge source to the HTTP Probe.
	WSWatcher struct {
		// Config
		tracker    *Tracker
		wsURL      string
		pingPeriod time.Duration
		dialRetry  time.Duration
		// State
		stopCh chan struct{}
	}
)

// Start starts the WSWatcher worker.
func (w *WSWatcher) Start() {
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})

	go w.worker(w.stopCh)
}

// Stop stops the WSWatcher worker.
func (w *WSWatcher) Stop() {
	if w.stopCh == nil {
		return
	}

	close(w.stopCh)
	w.stopCh = nil
}

// worker does the actual job: dial, ping until failure, redial.
// The stop channel is passed in: the field is re-assigned by Start/Stop and
// must not be re-read from another goroutine.
func (w *WSWatcher) worker(stopCh chan struct{}) {
	log.Printf("WSWatcher: start: %s", w.wsURL)

	for {
		select {
		case <-stopCh:
			log.Printf("WSWatcher: stop")
			return
		default:
		}

		dialCtx, dialCancel := context.WithTimeout(context.Background(), w.dialRetry)
		conn, _, err := websocket.Dial(dialCtx, w.wsURL, nil)
		dialCancel()
		if err != nil {
			w.tracker.SetOnline(false)

			select {
			case <-time.After(w.dialRetry):
				continue
			case <-stopCh:
				log.Printf("WSWatcher: stop")
				return
			}
		}

		w.tracker.SetOnline(true)
		w.pingLoop(conn, stopCh)
	}
}

// pingLoop pings the live connection until it fails or the watcher stops.
func (w *WSWatcher) pingLoop(conn *websocket.Conn, stopCh chan struct{}) {
	pingCh := time.Tick(w.pingPeriod)
	for {
		select {
		case <-pingCh:
			pingCtx, pingCancel := context.WithTimeout(context.Background(), w.pingPeriod)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				w.tracker.SetOnline(false)
				conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		case <-stopCh:
			conn.Close(websocket.StatusNormalClosure, "watcher stopped")
			return
		}
	}
}

// NewWSWatcher creates a new WSWatcher object.
func NewWSWatcher(tracker *Tracker, wsURL string, pingPeriod, dialRetry time.Duration) (*WSWatcher, error) {
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}
	if wsURL == "" {
		return nil, fmt.Errorf("%s: empty", "wsURL")
	}
	if pingPeriod <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "pingPeriod")
	}
	if dialRetry <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "dialRetry")
	}

	return &WSWatcher{
		tracker:    tracker,
		wsURL:      wsURL,
		pingPeriod: pingPeriod,
		dialRetry:  dialRetry,
	}, nil
}
