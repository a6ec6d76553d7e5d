package connectivity

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

type (
	// Probe polls an upstream URL and feeds the Tracker with the result.
	Probe struct {
		// Config
		tracker  *Tracker
		probeURL string
		period   time.Duration
		// State
		client *http.Client
		stopCh chan struct{}
	}
)

// ProbeOnce performs a single connectivity check.
func (p *Probe) ProbeOnce(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, p.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}

	res, err := p.client.Do(req)
	if err != nil {
		return false
	}
	res.Body.Close()

	return true
}

// Start starts the Probe worker.
func (p *Probe) Start() {
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})

	go p.worker(p.stopCh)
}

// Stop stops the Probe worker.
func (p *Probe) Stop() {
	if p.stopCh == nil {
		return
	}

	close(p.stopCh)
	p.stopCh = nil
}

// worker does the actual job.
// The stop channel is passed in: the field is re-assigned by Start/Stop and
// must not be re-read from another goroutine.
func (p *Probe) worker(stopCh chan struct{}) {
	log.Printf("Probe: start: %s every %v", p.probeURL, p.period)

	p.tracker.SetOnline(p.ProbeOnce(context.Background()))

	probeCh := time.Tick(p.period)
	for {
		select {
		case <-probeCh:
			p.tracker.SetOnline(p.ProbeOnce(context.Background()))
		case <-stopCh:
			log.Printf("Probe: stop")
			return
		}
	}
}

// NewProbe creates a new Probe object.
func NewProbe(tracker *Tracker, probeURL string, period, timeout time.Duration) (*Probe, error) {
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}
	if probeURL == "" {
		return nil, fmt.Errorf("%s: empty", "probeURL")
	}
	if period <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "period")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "timeout")
	}

	return &Probe{
		tracker:  tracker,
		probeURL: probeURL,
		period:   period,
		client:   &http.Client{Timeout: timeout},
	}, nil
}
