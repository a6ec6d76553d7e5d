package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/service/gateway"
	"github.com/itiky/offline-bridge/service/syncer"
)

type (
	// Scheduler runs the two periodic cadences: a frequent queue check that
	// triggers a sync while actions are pending, and a slower cache warmup of
	// the configured read endpoints. Both are independent of connectivity-edge
	// triggered syncs and are skipped while offline.
	Scheduler struct {
		// Config
		syncPeriod    time.Duration
		warmPeriod    time.Duration
		warmEndpoints []string
		// Deps
		cron    *gocron.Scheduler
		tracker *connectivity.Tracker
		gw      *gateway.Gateway
		sync    *syncer.Syncer
	}
)

// Start registers the periodic jobs and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(s.syncPeriod).Do(s.checkPending); err != nil {
		return fmt.Errorf("sync job: %w", err)
	}
	if len(s.warmEndpoints) > 0 {
		if _, err := s.cron.Every(s.warmPeriod).Do(s.warmCache); err != nil {
			return fmt.Errorf("warm job: %w", err)
		}
	}

	s.cron.StartAsync()
	log.Printf("Scheduler: start: sync every %v, warm every %v", s.syncPeriod, s.warmPeriod)

	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Printf("Scheduler: stop")
}

// checkPending triggers a sync when the queue is non-empty and the network is up.
func (s *Scheduler) checkPending() {
	if !s.tracker.IsOnline() {
		return
	}

	count, err := s.sync.PendingCount(context.Background())
	if err != nil {
		log.Printf("Scheduler: pending count: %v", err)
		return
	}
	if count == 0 {
		return
	}

	s.sync.TriggerSync()
}

// warmCache refreshes the API cache for the configured endpoints.
func (s *Scheduler) warmCache() {
	if !s.tracker.IsOnline() {
		return
	}

	report := s.gw.Warm(context.Background(), s.warmEndpoints)
	log.Printf("Scheduler: %s", report.String())
}

// NewScheduler creates a new Scheduler object.
func NewScheduler(tracker *connectivity.Tracker, gw *gateway.Gateway, sync *syncer.Syncer, syncPeriod, warmPeriod time.Duration, warmEndpoints []string) (*Scheduler, error) {
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}
	if gw == nil {
		return nil, fmt.Errorf("%s: nil", "gateway")
	}
	if sync == nil {
		return nil, fmt.Errorf("%s: nil", "syncer")
	}
	if syncPeriod <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "syncPeriod")
	}
	if warmPeriod <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "warmPeriod")
	}

	return &Scheduler{
		syncPeriod:    syncPeriod,
		warmPeriod:    warmPeriod,
		warmEndpoints: warmEndpoints,
		cron:          gocron.NewScheduler(time.UTC),
		tracker:       tracker,
		gw:            gw,
		sync:          sync,
	}, nil
}
