package syncer

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/model"
	"github.com/itiky/offline-bridge/storage"
	"github.com/itiky/offline-bridge/transport"
)

type (
	// Syncer owns the pending-action queue: it durably persists mutations that
	// could not be delivered and replays them FIFO once connectivity returns.
	// An action is removed only on a confirmed (non-error status) replay; a
	// failed replay keeps the action queued for the next drain pass.
	Syncer struct {
		// Deps
		store   storage.Storage
		network transport.Transport
		tracker *connectivity.Tracker
		// State
		draining int32
		syncCh   chan struct{}
		stopCh   chan interface{}
	}

	// DrainReport is the result of one queue drain pass.
	DrainReport struct {
		Attempted int
		Confirmed int
		Failed    int
		// Skipped is set when another drain was already in flight (no-op pass).
		Skipped bool
	}
)

// String implements the stringer interface.
func (r DrainReport) String() string {
	if r.Skipped {
		return "DrainReport (skipped: drain in flight)"
	}

	return fmt.Sprintf("DrainReport (attempted: %d, confirmed: %d, failed: %d)", r.Attempted, r.Confirmed, r.Failed)
}

// Enqueue persists a mutating action for later replay and returns once durably stored.
// A storage failure surfaces to the caller: the queue never drops an action silently.
func (s *Syncer) Enqueue(ctx context.Context, kind model.OperationKind, endpoint, method string, body []byte, headers map[string]string) (model.PendingAction, error) {
	action, err := model.NewPendingAction(kind, endpoint, method, body, headers, time.Now().UTC())
	if err != nil {
		return model.PendingAction{}, err
	}

	if err := s.store.SavePendingAction(ctx, action); err != nil {
		return model.PendingAction{}, fmt.Errorf("storage: %w", err)
	}

	log.Printf("Syncer: queued: %s", action.String())
	monitor.ActionQueued()

	return action, nil
}

// Drain replays all pending actions in enqueue order.
// A confirmed replay removes the action; a failed one stays queued and the
// pass continues with the next action. Only one drain runs at a time:
// concurrent calls return a skipped report instead of racing a second replay
// of the same actions.
func (s *Syncer) Drain(ctx context.Context) (DrainReport, error) {
	if !atomic.CompareAndSwapInt32(&s.draining, 0, 1) {
		return DrainReport{Skipped: true}, nil
	}
	defer atomic.StoreInt32(&s.draining, 0)

	actions, err := s.store.ListPendingActions(ctx)
	if err != nil {
		return DrainReport{}, fmt.Errorf("storage: %w", err)
	}

	report := DrainReport{}
	opStart := time.Now()

	for _, action := range actions {
		report.Attempted++

		req := model.Request{
			Method:  action.Method,
			URL:     action.Endpoint,
			Headers: action.Headers,
			Body:    action.Body,
		}

		res, err := s.network.Send(ctx, req)
		if err != nil || !res.Ok() {
			// Keep the action queued, move on to the next one
			report.Failed++
			monitor.ReplayFailed()
			if err != nil {
				log.Printf("Syncer: replay %s: transport: %v", action.Id, err)
			} else {
				log.Printf("Syncer: replay %s: rejected: status %d", action.Id, res.Status)
			}
			continue
		}

		if err := s.store.DeletePendingAction(ctx, action.Id); err != nil {
			// The server effect is applied but the entry is still queued; abort
			// the pass so the inconsistency is visible instead of compounding.
			return report, fmt.Errorf("storage: confirmed action %s removal: %w", action.Id, err)
		}

		report.Confirmed++
		monitor.ReplayConfirmed()
	}

	if report.Attempted > 0 {
		monitor.DrainCompleted(time.Since(opStart))
		log.Printf("Syncer: %s", report.String())
	}

	return report, nil
}

// PendingCount returns the current queue length.
func (s *Syncer) PendingCount(ctx context.Context) (int, error) {
	count, err := s.store.PendingCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: %w", err)
	}

	return count, nil
}

// TriggerSync nudges the worker to drain the queue (non-blocking).
func (s *Syncer) TriggerSync() {
	select {
	case s.syncCh <- struct{}{}:
	default:
	}
}

// Start starts the Syncer worker.
func (s *Syncer) Start() {
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan interface{})

	monitor.Start()
	go s.worker(s.stopCh)
}

// Stop stops the Syncer worker.
func (s *Syncer) Stop() {
	if s.stopCh == nil {
		return
	}

	close(s.stopCh)
	s.stopCh = nil
	monitor.Stop()
}

// worker does the actual job: drains on connectivity-restored edges and on
// explicit sync triggers.
// The stop channel is passed in: the field is re-assigned by Start/Stop and
// must not be re-read from another goroutine.
func (s *Syncer) worker(stopCh chan interface{}) {
	log.Printf("Syncer: start")

	subId, edgeCh := s.tracker.Subscribe()
	defer s.tracker.Unsubscribe(subId)

	for {
		select {
		case edge := <-edgeCh:
			if !edge.Online {
				continue
			}
			log.Printf("Syncer: connectivity restored, draining")
			if _, err := s.Drain(context.Background()); err != nil {
				log.Printf("Syncer: drain: %v", err)
			}
		case <-s.syncCh:
			if _, err := s.Drain(context.Background()); err != nil {
				log.Printf("Syncer: drain: %v", err)
			}
		case <-stopCh:
			log.Printf("Syncer: stop")
			return
		}
	}
}

// NewSyncer creates a new Syncer object.
func NewSyncer(store storage.Storage, network transport.Transport, tracker *connectivity.Tracker) (*Syncer, error) {
	if store == nil {
		return nil, fmt.Errorf("%s: nil", "store")
	}
	if network == nil {
		return nil, fmt.Errorf("%s: nil", "network")
	}
	if tracker == nil {
		return nil, fmt.Errorf("%s: nil", "tracker")
	}

	return &Syncer{
		store:   store,
		network: network,
		tracker: tracker,
		syncCh:  make(chan struct{}, 1),
	}, nil
}
