package connectivity

import (
	"fmt"
	"sync"
	"time"
)

type (
	// Edge is a transition of the connectivity signal.
	Edge struct {
		Online bool
		At     time.Time
	}

	// Tracker keeps the process-wide online/offline state and notifies
	// subscribers on state transitions (edges only, not repeats).
	Tracker struct {
		sync.Mutex
		online    bool
		subs      map[int]chan Edge
		nextSubId int
	}
)

// String implements the stringer interface.
func (e Edge) String() string {
	state := "offline"
	if e.Online {
		state = "online"
	}

	return fmt.Sprintf("Edge (%s at %s)", state, e.At.Format(time.RFC3339))
}

// IsOnline returns the current connectivity state.
func (t *Tracker) IsOnline() bool {
	t.Lock()
	defer t.Unlock()

	return t.online
}

// SetOnline updates the connectivity state and emits an Edge on transition.
// Subscriber channels are buffered; a slow subscriber misses edges rather than
// blocking the signal source.
func (t *Tracker) SetOnline(online bool) {
	t.Lock()
	defer t.Unlock()

	if t.online == online {
		return
	}
	t.online = online

	edge := Edge{Online: online, At: time.Now().UTC()}
	for _, sub := range t.subs {
		select {
		case sub <- edge:
		default:
		}
	}
}

// Subscribe registers an Edge listener and returns its id alongside the channel.
func (t *Tracker) Subscribe() (int, <-chan Edge) {
	t.Lock()
	defer t.Unlock()

	id := t.nextSubId
	t.nextSubId++

	ch := make(chan Edge, 8)
	t.subs[id] = ch

	return id, ch
}

// Unsubscribe removes an Edge listener.
func (t *Tracker) Unsubscribe(id int) {
	t.Lock()
	defer t.Unlock()

	delete(t.subs, id)
}

// NewTracker creates a new Tracker object.
func NewTracker(initialOnline bool) *Tracker {
	return &Tracker{
		online: initialOnline,
		subs:   make(map[int]chan Edge),
	}
}
