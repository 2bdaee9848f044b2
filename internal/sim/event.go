// Event kinds and the time-ordered event calendar.
package sim

import (
	"container/heap"
	"errors"
	"fmt"
)

// EventKind is the closed set of state transitions the engine
// dispatches on. New kinds require a new handler arm in the engine's
// switch.
type EventKind uint8

const (
	// EventBirth attempts to place a new symbiont: a pool arrival
	// (Symbiont == nil) or a division child (Parent set).
	EventBirth EventKind = iota
	// EventDeath removes a symbiont; the cause is recorded on it.
	EventDeath
	// EventMigration relocates a symbiont to a random open cell.
	EventMigration
	// EventCycle is the photosynthesis-update checkpoint at the end of
	// the symbiont's current G0 or G1SG2M phase.
	EventCycle
)

func (k EventKind) String() string {
	switch k {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	case EventMigration:
		return "migration"
	case EventCycle:
		return "cycle"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a scheduled state transition. Seq is assigned when the
// event is created (not when it is pushed) and breaks ties among
// events scheduled for the same instant, first created first served.
type Event struct {
	Time     float64
	Kind     EventKind
	Symbiont *Symbiont // nil for population-level events
	Parent   *Symbiont // set on division births
	// Endowment is the photosynthate share a division child arrives
	// with, split off the parent when the division completed.
	Endowment float64
	Seq       uint64
}

// ErrEmptyQueue is returned by PopEarliest and PeekEarliest when no
// events remain.
var ErrEmptyQueue = errors.New("sim: event queue is empty")

// EventQueue is a binary heap ordered by (Time, Seq). The ordering is
// total because sequence numbers are unique, so pop order never
// depends on heap internals.
type EventQueue struct {
	h eventHeap
}

// NewEventQueue returns an empty calendar.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int { return len(q.h) }

// Push inserts an event in O(log n).
func (q *EventQueue) Push(ev *Event) {
	heap.Push(&q.h, ev)
}

// PopEarliest removes and returns the event with the smallest
// (time, sequence) key.
func (q *EventQueue) PopEarliest() (*Event, error) {
	if len(q.h) == 0 {
		return nil, ErrEmptyQueue
	}
	return heap.Pop(&q.h).(*Event), nil
}

// PeekEarliest returns the next event without removing it.
func (q *EventQueue) PeekEarliest() (*Event, error) {
	if len(q.h) == 0 {
		return nil, ErrEmptyQueue
	}
	return q.h[0], nil
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(*Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}
