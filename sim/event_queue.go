package sim

import (
	"container/heap"
	"reflect"
)

// pendingKey identifies a pending reaction for coalescing.
type pendingKey struct {
	target  Reactive
	payload any
}

// eventHeap implements heap.Interface ordered by (Time, Seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = Event{}
	*h = old[0 : n-1]
	return item
}

// EventQueue is a priority queue of pending events with deterministic
// ordering: time, then sequence number. A second post for a (target,
// payload) pair that is still pending is dropped.
//
// Payloads with different values for the same target queue alongside each
// other. Targets and payloads of a non-comparable type are never coalesced.
//
// Thread-safety: NOT thread-safe. Owned by the goroutine running the
// simulation.
type EventQueue struct {
	events  eventHeap
	pending map[pendingKey]bool
	nextSeq uint64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{
		events:  make(eventHeap, 0),
		pending: make(map[pendingKey]bool),
	}
	heap.Init(&q.events)
	return q
}

// keyOf checks the dynamic values: a comparable type such as a struct with
// an interface field can still hold a slice and panic as a map key.
func keyOf(ev Event) (pendingKey, bool) {
	if ev.Payload != nil && !reflect.ValueOf(ev.Payload).Comparable() {
		return pendingKey{}, false
	}
	if ev.Target != nil && !reflect.ValueOf(ev.Target).Comparable() {
		return pendingKey{}, false
	}
	return pendingKey{target: ev.Target, payload: ev.Payload}, true
}

// Post inserts ev with the next sequence number and returns true, or returns
// false without modifying the queue when an event with the same target and
// payload is already pending.
func (q *EventQueue) Post(ev Event) bool {
	key, ok := keyOf(ev)
	if ok {
		if q.pending[key] {
			return false
		}
		q.pending[key] = true
	}
	q.nextSeq++
	ev.Seq = q.nextSeq
	heap.Push(&q.events, ev)
	return true
}

// Poll removes and returns the earliest event.
func (q *EventQueue) Poll() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := heap.Pop(&q.events).(Event)
	if key, ok := keyOf(ev); ok {
		delete(q.pending, key)
	}
	return ev, true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// IsPending reports whether a reaction for (target, payload) is queued.
func (q *EventQueue) IsPending(target Reactive, payload any) bool {
	key, ok := keyOf(Event{Target: target, Payload: payload})
	return ok && q.pending[key]
}

// Clear drops every pending event. Sequence numbers keep increasing so they
// are never reused.
func (q *EventQueue) Clear() {
	q.events = q.events[:0]
	clear(q.pending)
}
