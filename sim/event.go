package sim

import "fmt"

// Event is a pending reaction: at Time, Target.React is called with Payload.
// Seq is assigned by the EventQueue when the event is posted and resolves
// ties between events at the same time in post order.
type Event struct {
	Time    int64
	Seq     uint64
	Target  Reactive
	Payload any
}

func (e Event) String() string {
	return fmt.Sprintf("event{t=%d seq=%d target=%v payload=%v}", e.Time, e.Seq, e.Target, e.Payload)
}

// before reports whether e is dispatched before o.
func (e Event) before(o Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	return e.Seq < o.Seq
}

// InputsChanged is the payload posted at the current time to every element
// reading a net whose value just changed. Several input changes of one
// element at one instant coalesce into a single reaction.
type InputsChanged struct{}

func (InputsChanged) String() string { return "inputs-changed" }
