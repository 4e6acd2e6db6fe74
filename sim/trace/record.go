// Package trace records time-stamped value changes of watched elements and
// probed wires.
// This package has no dependencies on sim/; it stores signal samples only.
package trace

import (
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Sample is one recorded value change.
type Sample struct {
	Time  int64
	Value signal.Value
}

// History is the ordered sample list of one watched element or probe.
// Consecutive samples always hold different values.
type History struct {
	Key     string
	Samples []Sample
}

// Last returns the most recent sample; ok is false for an empty history.
func (h *History) Last() (s Sample, ok bool) {
	if len(h.Samples) == 0 {
		return Sample{}, false
	}
	return h.Samples[len(h.Samples)-1], true
}

// ValueAt returns the value in effect at time t: the latest sample at or
// before t. Times before the first sample read as unknown.
func (h *History) ValueAt(t int64) signal.Value {
	v := signal.Value{}
	for _, s := range h.Samples {
		if s.Time > t {
			break
		}
		v = s.Value
	}
	return v
}
