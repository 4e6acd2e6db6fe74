package sim

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim/netlist"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Net is the runtime view of a netlist.WireNet during one run: the resolved
// value plus the ports driving and reading it.
type Net struct {
	wire    *netlist.WireNet
	value   signal.Value
	drivers []*Port
	readers []*Port
	probes  []string
}

func newNet(w *netlist.WireNet) *Net {
	return &Net{wire: w, value: signal.Unknown(w.Width())}
}

// Wire returns the partitioned wire net.
func (n *Net) Wire() *netlist.WireNet { return n.wire }

// Width returns the net bit width.
func (n *Net) Width() int { return n.wire.Width() }

// Value returns the resolved value. An undriven net reads as unknown.
func (n *Net) Value() signal.Value { return n.value }

// Readers returns the input ports attached to the net.
func (n *Net) Readers() []*Port { return n.readers }

// resolve combines driver values: no defined driver gives unknown, exactly
// one gives its value, more than one is bus contention.
func (n *Net) resolve() (signal.Value, error) {
	var active *Port
	for _, d := range n.drivers {
		if !d.value.IsDefined() {
			continue
		}
		if active != nil {
			return signal.Value{}, fmt.Errorf("%w on %s: %s and %s both drive", ErrBusContention, n.wire, active, d)
		}
		active = d
	}
	if active == nil {
		return signal.Unknown(n.Width()), nil
	}
	return active.value, nil
}
