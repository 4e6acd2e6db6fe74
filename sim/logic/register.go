package logic

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Register is an edge-triggered register.
//
//	Inputs: d, clk
//	Outputs: q
//	Function: q(t+delay) = d(t) on every rising edge of clk
//
// The stored value starts unknown and is exposed to the trace through Value.
type Register struct {
	part
	delay   int64
	stored  signal.Value
	lastClk signal.Value
	D       *sim.Port
	Clk     *sim.Port
	Q       *sim.Port
}

// NewRegister returns a register of the given width.
func NewRegister(name string, width int, delay int64) (*Register, error) {
	if width < 1 {
		return nil, fmt.Errorf("%s: invalid width %d", name, width)
	}
	if delay < 0 {
		return nil, fmt.Errorf("%s: negative delay %d", name, delay)
	}
	r := &Register{part: part{name: name}, delay: delay}
	r.D = sim.NewInput(r, "d", width)
	r.Clk = sim.NewInput(r, "clk", 1)
	r.Q = sim.NewOutput(r, "q", width)
	r.add(r.D, r.Clk, r.Q)
	return r, nil
}

// Value returns the stored value.
func (r *Register) Value() signal.Value { return r.stored }

// InitSim clears the stored value.
func (r *Register) InitSim(sim.Engine) error {
	r.stored = signal.Unknown(r.Q.Width())
	r.lastClk = signal.Unknown(1)
	return nil
}

// React latches d on a rising clock edge.
func (r *Register) React(_ int64, eng sim.Engine, payload any) error {
	switch p := payload.(type) {
	case sim.InputsChanged:
		clk := r.Clk.Value()
		was, _ := r.lastClk.Bit(0)
		is, ok := clk.Bit(0)
		r.lastClk = clk
		if ok && is && !was {
			r.stored = r.D.Value()
			schedule(eng, r, r.delay, r.stored)
		}
	case update:
		return eng.Drive(r.Q, p.value)
	default:
		return fmt.Errorf("unexpected payload %T", payload)
	}
	return nil
}
