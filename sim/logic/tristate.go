package logic

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// TriBuffer is a tri-state buffer.
//
//	Inputs: in, en
//	Outputs: out (tri-state)
//	Function: out(t+delay) = in(t) when en(t) = 1, released otherwise
//
// An unknown enable releases the output.
type TriBuffer struct {
	part
	delay int64
	In    *sim.Port
	En    *sim.Port
	Out   *sim.Port
}

// NewTriBuffer returns a buffer of the given width.
func NewTriBuffer(name string, width int, delay int64) (*TriBuffer, error) {
	if width < 1 {
		return nil, fmt.Errorf("%s: invalid width %d", name, width)
	}
	if delay < 0 {
		return nil, fmt.Errorf("%s: negative delay %d", name, delay)
	}
	b := &TriBuffer{part: part{name: name}, delay: delay}
	b.In = sim.NewInput(b, "in", width)
	b.En = sim.NewInput(b, "en", 1)
	b.Out = sim.NewTriStateOutput(b, "out", width)
	b.add(b.In, b.En, b.Out)
	return b, nil
}

// InitSim leaves the output released.
func (b *TriBuffer) InitSim(sim.Engine) error { return nil }

// React follows the enable input.
func (b *TriBuffer) React(_ int64, eng sim.Engine, payload any) error {
	switch p := payload.(type) {
	case sim.InputsChanged:
		out := signal.Unknown(b.Out.Width())
		if bit, ok := b.En.Value().Bit(0); ok && bit {
			out = b.In.Value()
		}
		schedule(eng, b, b.delay, out)
	case update:
		return eng.Drive(b.Out, p.value)
	default:
		return fmt.Errorf("unexpected payload %T", payload)
	}
	return nil
}
