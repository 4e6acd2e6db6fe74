package logic

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Constant drives a fixed value from time 0.
//
//	Outputs: out
//	Function: out = value
type Constant struct {
	part
	value signal.Value
	Out   *sim.Port
}

// NewConstant returns a source for v. An unknown v leaves its net undriven.
func NewConstant(name string, v signal.Value) *Constant {
	c := &Constant{part: part{name: name}, value: v}
	c.Out = sim.NewOutput(c, "out", v.Width())
	c.add(c.Out)
	return c
}

// Value returns the constant.
func (c *Constant) Value() signal.Value { return c.value }

// InitSim drives the constant.
func (c *Constant) InitSim(eng sim.Engine) error {
	return eng.Drive(c.Out, c.value)
}

// React is never expected; a constant posts nothing.
func (c *Constant) React(int64, sim.Engine, any) error { return nil }

// tick is the Clock's self-scheduled toggle.
type tick struct{}

// Clock is a free-running 1-bit square wave starting low at time 0.
//
//	Outputs: out
//	Function: out is low for Low ticks, then high for High ticks, repeated
//
// A positive Cycles stops the clock after that many full periods.
type Clock struct {
	part
	high, low int64
	cycles    int
	level     bool
	done      int
	Out       *sim.Port
}

// NewClock returns a clock with the given half periods.
func NewClock(name string, high, low int64, cycles int) (*Clock, error) {
	if high < 1 || low < 1 {
		return nil, fmt.Errorf("%s: clock half periods must be positive, got high=%d low=%d", name, high, low)
	}
	if cycles < 0 {
		return nil, fmt.Errorf("%s: negative cycle count %d", name, cycles)
	}
	c := &Clock{part: part{name: name}, high: high, low: low, cycles: cycles}
	c.Out = sim.NewOutput(c, "out", 1)
	c.add(c.Out)
	return c, nil
}

// InitSim drives the clock low and schedules the first rising edge.
func (c *Clock) InitSim(eng sim.Engine) error {
	c.level, c.done = false, 0
	if err := eng.Drive(c.Out, signal.Bool(false)); err != nil {
		return err
	}
	eng.PostAfter(c.low, c, tick{})
	return nil
}

// React toggles the output and schedules the next edge.
func (c *Clock) React(_ int64, eng sim.Engine, payload any) error {
	if _, ok := payload.(tick); !ok {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	c.level = !c.level
	if err := eng.Drive(c.Out, signal.Bool(c.level)); err != nil {
		return err
	}
	if c.level {
		eng.PostAfter(c.high, c, tick{})
		return nil
	}
	c.done++
	if c.cycles == 0 || c.done < c.cycles {
		eng.PostAfter(c.low, c, tick{})
	}
	return nil
}
