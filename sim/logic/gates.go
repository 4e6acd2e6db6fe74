package logic

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Op is a combinational gate function.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpXor Op = "xor"
	OpNot Op = "not"
)

// Gate is a combinational element with a propagation delay.
//
//	Inputs: in0..inN-1 (one for OpNot)
//	Outputs: out
//	Function: out(t+delay) = op(in0(t), ..., inN-1(t))
//
// Any unknown input makes the output unknown.
type Gate struct {
	part
	op    Op
	delay int64
	In    []*sim.Port
	Out   *sim.Port
}

// NewGate creates a gate of the given width. OpNot takes exactly one
// input; the other operations take at least two.
func NewGate(op Op, name string, inputs, width int, delay int64) (*Gate, error) {
	switch op {
	case OpNot:
		if inputs != 1 {
			return nil, fmt.Errorf("%s: not gate takes 1 input, got %d", name, inputs)
		}
	case OpAnd, OpOr, OpXor:
		if inputs < 2 {
			return nil, fmt.Errorf("%s: %s gate needs at least 2 inputs, got %d", name, op, inputs)
		}
	default:
		return nil, fmt.Errorf("%s: unknown gate %q", name, op)
	}
	if width < 1 {
		return nil, fmt.Errorf("%s: invalid width %d", name, width)
	}
	if delay < 0 {
		return nil, fmt.Errorf("%s: negative delay %d", name, delay)
	}
	g := &Gate{part: part{name: name}, op: op, delay: delay}
	for i := 0; i < inputs; i++ {
		g.In = append(g.In, sim.NewInput(g, fmt.Sprintf("in%d", i), width))
	}
	g.Out = sim.NewOutput(g, "out", width)
	g.add(g.In...)
	g.add(g.Out)
	return g, nil
}

// NewAnd returns a two-input AND gate.
func NewAnd(name string, width int, delay int64) *Gate {
	return mustGate(NewGate(OpAnd, name, 2, width, delay))
}

// NewOr returns a two-input OR gate.
func NewOr(name string, width int, delay int64) *Gate {
	return mustGate(NewGate(OpOr, name, 2, width, delay))
}

// NewXor returns a two-input XOR gate.
func NewXor(name string, width int, delay int64) *Gate {
	return mustGate(NewGate(OpXor, name, 2, width, delay))
}

// NewNot returns an inverter.
func NewNot(name string, width int, delay int64) *Gate {
	return mustGate(NewGate(OpNot, name, 1, width, delay))
}

func mustGate(g *Gate, err error) *Gate {
	if err != nil {
		panic(err)
	}
	return g
}

// Op returns the gate function.
func (g *Gate) Op() Op { return g.op }

// InitSim evaluates the gate once so unconnected inputs settle the output.
func (g *Gate) InitSim(eng sim.Engine) error {
	eng.Post(sim.Event{Time: eng.Now(), Target: g, Payload: sim.InputsChanged{}})
	return nil
}

// React schedules the new output on input changes and drives it when due.
func (g *Gate) React(now int64, eng sim.Engine, payload any) error {
	switch p := payload.(type) {
	case sim.InputsChanged:
		schedule(eng, g, g.delay, g.eval())
	case update:
		return eng.Drive(g.Out, p.value)
	default:
		return fmt.Errorf("unexpected payload %T", payload)
	}
	return nil
}

func (g *Gate) eval() signal.Value {
	v := g.In[0].Value()
	if g.op == OpNot {
		return v.Not()
	}
	for _, in := range g.In[1:] {
		switch g.op {
		case OpAnd:
			v = v.And(in.Value())
		case OpOr:
			v = v.Or(in.Value())
		case OpXor:
			v = v.Xor(in.Value())
		}
	}
	return v
}
