package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anadon/JLS-sub002/sim/signal"
)

// set is a scheduled output change for a source.
type set struct {
	at    int64
	value signal.Value
}

// source drives an initial value at InitSim and later values from
// scheduled set payloads.
type source struct {
	name    string
	initial signal.Value
	changes []set
	out     *Port
	inits   int
}

func newSource(name string, width int, initial signal.Value, changes ...set) *source {
	s := &source{name: name, initial: initial, changes: changes}
	s.out = NewOutput(s, "out", width)
	return s
}

func newTriSource(name string, width int, initial signal.Value) *source {
	s := &source{name: name, initial: initial}
	s.out = NewTriStateOutput(s, "out", width)
	return s
}

func (s *source) Name() string   { return s.name }
func (s *source) Ports() []*Port { return []*Port{s.out} }

func (s *source) InitSim(eng Engine) error {
	s.inits++
	for _, c := range s.changes {
		eng.Post(Event{Time: c.at, Target: s, Payload: c})
	}
	return eng.Drive(s.out, s.initial)
}

func (s *source) React(_ int64, eng Engine, payload any) error {
	return eng.Drive(s.out, payload.(set).value)
}

// sink reads its input and remembers every value it saw.
type sink struct {
	name   string
	in     *Port
	seen   []signal.Value
	at     []int64
	finish bool // call Finish when the input goes high
}

func newSink(name string, width int) *sink {
	s := &sink{name: name}
	s.in = NewInput(s, "in", width)
	return s
}

func (s *sink) Name() string         { return s.name }
func (s *sink) Ports() []*Port       { return []*Port{s.in} }
func (s *sink) InitSim(Engine) error { return nil }
func (s *sink) Value() signal.Value  { return s.in.Value() }

func (s *sink) React(now int64, eng Engine, _ any) error {
	s.seen = append(s.seen, s.in.Value())
	s.at = append(s.at, now)
	if bit, ok := s.in.Value().Bit(0); ok && bit && s.finish {
		eng.Finish()
	}
	return nil
}

type toggle struct{}

// toggler flips its 1-bit output every period ticks, forever.
type toggler struct {
	name   string
	period int64
	level  bool
	out    *Port
}

func newToggler(name string, period int64) *toggler {
	t := &toggler{name: name, period: period}
	t.out = NewOutput(t, "out", 1)
	return t
}

func (t *toggler) Name() string   { return t.name }
func (t *toggler) Ports() []*Port { return []*Port{t.out} }

func (t *toggler) InitSim(eng Engine) error {
	t.level = false
	eng.PostAfter(t.period, t, toggle{})
	return eng.Drive(t.out, signal.Bool(false))
}

func (t *toggler) React(_ int64, eng Engine, _ any) error {
	t.level = !t.level
	eng.PostAfter(t.period, t, toggle{})
	return eng.Drive(t.out, signal.Bool(t.level))
}

// reactFunc adapts a function to Reactive for queue tests.
type reactFunc func(now int64, eng Engine, payload any) error

func (f reactFunc) InitSim(Engine) error { return nil }
func (f reactFunc) React(now int64, eng Engine, payload any) error {
	return f(now, eng, payload)
}

// named is a bare Reactive used as a distinct, comparable event target.
type named struct{ id string }

func (*named) InitSim(Engine) error           { return nil }
func (*named) React(int64, Engine, any) error { return nil }

// newTestSimulator returns a simulator with a loaded circuit.
func newTestSimulator(t *testing.T, c *Circuit, mutate ...func(*Config)) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TraceWindow = 0
	for _, m := range mutate {
		m(&cfg)
	}
	require.NoError(t, cfg.Validate())
	s := NewSimulator(cfg)
	require.NoError(t, s.SetCircuit(c))
	return s
}

// mustWire wires ports and fails the test on error.
func mustWire(t *testing.T, c *Circuit, name string, ports ...*Port) {
	t.Helper()
	_, err := c.Wire(name, ports...)
	require.NoError(t, err)
}
