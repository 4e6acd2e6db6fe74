package sim

import (
	"github.com/anadon/JLS-sub002/sim/netlist"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Engine is the simulation context handed to every InitSim and React call.
// It is only valid for the duration of that call.
type Engine interface {
	// Now returns the current simulated time.
	Now() int64
	// Post schedules ev. ev.Seq is ignored and assigned by the queue.
	// It returns false when an identical reaction is already pending.
	Post(ev Event) bool
	// PostAfter schedules a reaction delay ticks from now.
	PostAfter(delay int64, target Reactive, payload any) bool
	// Drive sets the value an output port presents to its net.
	Drive(p *Port, v signal.Value) error
	// Finish ends the run with ReasonCompleted after the current dispatch.
	Finish()
}

// Reactive is the contract of every simulated element.
//
// InitSim sets initial outputs and may post events; it is called once per
// run before any dispatch. React handles one dispatched event: it reads
// inputs, and schedules output changes through the Engine. React must not
// modify other elements directly.
type Reactive interface {
	InitSim(sim Engine) error
	React(now int64, sim Engine, payload any) error
}

// Element is a reactive circuit element with named ports.
type Element interface {
	Reactive
	Name() string
	Ports() []*Port
}

// Valued is implemented by elements that expose a single value for tracing,
// such as registers. Watched elements that do not implement it are traced
// through their first output port.
type Valued interface {
	Value() signal.Value
}

// Direction tells whether a port drives or receives its net.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Port is an element's connection point. A port belongs to exactly one
// element and is attached to at most one wire end.
type Port struct {
	name     string
	width    int
	dir      Direction
	triState bool
	owner    Element

	end   *netlist.WireEnd
	net   *Net
	value signal.Value // last value driven, outputs only
}

// NewInput creates an input port. width 0 takes the width of its net.
func NewInput(owner Element, name string, width int) *Port {
	return &Port{name: name, width: width, dir: Input, owner: owner}
}

// NewOutput creates a regular (always driving) output port.
func NewOutput(owner Element, name string, width int) *Port {
	return &Port{name: name, width: width, dir: Output, owner: owner}
}

// NewTriStateOutput creates an output that may release its net by driving
// an unknown value.
func NewTriStateOutput(owner Element, name string, width int) *Port {
	return &Port{name: name, width: width, dir: Output, triState: true, owner: owner}
}

// Name returns the port name within its element.
func (p *Port) Name() string { return p.name }

// Owner returns the element the port belongs to.
func (p *Port) Owner() Element { return p.owner }

// Direction returns Input or Output.
func (p *Port) Direction() Direction { return p.dir }

// End returns the attached wire end, or nil.
func (p *Port) End() *netlist.WireEnd { return p.end }

// Net returns the runtime net during a run, or nil when unconnected.
func (p *Port) Net() *Net { return p.net }

// Width returns the declared width, or the net width for an unconstrained
// port once a run has started.
func (p *Port) Width() int {
	if p.width == 0 && p.net != nil {
		return p.net.Width()
	}
	return p.width
}

// Value returns the value on the port: the net value for inputs (unknown
// when unconnected) and the driven value for outputs.
func (p *Port) Value() signal.Value {
	if p.dir == Output {
		return p.value
	}
	if p.net == nil {
		return signal.Unknown(p.Width())
	}
	return p.net.Value()
}

// BitWidth implements netlist.Attachment.
func (p *Port) BitWidth() int { return p.width }

// IsDriver implements netlist.Attachment.
func (p *Port) IsDriver() bool { return p.dir == Output }

// IsTriState implements netlist.Attachment.
func (p *Port) IsTriState() bool { return p.triState }

func (p *Port) String() string {
	if p.owner == nil {
		return p.name
	}
	return p.owner.Name() + "." + p.name
}
