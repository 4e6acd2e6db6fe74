// Package logic is a small catalog of simulated elements: constant sources,
// combinational gates, a clock, a tri-state buffer, a register and a stop
// element, plus the tag registry loaders use to build them by name.
package logic

import (
	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// part holds what every catalog element shares.
type part struct {
	name  string
	ports []*sim.Port
}

func (p *part) Name() string        { return p.name }
func (p *part) Ports() []*sim.Port  { return p.ports }
func (p *part) String() string      { return p.name }
func (p *part) add(ps ...*sim.Port) { p.ports = append(p.ports, ps...) }

// update applies a computed output value. It carries its due time so two
// pending updates of one element never coalesce into each other.
type update struct {
	at    int64
	value signal.Value
}

// schedule posts v to be driven on the element's output after delay.
func schedule(eng sim.Engine, target sim.Reactive, delay int64, v signal.Value) {
	at := eng.Now() + delay
	eng.Post(sim.Event{Time: at, Target: target, Payload: update{at: at, value: v}})
}
