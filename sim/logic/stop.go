package logic

import "github.com/anadon/JLS-sub002/sim"

// Stop ends the run when its input goes high.
//
//	Inputs: in
//	Function: finish the simulation when in = 1
type Stop struct {
	part
	In *sim.Port
}

// NewStop returns a stop element.
func NewStop(name string) *Stop {
	s := &Stop{part: part{name: name}}
	s.In = sim.NewInput(s, "in", 1)
	s.add(s.In)
	return s
}

// InitSim does nothing; the element only reacts to its input.
func (s *Stop) InitSim(sim.Engine) error { return nil }

// React requests completion on a high input.
func (s *Stop) React(_ int64, eng sim.Engine, _ any) error {
	if bit, ok := s.In.Value().Bit(0); ok && bit {
		eng.Finish()
	}
	return nil
}
