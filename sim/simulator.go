// sim/simulator.go
package sim

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anadon/JLS-sub002/sim/netlist"
	"github.com/anadon/JLS-sub002/sim/signal"
	"github.com/anadon/JLS-sub002/sim/trace"
)

// outcome is why runUntil returned control to its controller.
type outcome int

const (
	outcomeDrained     outcome = iota // queue empty
	outcomeBound                      // next event lies beyond the bound
	outcomeFinished                   // an element called Finish
	outcomeInterrupted                // the controller asked to stop or pause
)

// Simulator is the event-driven engine shared by the batch and interactive
// controllers. It owns the event queue, the simulated clock and the runtime
// nets of the loaded circuit. Elements reach it through the Engine handed to
// InitSim and React, which is only valid on the dispatching goroutine.
//
// Outside a run, only the exported setup methods may be called. During a run
// the queue and nets belong to the goroutine dispatching events; the clock
// and the recorder may be read from any goroutine.
type Simulator struct {
	cfg      Config
	topo     Topology
	eng      *engine
	queue    *EventQueue
	clock    atomic.Int64
	busy     atomic.Bool
	recorder *trace.Recorder

	mu     sync.Mutex
	probed map[*Port]bool
	staged []Event

	nets       []*Net
	finished   bool
	fault      error
	dispatched int64
	coalesced  int64
	runID      uuid.UUID
	log        *logrus.Entry
}

// NewSimulator creates an engine with no circuit loaded.
func NewSimulator(cfg Config) *Simulator {
	s := &Simulator{
		cfg:      cfg,
		queue:    NewEventQueue(),
		recorder: trace.NewRecorder(),
		probed:   make(map[*Port]bool),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	s.eng = &engine{s: s}
	return s
}

// Config returns the run configuration.
func (s *Simulator) Config() Config { return s.cfg }

// SetConfig replaces the configuration used by the next run.
func (s *Simulator) SetConfig(cfg Config) error {
	if s.busy.Load() {
		return ErrAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// SetCircuit loads the topology simulated by the next run. Events staged
// for the previous circuit are dropped.
func (s *Simulator) SetCircuit(t Topology) error {
	if s.busy.Load() {
		return ErrAlreadyRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topo = t
	s.staged = nil
	s.nets = nil
	for p := range s.probed {
		s.recorder.Unwatch(p.String())
	}
	clear(s.probed)
	return nil
}

// Circuit returns the loaded topology, or nil.
func (s *Simulator) Circuit() Topology { return s.topo }

// SetWatched adds or removes an element from the trace.
func (s *Simulator) SetWatched(e Element, watched bool) {
	if watched {
		s.recorder.Watch(e.Name())
	} else {
		s.recorder.Unwatch(e.Name())
	}
}

// IsWatched reports whether e is traced.
func (s *Simulator) IsWatched(e Element) bool {
	return s.recorder.IsWatched(e.Name())
}

// SetProbed adds or removes a probe on the net p is attached to. The probe
// history is keyed by the port name and takes effect at the next run.
func (s *Simulator) SetProbed(p *Port, probed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if probed {
		s.probed[p] = true
		s.recorder.Watch(p.String())
	} else {
		delete(s.probed, p)
		s.recorder.Unwatch(p.String())
	}
}

// History returns the samples recorded for a watched element name or a
// probed port name.
func (s *Simulator) History(key string) (trace.History, bool) {
	return s.recorder.History(key)
}

// Histories returns every recorded history ordered by key.
func (s *Simulator) Histories() []trace.History {
	return s.recorder.Snapshot()
}

// Nets returns the runtime nets built by the most recent run.
func (s *Simulator) Nets() []*Net { return s.nets }

// Now returns the simulated time. It is safe to call from any goroutine.
func (s *Simulator) Now() int64 { return s.clock.Load() }

// Post stages an external event while no run is active; it is enqueued
// after the next run's InitSim calls. During a run the queue belongs to the
// worker, so the event is refused and false returned: use
// InteractiveController.Inject on a paused run instead.
func (s *Simulator) Post(ev Event) bool {
	if s.busy.Load() {
		logrus.Warnf("[tick %07d] Post for %s refused during a run", s.Now(), targetName(ev.Target))
		return false
	}
	s.mu.Lock()
	s.staged = append(s.staged, ev)
	s.mu.Unlock()
	return true
}

var _ Engine = (*engine)(nil)

// engine is the Engine handed to elements. Its methods run on the goroutine
// that owns the run.
type engine struct {
	s *Simulator
}

func (e *engine) Now() int64 { return e.s.Now() }

// Post enqueues ev; an event earlier than now aborts the run with
// ErrClockBackwards.
func (e *engine) Post(ev Event) bool {
	s := e.s
	if ev.Time < s.Now() {
		s.fail(fmt.Errorf("%w: %s for t=%d at t=%d", ErrClockBackwards, targetName(ev.Target), ev.Time, s.Now()))
		return false
	}
	return s.enqueue(ev)
}

func (e *engine) PostAfter(delay int64, target Reactive, payload any) bool {
	return e.Post(Event{Time: e.s.Now() + delay, Target: target, Payload: payload})
}

func (e *engine) Drive(p *Port, v signal.Value) error { return e.s.drive(p, v) }

// Finish ends the run with ReasonCompleted after the current dispatch.
func (e *engine) Finish() { e.s.finished = true }

// inject posts an event from outside the dispatch loop; a time in the past
// is refused without aborting the run.
func (s *Simulator) inject(ev Event) error {
	if ev.Time < s.Now() {
		return fmt.Errorf("%w: %s for t=%d at t=%d", ErrClockBackwards, targetName(ev.Target), ev.Time, s.Now())
	}
	s.enqueue(ev)
	return nil
}

func (s *Simulator) enqueue(ev Event) bool {
	if !s.queue.Post(ev) {
		s.coalesced++
		eventsCoalesced.Inc()
		return false
	}
	return true
}

// drive re-resolves the net of p and, when its value changes, gives every
// element reading it an InputsChanged reaction at now.
func (s *Simulator) drive(p *Port, v signal.Value) error {
	if p.dir != Output {
		return fmt.Errorf("driving %s: %w", p, ErrNotOutput)
	}
	if v.IsDefined() && p.Width() != 0 && v.Width() != p.Width() {
		err := fmt.Errorf("%w: %s is %d bits, driven with %d", ErrWidthMismatch, p, p.Width(), v.Width())
		s.fail(err)
		return err
	}
	p.value = v
	n := p.net
	if n == nil {
		return nil
	}
	nv, err := n.resolve()
	if err != nil {
		s.fail(err)
		return err
	}
	if nv.Equal(n.value) {
		return nil
	}
	n.value = nv
	now := s.Now()
	for _, key := range n.probes {
		s.recorder.Record(key, now, nv)
	}
	for _, r := range n.readers {
		s.enqueue(Event{Time: now, Target: r.owner, Payload: InputsChanged{}})
	}
	return nil
}

func (s *Simulator) fail(err error) {
	if s.fault == nil {
		s.fault = err
	}
}

// begin validates the topology and prepares a run: nets are partitioned,
// runtime nets built, the recorder reset and every element initialized.
// On error nothing was dispatched and the simulator is idle again.
func (s *Simulator) begin(runID uuid.UUID, mode trace.Mode, window int64) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := s.prepare(runID, mode, window); err != nil {
		s.queue.Clear()
		s.busy.Store(false)
		return err
	}
	return nil
}

func (s *Simulator) prepare(runID uuid.UUID, mode trace.Mode, window int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topo == nil {
		return ErrNoCircuit
	}
	s.runID = runID
	s.log = logrus.WithField("run", runID.String())

	g := s.topo.Graph()
	g.SetStrictTriState(s.cfg.StrictTriState)
	wires, err := g.Partition()
	if err != nil {
		topologyErrors.Inc()
		s.nets = nil
		return fmt.Errorf("validating circuit: %w", err)
	}
	s.bind(wires)

	s.queue.Clear()
	s.clock.Store(0)
	s.finished = false
	s.fault = nil
	s.dispatched, s.coalesced = 0, 0
	s.recorder.Reset(mode, window)

	elements := s.topo.Elements()
	for _, e := range elements {
		if err := e.InitSim(s.eng); err != nil {
			return fmt.Errorf("initializing %s: %w", e.Name(), err)
		}
		if s.fault != nil {
			return fmt.Errorf("initializing %s: %w", e.Name(), s.fault)
		}
	}
	for _, ev := range s.staged {
		if ev.Time < 0 {
			return fmt.Errorf("%w: staged %s for t=%d", ErrClockBackwards, targetName(ev.Target), ev.Time)
		}
		s.enqueue(ev)
	}
	s.staged = nil

	for _, e := range elements {
		s.sample(e)
	}
	for _, n := range s.nets {
		for _, key := range n.probes {
			s.recorder.Record(key, 0, n.value)
		}
	}
	s.log.Infof("[tick %07d] Simulation started: %d elements, %d nets, %d events pending",
		0, len(elements), len(s.nets), s.queue.Len())
	return nil
}

// bind builds one runtime Net per wire net and points every attached port
// at it. Output ports start released (unknown).
func (s *Simulator) bind(wires []*netlist.WireNet) {
	byWire := make(map[*netlist.WireNet]*Net, len(wires))
	s.nets = make([]*Net, 0, len(wires))
	for _, w := range wires {
		n := newNet(w)
		byWire[w] = n
		s.nets = append(s.nets, n)
	}
	for _, e := range s.topo.Elements() {
		for _, p := range e.Ports() {
			p.net = nil
			if p.end != nil {
				p.net = byWire[p.end.Net()]
			}
			p.value = signal.Unknown(p.Width())
			if p.net == nil {
				continue
			}
			if p.dir == Output {
				p.net.drivers = append(p.net.drivers, p)
			} else {
				p.net.readers = append(p.net.readers, p)
			}
			if s.probed[p] {
				p.net.probes = append(p.net.probes, p.String())
			}
		}
	}
}

// runUntil dispatches events in (time, sequence) order while their time is
// within bound. When the next event lies beyond bound, the clock is clamped
// to bound without dispatching it.
func (s *Simulator) runUntil(bound int64, interrupted func() bool) (outcome, error) {
	for {
		if interrupted() {
			return outcomeInterrupted, nil
		}
		if s.finished {
			return outcomeFinished, nil
		}
		ev, ok := s.queue.Peek()
		if !ok {
			return outcomeDrained, nil
		}
		if ev.Time > bound {
			s.clock.Store(bound)
			return outcomeBound, nil
		}
		s.queue.Poll()
		if err := s.dispatch(ev); err != nil {
			return outcomeInterrupted, err
		}
	}
}

func (s *Simulator) dispatch(ev Event) error {
	if ev.Time < s.Now() {
		return fmt.Errorf("%w: %s", ErrClockBackwards, ev)
	}
	s.clock.Store(ev.Time)
	s.dispatched++
	eventsDispatched.Inc()
	s.log.Debugf("[tick %07d] Executing %T on %s", ev.Time, ev.Payload, targetName(ev.Target))
	if err := ev.Target.React(ev.Time, s.eng, ev.Payload); err != nil {
		return fmt.Errorf("%s at t=%d: %w", targetName(ev.Target), ev.Time, err)
	}
	if s.fault != nil {
		return fmt.Errorf("%s at t=%d: %w", targetName(ev.Target), ev.Time, s.fault)
	}
	if e, ok := ev.Target.(Element); ok {
		s.sample(e)
	}
	return nil
}

// sample records the traced value of a watched element.
func (s *Simulator) sample(e Element) {
	if !s.recorder.IsWatched(e.Name()) {
		return
	}
	if v, ok := tracedValue(e); ok {
		s.recorder.Record(e.Name(), s.Now(), v)
	}
}

// tracedValue is the Valued value, or the value of the first output port.
func tracedValue(e Element) (signal.Value, bool) {
	if v, ok := e.(Valued); ok {
		return v.Value(), true
	}
	for _, p := range e.Ports() {
		if p.dir == Output {
			return p.Value(), true
		}
	}
	return signal.Value{}, false
}

// end closes the run and reports its result.
func (s *Simulator) end(o outcome, err error) Result {
	r := Result{
		RunID:      s.runID,
		Reason:     reasonFor(o, err),
		Now:        s.Now(),
		Dispatched: s.dispatched,
		Coalesced:  s.coalesced,
		Err:        err,
	}
	pending := s.queue.Len()
	s.queue.Clear()
	s.busy.Store(false)
	runsFinished.WithLabelValues(string(r.Reason)).Inc()
	if err != nil {
		s.log.Errorf("[tick %07d] Simulation aborted: %v", r.Now, err)
	} else {
		s.log.WithField("pending", pending).Infof("[tick %07d] Simulation ended: %s", r.Now, r.Reason)
	}
	return r
}

func targetName(r Reactive) string {
	if e, ok := r.(Element); ok {
		return e.Name()
	}
	return fmt.Sprintf("%T", r)
}
