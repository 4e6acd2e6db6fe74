package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anadon/JLS-sub002/sim/netlist"
	"github.com/anadon/JLS-sub002/sim/signal"
	"github.com/anadon/JLS-sub002/sim/trace"
)

// driverCircuit is a 4-bit source feeding a watched sink: 3 at time 0,
// 9 at time 10.
func driverCircuit(t *testing.T) (*Circuit, *source, *sink) {
	t.Helper()
	c := NewCircuit("driver")
	src := newSource("src", 4, signal.New(4, 3), set{at: 10, value: signal.New(4, 9)})
	snk := newSink("snk", 0)
	c.MustAdd(src, snk)
	mustWire(t, c, "w", src.out, snk.in)
	return c, src, snk
}

func TestBatchRun_NoDriversEndsWithNoActivity(t *testing.T) {
	// GIVEN a circuit with readers but no driver anywhere
	c := NewCircuit("undriven")
	a, b, lone := newSink("a", 1), newSink("b", 1), newSink("lone", 1)
	c.MustAdd(a, b, lone)
	mustWire(t, c, "w", a.in, b.in)
	_, err := c.Wire("stub", lone.in)
	require.NoError(t, err)
	ctl := NewBatchController(newTestSimulator(t, c))

	// WHEN the circuit is run
	r, err := ctl.Run(context.Background())

	// THEN it ends at once and every net reads unknown
	require.NoError(t, err)
	assert.Equal(t, ReasonNoActivity, r.Reason)
	assert.Equal(t, int64(0), r.Now)
	assert.Equal(t, int64(0), r.Dispatched)
	assert.Equal(t, Complete, ctl.State())
	require.Len(t, ctl.Simulator().Nets(), 2)
	for _, n := range ctl.Simulator().Nets() {
		assert.False(t, n.Value().IsDefined(), "%s", n.Wire())
	}
	assert.Equal(t, signal.HighZ, a.in.Value().Text(16))
}

func TestBatchRun_PropagatesDriverChanges(t *testing.T) {
	// GIVEN a watched sink and a probe on its input
	c, _, snk := driverCircuit(t)
	s := newTestSimulator(t, c)
	s.SetWatched(snk, true)
	s.SetProbed(snk.in, true)

	// WHEN run to completion
	r, err := NewBatchController(s).Run(context.Background())

	// THEN the sink reacts at 0 and 10 and both traces hold the two values
	require.NoError(t, err)
	assert.Equal(t, ReasonNoActivity, r.Reason)
	assert.Equal(t, int64(10), r.Now)
	assert.Equal(t, int64(3), r.Dispatched)
	assert.Equal(t, []int64{0, 10}, snk.at)
	assert.Equal(t, 4, snk.in.Width(), "unconstrained port takes the net width")

	for _, key := range []string{"snk", "snk.in"} {
		h, ok := s.History(key)
		require.True(t, ok, key)
		require.Len(t, h.Samples, 2, key)
		assert.Equal(t, int64(0), h.Samples[0].Time)
		assert.True(t, h.Samples[0].Value.Equal(signal.New(4, 3)))
		assert.Equal(t, int64(10), h.Samples[1].Time)
		assert.True(t, h.Samples[1].Value.Equal(signal.New(4, 9)))
	}
	assert.True(t, s.IsWatched(snk))
}

func TestBatchRun_TimeLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		wantReason Reason
		wantNow    int64
		wantLast   uint64
	}{
		{name: "event beyond limit is not dispatched", limit: 5, wantReason: ReasonTimeLimit, wantNow: 5, wantLast: 3},
		{name: "event at limit is dispatched", limit: 10, wantReason: ReasonNoActivity, wantNow: 10, wantLast: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, snk := driverCircuit(t)
			s := newTestSimulator(t, c, func(cfg *Config) { cfg.TimeLimit = tt.limit })

			r, err := NewBatchController(s).Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantReason, r.Reason)
			assert.Equal(t, tt.wantNow, r.Now)
			assert.Equal(t, tt.wantLast, snk.in.Value().Uint64())
		})
	}
}

func TestBatchRun_TopologyErrorAbortsBeforeDispatch(t *testing.T) {
	// GIVEN an 8-bit driver linked to a 4-bit reader without edit-time checks
	c := NewCircuit("bad")
	src := newSource("src", 8, signal.New(8, 1))
	snk := newSink("snk", 4)
	c.MustAdd(src, snk)
	_, err := c.Link("w", src.out, snk.in)
	require.NoError(t, err)
	ctl := NewBatchController(newTestSimulator(t, c))

	// WHEN the run starts
	_, err = ctl.Run(context.Background())

	// THEN the width mismatch is reported and nothing was initialized
	require.Error(t, err)
	assert.ErrorIs(t, err, netlist.ErrWidthMismatch)
	assert.Equal(t, 0, src.inits)
	assert.Equal(t, Idle, ctl.State())
	assert.Nil(t, ctl.Simulator().Nets())
}

func TestBatchRun_StrictTriStateRejectsMixedDrivers(t *testing.T) {
	c := NewCircuit("mixed")
	reg := newSource("reg", 1, signal.Unknown(1))
	tri := newTriSource("tri", 1, signal.Unknown(1))
	c.MustAdd(reg, tri)
	mustWire(t, c, "bus", reg.out, tri.out)

	lenient := newTestSimulator(t, c)
	_, err := NewBatchController(lenient).Run(context.Background())
	require.NoError(t, err)

	strict := newTestSimulator(t, c, func(cfg *Config) { cfg.StrictTriState = true })
	_, err = NewBatchController(strict).Run(context.Background())
	assert.ErrorIs(t, err, netlist.ErrMixedDrivers)
}

func TestBatchRun_BusContentionAborts(t *testing.T) {
	// GIVEN two tri-state drivers that both drive by time 5
	c := NewCircuit("bus")
	t1 := newTriSource("t1", 1, signal.Unknown(1))
	t1.changes = []set{{at: 3, value: signal.Bool(true)}}
	t2 := newTriSource("t2", 1, signal.Unknown(1))
	t2.changes = []set{{at: 5, value: signal.Bool(false)}}
	snk := newSink("snk", 1)
	c.MustAdd(t1, t2, snk)
	mustWire(t, c, "bus", t1.out, t2.out, snk.in)
	ctl := NewBatchController(newTestSimulator(t, c))

	// WHEN run
	r, err := ctl.Run(context.Background())

	// THEN the run aborts at 5 with the contention reported
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusContention)
	assert.Equal(t, ReasonAborted, r.Reason)
	assert.Equal(t, int64(5), r.Now)
	assert.Equal(t, Stopped, ctl.State())
}

func TestBatchRun_FinishCompletes(t *testing.T) {
	c := NewCircuit("finish")
	src := newSource("src", 1, signal.Bool(false),
		set{at: 4, value: signal.Bool(true)},
		set{at: 20, value: signal.Bool(false)})
	stop := newSink("stop", 1)
	stop.finish = true
	c.MustAdd(src, stop)
	mustWire(t, c, "w", src.out, stop.in)

	r, err := NewBatchController(newTestSimulator(t, c)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, r.Reason)
	assert.Equal(t, int64(4), r.Now)
}

func TestBatchRun_CancelledContextIsUserStop(t *testing.T) {
	c, _, snk := driverCircuit(t)
	ctl := NewBatchController(newTestSimulator(t, c))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := ctl.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, ReasonUserStopped, r.Reason)
	assert.Equal(t, int64(0), r.Dispatched)
	assert.Empty(t, snk.at)
	assert.Equal(t, Stopped, ctl.State())
}

func TestBatchRun_StopFromReaction(t *testing.T) {
	c := NewCircuit("stop")
	tog := newToggler("tog", 2)
	c.MustAdd(tog)
	s := newTestSimulator(t, c)
	ctl := NewBatchController(s)
	stopper := reactFunc(func(int64, Engine, any) error {
		ctl.Stop()
		return nil
	})
	s.Post(Event{Time: 7, Target: stopper})

	r, err := ctl.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ReasonUserStopped, r.Reason)
	assert.Equal(t, int64(7), r.Now)
}

func TestBatchRun_PostIntoPastAborts(t *testing.T) {
	c := NewCircuit("past")
	s := newTestSimulator(t, c)
	bad := reactFunc(func(now int64, eng Engine, _ any) error {
		eng.Post(Event{Time: now - 1, Target: &named{"late"}})
		return nil
	})
	s.Post(Event{Time: 2, Target: bad})

	r, err := NewBatchController(s).Run(context.Background())

	assert.ErrorIs(t, err, ErrClockBackwards)
	assert.Equal(t, ReasonAborted, r.Reason)
}

func TestBatchRun_ReactErrorAborts(t *testing.T) {
	c := NewCircuit("boom")
	s := newTestSimulator(t, c)
	boom := errors.New("boom")
	s.Post(Event{Time: 1, Target: reactFunc(func(int64, Engine, any) error { return boom })})

	r, err := NewBatchController(s).Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Same(t, boom, errors.Unwrap(err))
	assert.Equal(t, ReasonAborted, r.Reason)
	assert.Equal(t, int64(1), r.Now)
}

func TestBatchRun_NoCircuit(t *testing.T) {
	ctl := NewBatchController(NewSimulator(DefaultConfig()))
	_, err := ctl.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoCircuit)
	assert.Equal(t, Idle, ctl.State())
}

func TestBatchRun_RepeatedRunsAreIdentical(t *testing.T) {
	c, _, snk := driverCircuit(t)
	s := newTestSimulator(t, c)
	s.SetWatched(snk, true)
	ctl := NewBatchController(s)

	first, err := ctl.Run(context.Background())
	require.NoError(t, err)
	h1, _ := s.History("snk")
	second, err := ctl.Run(context.Background())
	require.NoError(t, err)
	h2, _ := s.History("snk")

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.Dispatched, second.Dispatched)
	assert.Equal(t, h1, h2)
}

func TestDrive_RejectsInputsAndWrongWidths(t *testing.T) {
	c, src, snk := driverCircuit(t)
	s := newTestSimulator(t, c)
	require.NoError(t, s.begin(uuid.New(), trace.ModeFull, 0))
	defer s.end(outcomeDrained, nil)

	assert.ErrorIs(t, s.eng.Drive(snk.in, signal.Bool(true)), ErrNotOutput)
	assert.ErrorIs(t, s.eng.Drive(src.out, signal.New(8, 1)), ErrWidthMismatch)
}

// pair reads two inputs and records the instants it reacted at.
type pair struct {
	a, b *Port
	at   []int64
}

func newPair() *pair {
	p := &pair{}
	p.a = NewInput(p, "a", 1)
	p.b = NewInput(p, "b", 1)
	return p
}

func (p *pair) Name() string         { return "pair" }
func (p *pair) Ports() []*Port       { return []*Port{p.a, p.b} }
func (p *pair) InitSim(Engine) error { return nil }
func (p *pair) React(now int64, _ Engine, _ any) error {
	p.at = append(p.at, now)
	return nil
}

func TestBatchRun_SimultaneousInputChangesReactOnce(t *testing.T) {
	// GIVEN two nets feeding one element, both changing at 0 and at 5
	c := NewCircuit("pair")
	s1 := newSource("s1", 1, signal.Bool(false), set{at: 5, value: signal.Bool(true)})
	s2 := newSource("s2", 1, signal.Bool(false), set{at: 5, value: signal.Bool(true)})
	p := newPair()
	c.MustAdd(s1, s2, p)
	mustWire(t, c, "a", s1.out, p.a)
	mustWire(t, c, "b", s2.out, p.b)

	// WHEN run
	r, err := NewBatchController(newTestSimulator(t, c)).Run(context.Background())

	// THEN the second change of each instant is coalesced into the first
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 5}, p.at)
	assert.Equal(t, int64(2), r.Coalesced)
	assert.Equal(t, int64(4), r.Dispatched, "two source updates and two reactions")
	assert.Equal(t, ReasonNoActivity, r.Reason)
}
