package logic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/internal/testutil"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// goldenFixture builds a circuit and returns what to watch and probe.
type goldenFixture func(t *testing.T) (*sim.Circuit, []sim.Element, []*sim.Port)

var goldenFixtures = map[string]goldenFixture{
	"and-delay": func(t *testing.T) (*sim.Circuit, []sim.Element, []*sim.Port) {
		c, and := andCircuit(t)
		return c, []sim.Element{and}, nil
	},
	"clock": func(t *testing.T) (*sim.Circuit, []sim.Element, []*sim.Port) {
		c := sim.NewCircuit("clock")
		clk, err := NewClock("clk", 2, 3, 2)
		require.NoError(t, err)
		c.MustAdd(clk)
		return c, []sim.Element{clk}, nil
	},
	"register": func(t *testing.T) (*sim.Circuit, []sim.Element, []*sim.Port) {
		c := sim.NewCircuit("register")
		clk, err := NewClock("clk", 5, 5, 1)
		require.NoError(t, err)
		d := NewConstant("d", signal.New(8, 0x2a))
		reg, err := NewRegister("reg", 8, 1)
		require.NoError(t, err)
		c.MustAdd(clk, d, reg)
		wire(t, c, "clk", clk.Out, reg.Clk)
		wire(t, c, "d", d.Out, reg.D)
		wire(t, c, "q", reg.Q)
		return c, []sim.Element{reg}, []*sim.Port{reg.Q}
	},
	"stop": func(t *testing.T) (*sim.Circuit, []sim.Element, []*sim.Port) {
		c := sim.NewCircuit("stop")
		clk, err := NewClock("clk", 1, 4, 0)
		require.NoError(t, err)
		stop := NewStop("stop")
		c.MustAdd(clk, stop)
		wire(t, c, "w", clk.Out, stop.In)
		return c, []sim.Element{clk}, nil
	},
}

func TestGoldenTraces(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, dataset.Tests)

	for _, tc := range dataset.Tests {
		t.Run(tc.Circuit, func(t *testing.T) {
			build, ok := goldenFixtures[tc.Circuit]
			require.True(t, ok, "no fixture named %q", tc.Circuit)
			c, watch, probes := build(t)

			cfg := sim.DefaultConfig()
			if tc.TimeLimit > 0 {
				cfg.TimeLimit = tc.TimeLimit
			} else {
				cfg.TimeLimit = math.MaxInt64
			}
			s := sim.NewSimulator(cfg)
			require.NoError(t, s.SetCircuit(c))
			for _, e := range watch {
				s.SetWatched(e, true)
			}
			for _, p := range probes {
				s.SetProbed(p, true)
			}

			_, r := runSimulator(t, s)

			assert.Equal(t, sim.Reason(tc.Reason), r.Reason)
			assert.Equal(t, tc.FinalTime, r.Now)
			for key, want := range tc.Traces {
				h, ok := s.History(key)
				require.True(t, ok, "no history for %s", key)
				testutil.AssertHistory(t, key, want, h)
			}
		})
	}
}
