package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/anadon/JLS-sub002/sim/signal"
)

func TestRecorder_Record_CoalescesUnchangedValues(t *testing.T) {
	// GIVEN a recorder watching "q"
	r := NewRecorder()
	r.Watch("q")

	// WHEN the same value is reported several times
	r.Record("q", 0, signal.Unknown(1))
	r.Record("q", 1, signal.Unknown(1))
	r.Record("q", 5, signal.Bool(true))
	r.Record("q", 7, signal.Bool(true))
	r.Record("q", 9, signal.Bool(false))

	// THEN only the changes are kept
	h, ok := r.History("q")
	require.True(t, ok)
	want := []Sample{
		{0, signal.Unknown(1)},
		{5, signal.Bool(true)},
		{9, signal.Bool(false)},
	}
	assert.Equal(t, want, h.Samples)
}

func TestRecorder_Record_UnregisteredKeyIgnored(t *testing.T) {
	r := NewRecorder()
	if r.Record("nobody", 3, signal.Bool(true)) {
		t.Error("expected record for an unregistered key to be dropped")
	}
	if _, ok := r.History("nobody"); ok {
		t.Error("expected no history for an unregistered key")
	}
	if len(r.Keys()) != 0 {
		t.Errorf("expected no keys, got %v", r.Keys())
	}
}

func TestRecorder_Windowed_KeepsValueAtWindowStart(t *testing.T) {
	// GIVEN a windowed recorder showing 10 ticks
	r := NewRecorder()
	r.Watch("clk")
	r.Reset(ModeWindowed, 10)

	// WHEN a clock toggles every 4 ticks up to t=24
	for i := int64(0); i <= 6; i++ {
		r.Record("clk", i*4, signal.Bool(i%2 == 1))
	}

	// THEN samples before t=14 are dropped except the one in effect at 14
	h, _ := r.History("clk")
	times := make([]int64, 0, len(h.Samples))
	for _, s := range h.Samples {
		times = append(times, s.Time)
	}
	assert.Equal(t, []int64{12, 16, 20, 24}, times)
	assert.True(t, h.ValueAt(14).Equal(signal.Bool(true)))
}

func TestRecorder_Full_KeepsEverything(t *testing.T) {
	r := NewRecorder()
	r.Watch("clk")
	r.Reset(ModeFull, 10)
	for i := int64(0); i < 100; i++ {
		r.Record("clk", i, signal.Bool(i%2 == 0))
	}
	h, _ := r.History("clk")
	assert.Len(t, h.Samples, 100)
}

func TestRecorder_Reset_KeepsRegistrations(t *testing.T) {
	r := NewRecorder()
	r.Watch("a")
	r.Record("a", 1, signal.New(4, 3))
	r.Reset(ModeFull, 0)

	assert.True(t, r.IsWatched("a"))
	h, ok := r.History("a")
	assert.True(t, ok)
	assert.Empty(t, h.Samples)

	r.Unwatch("a")
	assert.False(t, r.IsWatched("a"))
}

func TestRecorder_History_ReturnsCopy(t *testing.T) {
	r := NewRecorder()
	r.Watch("a")
	r.Record("a", 1, signal.New(4, 3))
	h, _ := r.History("a")
	h.Samples[0].Time = 99

	again, _ := r.History("a")
	assert.Equal(t, int64(1), again.Samples[0].Time)
}

func TestHistory_ValueAt(t *testing.T) {
	h := History{Samples: []Sample{{2, signal.New(4, 1)}, {6, signal.New(4, 2)}}}
	assert.False(t, h.ValueAt(1).IsDefined())
	assert.Equal(t, uint64(1), h.ValueAt(2).Uint64())
	assert.Equal(t, uint64(1), h.ValueAt(5).Uint64())
	assert.Equal(t, uint64(2), h.ValueAt(100).Uint64())
}

func TestFormat_SentinelAndDecimals(t *testing.T) {
	assert.Equal(t, signal.HighZ, Format(Sample{Value: signal.Unknown(8)}, 16, true))
	assert.Equal(t, "ff (255, -1)", Format(Sample{Value: signal.New(8, 0xff)}, 16, true))
	assert.Equal(t, "11111111", Format(Sample{Value: signal.New(8, 0xff)}, 2, false))
}

func TestWriteYAML_RoundTripsKeysAndValues(t *testing.T) {
	r := NewRecorder()
	r.Watch("b")
	r.Watch("a")
	r.Record("a", 0, signal.Unknown(4))
	r.Record("a", 5, signal.New(4, 0xc))
	r.Record("b", 3, signal.Bool(true))

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, r.Snapshot(), 16))

	var got []struct {
		Key     string `yaml:"key"`
		Samples []struct {
			Time  int64  `yaml:"time"`
			Value string `yaml:"value"`
		} `yaml:"samples"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	require.Len(t, got[0].Samples, 2)
	assert.Equal(t, signal.HighZ, got[0].Samples[0].Value)
	assert.Equal(t, "c", got[0].Samples[1].Value)
	assert.Equal(t, int64(5), got[0].Samples[1].Time)
	assert.Equal(t, "b", got[1].Key)
}

func TestIsValidMode(t *testing.T) {
	tests := []struct {
		mode  string
		valid bool
	}{
		{"full", true},
		{"windowed", true},
		{"", true}, // empty defaults to full
		{"FULL", false},
		{"rolling", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			if got := IsValidMode(tt.mode); got != tt.valid {
				t.Errorf("IsValidMode(%q) = %v, want %v", tt.mode, got, tt.valid)
			}
		})
	}
}
