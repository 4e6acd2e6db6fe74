// Package testutil provides shared test infrastructure for the simulator:
// the golden trace dataset and helpers to compare recorded histories with it.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/anadon/JLS-sub002/sim/trace"
)

// GoldenDataset represents the structure of testdata/golden_traces.yaml.
type GoldenDataset struct {
	Tests []GoldenTestCase `yaml:"tests"`
}

// GoldenTestCase is one fixture circuit run and its expected outcome.
type GoldenTestCase struct {
	Circuit   string                    `yaml:"circuit"`    // fixture name known to the test package
	TimeLimit int64                     `yaml:"time_limit"` // 0 means no limit
	Reason    string                    `yaml:"reason"`
	FinalTime int64                     `yaml:"final_time"`
	Traces    map[string][]GoldenSample `yaml:"traces"` // keyed by element or port name
}

// GoldenSample is an expected value change, rendered in base 16 or as HiZ.
type GoldenSample struct {
	Time  int64  `yaml:"time"`
	Value string `yaml:"value"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_traces.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}

// AssertHistory compares a recorded history with the expected samples.
func AssertHistory(t *testing.T, name string, want []GoldenSample, got trace.History) {
	t.Helper()
	if len(got.Samples) != len(want) {
		t.Errorf("%s: got %d samples %v, want %d", name, len(got.Samples), got.Samples, len(want))
		return
	}
	for i, w := range want {
		s := got.Samples[i]
		if v := trace.Format(s, 16, false); s.Time != w.Time || v != w.Value {
			t.Errorf("%s[%d]: got %s at %d, want %s at %d", name, i, v, s.Time, w.Value, w.Time)
		}
	}
}
