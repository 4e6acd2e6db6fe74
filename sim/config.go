package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anadon/JLS-sub002/sim/trace"
)

// Config groups the run parameters shared by the batch and interactive
// controllers. Zero values are not meaningful; start from DefaultConfig.
type Config struct {
	TimeLimit      int64         `yaml:"time_limit"`      // last instant that may be dispatched
	TraceWindow    int64         `yaml:"trace_window"`    // interactive history width in ticks (0 = unbounded)
	TraceMode      string        `yaml:"trace_mode"`      // "full", "windowed", or empty for the controller default
	StrictTriState bool          `yaml:"strict_tristate"` // reject nets mixing a regular driver with tri-state drivers
	StartPaused    bool          `yaml:"start_paused"`    // interactive runs wait for Resume or Step before dispatching
	AnimatePeriod  time.Duration `yaml:"animate_period"`  // wall-clock period between animation steps
	StepSize       int64         `yaml:"step_size"`       // ticks advanced by one animation step
}

// DefaultConfig returns a configuration with no time limit.
func DefaultConfig() Config {
	return Config{
		TimeLimit:     math.MaxInt64,
		TraceWindow:   1000,
		AnimatePeriod: 100 * time.Millisecond,
		StepSize:      1,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be non-negative, got %d", c.TimeLimit)
	}
	if c.TraceWindow < 0 {
		return fmt.Errorf("trace_window must be non-negative, got %d", c.TraceWindow)
	}
	if !trace.IsValidMode(c.TraceMode) {
		return fmt.Errorf("unknown trace_mode %q; valid options: full, windowed", c.TraceMode)
	}
	if c.AnimatePeriod <= 0 {
		return fmt.Errorf("animate_period must be positive, got %s", c.AnimatePeriod)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("step_size must be positive, got %d", c.StepSize)
	}
	return nil
}

// traceRetention picks the recorder mode for a run. Without an explicit
// TraceMode, interactive runs are windowed and batch runs keep everything.
// A zero TraceWindow always means full history.
func (c Config) traceRetention(interactive bool) (trace.Mode, int64) {
	windowed := interactive
	if c.TraceMode != "" {
		windowed = trace.Mode(c.TraceMode) == trace.ModeWindowed
	}
	if !windowed || c.TraceWindow == 0 {
		return trace.ModeFull, 0
	}
	return trace.ModeWindowed, c.TraceWindow
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading simulation config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing simulation config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid simulation config %s: %w", path, err)
	}
	return cfg, nil
}
