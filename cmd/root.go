package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/logic"
)

var (
	// CLI flags shared by run and interactive
	logLevel       string        // Log verbosity level
	configPath     string        // YAML simulation config
	circuitPath    string        // YAML circuit description
	timeLimit      int64         // Last tick that may be dispatched
	traceWindow    int64         // Interactive trace width in ticks
	traceMode      string        // Trace retention: full, windowed, or controller default
	strictTriState bool          // Reject nets mixing regular and tri-state drivers
	outputBase     int           // Base for rendered values (2, 8, 10, 16)
	withDecimal    bool          // Add unsigned/signed decimal to rendered values
	traceOut       string        // YAML trace output path
	metricsAddr    string        // Address for the Prometheus /metrics endpoint
	animatePeriod  time.Duration // Interactive animation period
	stepSize       int64         // Interactive default step in ticks
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "logicsim",
	Short: "Event-driven digital logic simulator",
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// validBases are the bases values can be rendered in.
var validBases = map[int]bool{2: true, 8: true, 10: true, 16: true}

// buildConfig layers explicitly set flags over the config file or defaults.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.TimeLimit = timeLimit
	}
	if flags.Changed("trace-window") {
		cfg.TraceWindow = traceWindow
	}
	if flags.Changed("trace-mode") {
		cfg.TraceMode = traceMode
	}
	if flags.Changed("strict-tristate") {
		cfg.StrictTriState = strictTriState
	}
	if flags.Changed("animate-period") {
		cfg.AnimatePeriod = animatePeriod
	}
	if flags.Changed("step") {
		cfg.StepSize = stepSize
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}
	if !validBases[outputBase] {
		return cfg, fmt.Errorf("invalid flags: unknown base %d; valid options: 2, 8, 10, 16", outputBase)
	}
	return cfg, nil
}

// newSimulator loads the circuit named by --circuit into a configured engine.
func newSimulator(cfg sim.Config, path string) (*sim.Simulator, error) {
	if path == "" {
		return nil, fmt.Errorf("circuit file not provided")
	}
	f, err := loadCircuitFile(path)
	if err != nil {
		return nil, err
	}
	c, err := f.Build(logic.DefaultRegistry())
	if err != nil {
		return nil, err
	}
	s := sim.NewSimulator(cfg)
	if err := s.SetCircuit(c); err != nil {
		return nil, err
	}
	if err := f.Apply(s, c); err != nil {
		return nil, err
	}
	logrus.Infof("Loaded circuit %s: %d elements, %d wire segments", c.Name, len(c.Elements()), len(c.Graph().Segments()))
	return s, nil
}

// report prints the outcome and writes the trace file.
func report(s *sim.Simulator, r sim.Result) {
	printResult(os.Stdout, r)
	hs := s.Histories()
	if len(hs) > 0 {
		printTraces(os.Stdout, hs, outputBase, withDecimal)
	}
	if err := writeTraceFile(traceOut, hs, outputBase); err != nil {
		logrus.Fatalf("%v", err)
	}
}

// runCmd executes a circuit in batch mode
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a circuit until it stops",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s, err := newSimulator(cfg, circuitPath)
		if err != nil {
			logrus.Fatalf("Cannot load circuit: %v", err)
		}
		serveMetrics(metricsAddr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		startTime := time.Now()
		ctl := sim.NewBatchController(s)
		r, err := ctl.Run(ctx)
		if err != nil && ctl.State() == sim.Idle {
			logrus.Fatalf("Cannot start simulation: %v", err)
		}
		report(s, r)
		logrus.Infof("Simulation finished in %s", time.Since(startTime))
		if r.Err != nil {
			os.Exit(1)
		}
	},
}

// interactiveCmd runs a circuit under stdin control
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Step, animate, pause and resume a circuit from stdin commands",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg.StartPaused = true
		s, err := newSimulator(cfg, circuitPath)
		if err != nil {
			logrus.Fatalf("Cannot load circuit: %v", err)
		}
		serveMetrics(metricsAddr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctl := sim.NewInteractiveController(s)
		tty := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		r, err := runInteractive(ctx, ctl, os.Stdin, os.Stdout, outputBase, withDecimal, tty)
		if err != nil && ctl.State() == sim.Idle {
			logrus.Fatalf("Cannot start simulation: %v", err)
		}
		report(s, r)
		if r.Err != nil {
			os.Exit(1)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.StringVar(&configPath, "config", "", "YAML simulation config file")
	flags.StringVar(&circuitPath, "circuit", "", "YAML circuit description")
	flags.Int64Var(&timeLimit, "limit", math.MaxInt64, "Last tick that may be dispatched")
	flags.Int64Var(&traceWindow, "trace-window", 1000, "Interactive trace width in ticks (0 = keep everything)")
	flags.StringVar(&traceMode, "trace-mode", "", "Trace retention (full, windowed); default full for run, windowed for interactive")
	flags.BoolVar(&strictTriState, "strict-tristate", false, "Reject nets mixing a regular driver with tri-state drivers")
	flags.IntVar(&outputBase, "base", 16, "Base for rendered values (2, 8, 10, 16)")
	flags.BoolVar(&withDecimal, "decimal", false, "Add unsigned and signed decimal to rendered values")
	flags.StringVar(&traceOut, "trace-out", "", "Write recorded traces to this YAML file")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	interactiveCmd.Flags().DurationVar(&animatePeriod, "animate-period", 100*time.Millisecond, "Wall-clock period between animation steps")
	interactiveCmd.Flags().Int64Var(&stepSize, "step", 1, "Default step size in ticks")

	// Attach `run` and `interactive` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(interactiveCmd)
}
