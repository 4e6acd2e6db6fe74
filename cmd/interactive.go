package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/anadon/JLS-sub002/sim"
)

const interactiveHelp = `commands:
  step [n]               advance n ticks (default: step size) and pause
  resume                 run toward the time limit
  pause                  pause at the next dispatch boundary
  animate [period] [n]   step n ticks every period until "still"
  still                  stop animating
  now | state            show the simulated time or controller state
  trace                  print the recorded traces
  wait                   block until the run ends
  stop | quit            end the run`

// session drives an interactive controller from line commands.
type session struct {
	ctl  *sim.InteractiveController
	cfg  sim.Config
	out  io.Writer
	done chan struct{}
	base int
	dec  bool
}

// prompt marks where the next command is read; only shown on a terminal.
const prompt = "> "

// runInteractive starts ctl paused and executes commands read from in
// until the run ends or the input is exhausted, which stops the run.
// With showPrompt set a prompt is written before every command.
func runInteractive(ctx context.Context, ctl *sim.InteractiveController, in io.Reader, out io.Writer, base int, withDecimal, showPrompt bool) (sim.Result, error) {
	if err := ctl.Start(ctx); err != nil {
		return sim.Result{}, err
	}
	s := &session{ctl: ctl, cfg: ctl.Simulator().Config(), out: out, done: make(chan struct{}), base: base, dec: withDecimal}
	var result sim.Result
	var runErr error
	go func() {
		result, runErr = ctl.Wait()
		close(s.done)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.done:
				return
			}
		}
	}()

	fmt.Fprintf(out, "paused at tick %d; type help for commands\n", ctl.Now())
loop:
	for {
		if showPrompt {
			fmt.Fprint(out, prompt)
		}
		select {
		case <-s.done:
			break loop
		case line, ok := <-lines:
			if !ok {
				ctl.Stop()
				<-s.done
				break loop
			}
			if err := s.exec(line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
	return result, runErr
}

func (s *session) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "help", "?":
		fmt.Fprintln(s.out, interactiveHelp)
	case "step", "s":
		n, err := intArg(args, 0, s.cfg.StepSize)
		if err != nil {
			return err
		}
		target := s.ctl.Now() + n
		if err := s.ctl.Step(n); err != nil {
			return err
		}
		s.settle(target)
		fmt.Fprintf(s.out, "%s at tick %d\n", s.ctl.State(), s.ctl.Now())
	case "resume", "run", "r":
		s.ctl.Resume()
	case "pause", "p":
		s.ctl.Pause()
		s.settle(0)
		fmt.Fprintf(s.out, "%s at tick %d\n", s.ctl.State(), s.ctl.Now())
	case "animate", "a":
		period := s.cfg.AnimatePeriod
		if len(args) > 0 {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("animation period: %w", err)
			}
			period = d
		}
		n, err := intArg(args, 1, s.cfg.StepSize)
		if err != nil {
			return err
		}
		return s.ctl.Animate(period, n)
	case "still":
		return s.ctl.StopAnimation()
	case "now", "time":
		fmt.Fprintf(s.out, "tick %d\n", s.ctl.Now())
	case "state":
		fmt.Fprintln(s.out, s.ctl.State())
	case "trace", "t":
		printTraces(s.out, s.ctl.Simulator().Histories(), s.base, s.dec)
	case "wait":
		<-s.done
	case "stop", "quit", "q", "exit":
		s.ctl.Stop()
		<-s.done
	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return nil
}

// settle waits until the worker is paused at or after tick target, or the
// run has ended.
func (s *session) settle(target int64) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.ctl.State() == sim.Paused && s.ctl.Now() >= target {
				return
			}
		}
	}
}

func intArg(args []string, i int, def int64) (int64, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	if n <= 0 {
		return 0, errors.New("count must be positive")
	}
	return n, nil
}
