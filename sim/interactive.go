package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// animation is a request to the animator goroutine. A zero period stops
// the animation.
type animation struct {
	period time.Duration
	step   int64
}

// InteractiveController runs the event loop on a dedicated worker goroutine
// that can be paused, resumed, single-stepped, animated and stopped.
//
// Control methods never touch the event queue directly: they set atomic
// request flags and wake the worker through a one-slot channel. The worker
// checks the flags between dispatches, so a React call is never interrupted.
type InteractiveController struct {
	sim *Simulator

	mu       sync.Mutex // guards Start/Wait bookkeeping
	group    *errgroup.Group
	cancel   context.CancelFunc
	animReqs chan animation
	done     <-chan struct{}
	result   Result

	dispatchMu sync.Mutex // held by the worker while dispatching

	state     atomic.Int32
	stopReq   atomic.Bool
	pauseReq  atomic.Bool
	stepBound atomic.Int64 // -1 when no step is in progress
	wake      chan struct{}
}

// NewInteractiveController creates a controller for s.
func NewInteractiveController(s *Simulator) *InteractiveController {
	c := &InteractiveController{
		sim:  s,
		wake: make(chan struct{}, 1),
	}
	c.stepBound.Store(-1)
	return c
}

// Simulator returns the engine driven by the controller.
func (c *InteractiveController) Simulator() *Simulator { return c.sim }

// State returns the current state. Safe from any goroutine.
func (c *InteractiveController) State() State { return State(c.state.Load()) }

// Now returns the simulated time. Safe from any goroutine.
func (c *InteractiveController) Now() int64 { return c.sim.Now() }

// Start validates the circuit, initializes every element and launches the
// worker. Topology errors are returned synchronously with the controller
// left Idle. With Config.StartPaused the worker waits for Resume or Step.
func (c *InteractiveController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.State(); st == Running || st == Paused {
		return ErrAlreadyRunning
	}
	cfg := c.sim.cfg
	mode, window := cfg.traceRetention(true)
	if err := c.sim.begin(uuid.New(), mode, window); err != nil {
		c.state.Store(int32(Idle))
		return err
	}

	c.stopReq.Store(false)
	c.pauseReq.Store(cfg.StartPaused)
	c.stepBound.Store(-1)
	select {
	case <-c.wake:
	default:
	}
	if cfg.StartPaused {
		c.state.Store(int32(Paused))
	} else {
		c.state.Store(int32(Running))
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	c.group, c.cancel = g, cancel
	c.animReqs, c.done = make(chan animation), gctx.Done()
	c.result = Result{}
	g.Go(func() error { return c.work(gctx) })
	g.Go(func() error { return c.animate(gctx, c.animReqs) })
	return nil
}

// signal wakes the worker if it is waiting. Extra wakeups are harmless:
// the worker re-checks its flags and waits again.
func (c *InteractiveController) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pause requests suspension at the next dispatch boundary.
func (c *InteractiveController) Pause() {
	c.pauseReq.Store(true)
}

// Resume continues a paused run toward the time limit.
func (c *InteractiveController) Resume() {
	c.stepBound.Store(-1)
	c.pauseReq.Store(false)
	c.signal()
}

// Step advances a paused run by n ticks: events up to now+n are
// dispatched, then the run pauses again with the clock at now+n.
func (c *InteractiveController) Step(n int64) error {
	if n <= 0 {
		return fmt.Errorf("step size must be positive, got %d", n)
	}
	if c.State() != Paused {
		return ErrNotPaused
	}
	bound := c.sim.Now()
	if bound > math.MaxInt64-n {
		bound = math.MaxInt64
	} else {
		bound += n
	}
	c.stepBound.Store(bound)
	c.pauseReq.Store(false)
	c.signal()
	return nil
}

// Animate pauses the run and then steps it by n ticks every period until
// StopAnimation, Stop or the end of the run.
func (c *InteractiveController) Animate(period time.Duration, n int64) error {
	if period <= 0 || n <= 0 {
		return fmt.Errorf("invalid animation period %s and step %d", period, n)
	}
	return c.sendAnimation(animation{period: period, step: n}, true)
}

// StopAnimation stops the animation ticker; the run stays paused.
func (c *InteractiveController) StopAnimation() error {
	return c.sendAnimation(animation{}, false)
}

func (c *InteractiveController) sendAnimation(a animation, pause bool) error {
	c.mu.Lock()
	reqs, done := c.animReqs, c.done
	c.mu.Unlock()
	if st := c.State(); reqs == nil || (st != Running && st != Paused) {
		return ErrNotRunning
	}
	if pause {
		c.Pause()
	}
	select {
	case reqs <- a:
		return nil
	case <-done:
		return ErrNotRunning
	}
}

// Stop requests termination. A paused run is woken so it can exit.
func (c *InteractiveController) Stop() {
	c.stopReq.Store(true)
	c.signal()
}

// Inject posts an event into a paused run.
func (c *InteractiveController) Inject(ev Event) error {
	if c.State() != Paused {
		return ErrNotPaused
	}
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	return c.sim.inject(ev)
}

// Wait blocks until the run ends and returns its result. The error is the
// abort cause, if any.
func (c *InteractiveController) Wait() (Result, error) {
	c.mu.Lock()
	g := c.group
	c.mu.Unlock()
	if g == nil {
		return Result{}, ErrNotRunning
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group = nil
	return c.result, c.result.Err
}

// work is the worker goroutine. It owns the event queue until the run ends.
func (c *InteractiveController) work(ctx context.Context) error {
	defer c.cancel()
	limit := c.sim.cfg.TimeLimit
	for {
		if c.stopReq.Load() || ctx.Err() != nil {
			c.finish(outcomeInterrupted, nil)
			return nil
		}
		if c.pauseReq.Load() {
			c.state.Store(int32(Paused))
			select {
			case <-c.wake:
			case <-ctx.Done():
			}
			continue
		}
		c.state.Store(int32(Running))

		bound, stepping := limit, false
		if b := c.stepBound.Load(); b >= 0 && b < limit {
			bound, stepping = b, true
		}
		c.dispatchMu.Lock()
		o, err := c.sim.runUntil(bound, func() bool {
			return c.stopReq.Load() || c.pauseReq.Load() || ctx.Err() != nil
		})
		c.dispatchMu.Unlock()

		switch {
		case err != nil:
			c.finish(o, err)
			return nil
		case o == outcomeBound && stepping:
			c.stepBound.Store(-1)
			c.pauseReq.Store(true)
		case o == outcomeInterrupted:
			// loop top tells a pause from a stop
		default:
			c.finish(o, nil)
			return nil
		}
	}
}

func (c *InteractiveController) finish(o outcome, err error) {
	r := c.sim.end(o, err)
	c.mu.Lock()
	c.result = r
	c.mu.Unlock()
	c.state.Store(int32(r.Reason.State()))
}

// animate turns animation requests into periodic Step calls.
func (c *InteractiveController) animate(ctx context.Context, reqs <-chan animation) error {
	var ticker *time.Ticker
	var tick <-chan time.Time
	var step int64
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()
	for {
		select {
		case <-ctx.Done():
			return nil
		case a := <-reqs:
			stopTicker()
			if a.period > 0 {
				ticker = time.NewTicker(a.period)
				tick, step = ticker.C, a.step
			}
		case <-tick:
			// A step still in progress skips this tick.
			if err := c.Step(step); err != nil {
				c.sim.log.Debugf("animation tick skipped: %v", err)
			}
		}
	}
}
