package sim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of a controller.
type State int32

const (
	Idle State = iota
	Running
	Paused
	Stopped
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Reason is the terminal reason reported for a run.
type Reason string

const (
	ReasonUserStopped Reason = "user-stopped"
	ReasonTimeLimit   Reason = "time-limit reached"
	ReasonNoActivity  Reason = "no more activity"
	ReasonCompleted   Reason = "completed"
	ReasonAborted     Reason = "aborted"
)

// State returns the terminal controller state for the reason.
func (r Reason) State() State {
	switch r {
	case ReasonUserStopped, ReasonAborted:
		return Stopped
	default:
		return Complete
	}
}

func reasonFor(o outcome, err error) Reason {
	switch {
	case err != nil:
		return ReasonAborted
	case o == outcomeInterrupted:
		return ReasonUserStopped
	case o == outcomeFinished:
		return ReasonCompleted
	case o == outcomeBound:
		return ReasonTimeLimit
	default:
		return ReasonNoActivity
	}
}

// Result summarizes a finished run.
type Result struct {
	RunID      uuid.UUID
	Reason     Reason
	Now        int64 // simulated time when the run ended
	Dispatched int64
	Coalesced  int64
	Err        error // set when Reason is ReasonAborted
}

// BatchController runs the whole event loop synchronously on the caller's
// goroutine and keeps the full trace history.
type BatchController struct {
	sim     *Simulator
	mu      sync.Mutex
	state   atomic.Int32
	stopReq atomic.Bool
}

// NewBatchController creates a controller for s.
func NewBatchController(s *Simulator) *BatchController {
	return &BatchController{sim: s}
}

// Simulator returns the engine driven by the controller.
func (c *BatchController) Simulator() *Simulator { return c.sim }

// State returns the current state. Safe from any goroutine.
func (c *BatchController) State() State { return State(c.state.Load()) }

// Run simulates until a terminal reason is reached. Topology errors are
// returned before any dispatch with the controller left Idle. A run aborted
// by a runtime violation returns its Result together with the error.
func (c *BatchController) Run(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.State() == Running {
		c.mu.Unlock()
		return Result{}, ErrAlreadyRunning
	}
	c.stopReq.Store(false)
	runID := uuid.New()
	mode, window := c.sim.cfg.traceRetention(false)
	if err := c.sim.begin(runID, mode, window); err != nil {
		c.state.Store(int32(Idle))
		c.mu.Unlock()
		return Result{RunID: runID}, err
	}
	c.state.Store(int32(Running))
	c.mu.Unlock()

	o, err := c.sim.runUntil(c.sim.cfg.TimeLimit, func() bool {
		return c.stopReq.Load() || ctx.Err() != nil
	})
	r := c.sim.end(o, err)
	c.state.Store(int32(r.Reason.State()))
	return r, r.Err
}

// Stop requests termination at the next dispatch boundary.
func (c *BatchController) Stop() {
	c.stopReq.Store(true)
}
