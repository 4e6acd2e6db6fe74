package sim

import "errors"

// Runtime invariant violations abort the run that hits them. Topology
// violations found at run start are reported with the netlist sentinels.
var (
	ErrBusContention  = errors.New("bus contention")
	ErrClockBackwards = errors.New("event scheduled before current time")
	ErrWidthMismatch  = errors.New("driven value width does not match net")
	ErrNotOutput      = errors.New("port is not an output")
	ErrAlreadyRunning = errors.New("simulation already running")
	ErrNoCircuit      = errors.New("no circuit loaded")
	ErrNotRunning     = errors.New("simulation not running")
	ErrNotPaused      = errors.New("simulation not paused")
)
