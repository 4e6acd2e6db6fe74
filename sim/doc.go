// Package sim provides the event-driven engine of the logic simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - element.go: the Reactive and Element contracts, ports and the Engine handle
//   - event_queue.go: time-ordered events with coalescing of identical reactions
//   - simulator.go: run setup, the dispatch loop and trace sampling
//   - controller.go, interactive.go: batch runs and pause/step/animate control
//
// # Architecture
//
// The sim package defines the engine and its contracts; the rest lives in
// sub-packages:
//   - sim/signal/: immutable multi-bit values with an unknown state
//   - sim/netlist/: wire ends, segments and nets, with topology validation
//   - sim/trace/: per-signal value histories, full or windowed
//   - sim/logic/: the element catalog and its type registry
//
// A Circuit owns elements and the wire graph. Every run partitions the graph
// into nets, binds ports to them and calls InitSim on each element before the
// first dispatch. Elements never touch each other: they read their inputs and
// schedule output changes through the Engine.
//
// # Concurrency
//
// The engine is single threaded. The InteractiveController runs it on a
// worker goroutine; its control methods only set atomic request flags that
// the worker checks between dispatches.
package sim
