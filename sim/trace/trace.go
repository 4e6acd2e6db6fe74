package trace

import (
	"sort"
	"sync"

	"github.com/anadon/JLS-sub002/sim/signal"
)

// Mode controls how much history is retained.
type Mode string

const (
	// ModeFull keeps every sample of the run (batch mode).
	ModeFull Mode = "full"
	// ModeWindowed keeps only samples visible in the trace window
	// (interactive mode).
	ModeWindowed Mode = "windowed"
)

// validModes maps accepted mode strings.
var validModes = map[Mode]bool{
	ModeFull:     true,
	ModeWindowed: true,
	"":           true, // empty leaves the choice to the controller
}

// IsValidMode returns true if the given mode string is recognized.
func IsValidMode(mode string) bool {
	return validModes[Mode(mode)]
}

// Recorder collects change-coalesced histories keyed by element or probe
// name. Only registered keys are recorded; samples for other keys are
// silently dropped.
//
// Thread-safety: safe for concurrent use. The simulation worker records
// while control and display code reads histories.
type Recorder struct {
	mu        sync.RWMutex
	mode      Mode
	window    int64
	histories map[string]*History
}

// NewRecorder returns a recorder in ModeFull with no registered keys.
func NewRecorder() *Recorder {
	return &Recorder{
		mode:      ModeFull,
		histories: make(map[string]*History),
	}
}

// Watch registers key for recording. Registering twice is a no-op.
func (r *Recorder) Watch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.histories[key]; !ok {
		r.histories[key] = &History{Key: key}
	}
}

// Unwatch stops recording key and discards its history.
func (r *Recorder) Unwatch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.histories, key)
}

// IsWatched reports whether key is registered.
func (r *Recorder) IsWatched(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.histories[key]
	return ok
}

// Reset clears every history, keeps the registered keys and switches the
// retention mode. window is ignored in ModeFull.
func (r *Recorder) Reset(mode Mode, window int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == "" {
		mode = ModeFull
	}
	r.mode = mode
	r.window = window
	for _, h := range r.histories {
		h.Samples = nil
	}
}

// Record appends (t, v) to key's history unless v equals the previous
// sample. It returns true when a sample was appended.
func (r *Recorder) Record(key string, t int64, v signal.Value) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.histories[key]
	if !ok {
		return false
	}
	if last, ok := h.Last(); ok && last.Value.Equal(v) {
		return false
	}
	h.Samples = append(h.Samples, Sample{Time: t, Value: v})
	if r.mode == ModeWindowed && r.window > 0 {
		h.Samples = trim(h.Samples, t-r.window)
	}
	return true
}

// trim drops samples that ended before start, keeping the one in effect at
// start so the window's left edge still has a value.
func trim(samples []Sample, start int64) []Sample {
	keep := 0
	for i := 1; i < len(samples) && samples[i].Time <= start; i++ {
		keep = i
	}
	if keep == 0 {
		return samples
	}
	return append(samples[:0], samples[keep:]...)
}

// History returns a copy of key's history; ok is false for unknown keys.
func (r *Recorder) History(key string) (History, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.histories[key]
	if !ok {
		return History{Key: key}, false
	}
	return History{Key: key, Samples: append([]Sample(nil), h.Samples...)}, true
}

// Keys returns the registered keys in sorted order.
func (r *Recorder) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.histories))
	for k := range r.histories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns copies of every history, sorted by key.
func (r *Recorder) Snapshot() []History {
	keys := r.Keys()
	out := make([]History, 0, len(keys))
	for _, k := range keys {
		if h, ok := r.History(k); ok {
			out = append(out, h)
		}
	}
	return out
}
