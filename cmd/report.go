package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/trace"
)

// printResult writes the run outcome. Users always see the reason string;
// an abort adds the violated invariant.
func printResult(w io.Writer, r sim.Result) {
	fmt.Fprintln(w, "=== Simulation Result ===")
	fmt.Fprintf(w, "Run                  : %s\n", r.RunID)
	fmt.Fprintf(w, "Reason               : %s\n", r.Reason)
	fmt.Fprintf(w, "Final time           : %d ticks\n", r.Now)
	fmt.Fprintf(w, "Events dispatched    : %d\n", r.Dispatched)
	fmt.Fprintf(w, "Events coalesced     : %d\n", r.Coalesced)
	if r.Err != nil {
		fmt.Fprintf(w, "Error                : %v\n", r.Err)
	}
}

// printTraces writes every history as time/value lines.
func printTraces(w io.Writer, hs []trace.History, base int, withDecimal bool) {
	s := trace.Summarize(hs)
	fmt.Fprintf(w, "=== Traces (%d signals, %d changes) ===\n", s.Watched, s.TotalChanges)
	for _, h := range hs {
		fmt.Fprintf(w, "%s:\n", h.Key)
		for _, smp := range h.Samples {
			fmt.Fprintf(w, "  [tick %07d] %s\n", smp.Time, trace.Format(smp, base, withDecimal))
		}
	}
}

// writeTraceFile dumps histories as YAML; an empty path is a no-op.
func writeTraceFile(path string, hs []trace.History, base int) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := trace.WriteYAML(f, hs, base); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing trace file: %w", err)
	}
	return f.Close()
}

// serveMetrics exposes the engine counters on addr in the background.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logrus.Infof("Serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
}
