package trace

// TraceSummary aggregates statistics over recorded histories.
type TraceSummary struct {
	Watched      int
	TotalChanges int
	LastChange   int64             // time of the latest sample across all keys
	ChangesByKey map[string]int    // key → number of samples
	FinalValues  map[string]string // key → last value rendered in hex
}

// Summarize computes aggregate statistics from history snapshots.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(histories []History) *TraceSummary {
	summary := &TraceSummary{
		ChangesByKey: make(map[string]int),
		FinalValues:  make(map[string]string),
	}
	summary.Watched = len(histories)
	for _, h := range histories {
		summary.ChangesByKey[h.Key] = len(h.Samples)
		summary.TotalChanges += len(h.Samples)
		if last, ok := h.Last(); ok {
			summary.FinalValues[h.Key] = last.Value.Text(16)
			if last.Time > summary.LastChange {
				summary.LastChange = last.Time
			}
		}
	}
	return summary
}
