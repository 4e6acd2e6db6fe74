package trace

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format renders one sample's value: the HiZ sentinel when unknown, otherwise
// base text with optional unsigned and signed decimal renderings.
func Format(s Sample, base int, withDecimal bool) string {
	return s.Value.Format(base, withDecimal)
}

type exportSample struct {
	Time  int64  `yaml:"time"`
	Value string `yaml:"value"`
}

type exportHistory struct {
	Key     string         `yaml:"key"`
	Samples []exportSample `yaml:"samples"`
}

// WriteYAML writes every history in hs as a YAML document, rendering values
// in the given base.
func WriteYAML(w io.Writer, hs []History, base int) error {
	out := make([]exportHistory, 0, len(hs))
	for _, h := range hs {
		eh := exportHistory{Key: h.Key, Samples: make([]exportSample, 0, len(h.Samples))}
		for _, s := range h.Samples {
			eh.Samples = append(eh.Samples, exportSample{Time: s.Time, Value: Format(s, base, false)})
		}
		out = append(out, eh)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	return enc.Close()
}
