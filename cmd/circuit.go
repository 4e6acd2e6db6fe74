package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/logic"
)

// CircuitFile is the YAML circuit description read by the CLI.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type CircuitFile struct {
	Name     string        `yaml:"name"`
	Elements []ElementSpec `yaml:"elements"`
	Wires    []WireSpec    `yaml:"wires"`
	Watch    []string      `yaml:"watch"` // element names
	Probe    []string      `yaml:"probe"` // element.port references
}

// ElementSpec declares one element by registry type tag.
type ElementSpec struct {
	Name   string       `yaml:"name"`
	Type   string       `yaml:"type"`
	Params logic.Params `yaml:"params"`
}

// WireSpec joins ports, written as element.port, on one wire.
type WireSpec struct {
	Name  string   `yaml:"name"`
	Ports []string `yaml:"ports"`
}

// loadCircuitFile parses a circuit description with strict field checking.
func loadCircuitFile(path string) (*CircuitFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading circuit: %w", err)
	}
	var f CircuitFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing circuit %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = path
	}
	return &f, nil
}

// Build instantiates every element through reg and links the wires. Wires
// are not validated here: the engine reports topology errors when a run
// starts, so a bad file yields the same diagnostics as a bad edit.
func (f *CircuitFile) Build(reg *logic.Registry) (*sim.Circuit, error) {
	c := sim.NewCircuit(f.Name)
	for _, es := range f.Elements {
		if es.Name == "" {
			return nil, fmt.Errorf("element of type %q has no name", es.Type)
		}
		e, err := reg.New(es.Type, es.Name, es.Params)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", es.Name, err)
		}
		if err := c.Add(e); err != nil {
			return nil, err
		}
	}
	for i, ws := range f.Wires {
		name := ws.Name
		if name == "" {
			name = fmt.Sprintf("wire%d", i)
		}
		ports := make([]*sim.Port, 0, len(ws.Ports))
		for _, ref := range ws.Ports {
			p, err := findPort(c, ref)
			if err != nil {
				return nil, fmt.Errorf("wire %s: %w", name, err)
			}
			ports = append(ports, p)
		}
		if _, err := c.Link(name, ports...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Apply registers the file's watched elements and probes on s.
func (f *CircuitFile) Apply(s *sim.Simulator, c *sim.Circuit) error {
	for _, name := range f.Watch {
		e := c.Element(name)
		if e == nil {
			return fmt.Errorf("watch: unknown element %q", name)
		}
		s.SetWatched(e, true)
	}
	for _, ref := range f.Probe {
		p, err := findPort(c, ref)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		s.SetProbed(p, true)
	}
	return nil
}

// findPort resolves an element.port reference.
func findPort(c *sim.Circuit, ref string) (*sim.Port, error) {
	elem, port, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("port reference %q is not element.port", ref)
	}
	e := c.Element(elem)
	if e == nil {
		return nil, fmt.Errorf("unknown element %q in %q", elem, ref)
	}
	for _, p := range e.Ports() {
		if p.Name() == port {
			return p, nil
		}
	}
	return nil, fmt.Errorf("element %s has no port %q", elem, port)
}
