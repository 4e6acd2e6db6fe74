package sim

import (
	"fmt"

	"github.com/anadon/JLS-sub002/sim/netlist"
)

// Topology is what the engine consumes from the circuit editor: the
// elements to simulate and the wire graph their ports attach to.
type Topology interface {
	Elements() []Element
	Graph() *netlist.Graph
}

// Circuit is an in-memory Topology built programmatically or by a loader.
type Circuit struct {
	Name     string
	elements []Element
	byName   map[string]Element
	graph    *netlist.Graph
}

// NewCircuit creates an empty circuit.
func NewCircuit(name string) *Circuit {
	return &Circuit{
		Name:   name,
		byName: make(map[string]Element),
		graph:  netlist.NewGraph(),
	}
}

// Add registers an element. Element names must be unique.
func (c *Circuit) Add(e Element) error {
	if e == nil {
		return fmt.Errorf("element cannot be nil")
	}
	if _, exists := c.byName[e.Name()]; exists {
		return fmt.Errorf("element %s already exists", e.Name())
	}
	c.byName[e.Name()] = e
	c.elements = append(c.elements, e)
	return nil
}

// MustAdd is Add for fixtures; it panics on error.
func (c *Circuit) MustAdd(elems ...Element) {
	for _, e := range elems {
		if err := c.Add(e); err != nil {
			panic(err)
		}
	}
}

// Element retrieves an element by name.
func (c *Circuit) Element(name string) Element {
	return c.byName[name]
}

// Elements returns the elements in insertion order.
func (c *Circuit) Elements() []Element { return c.elements }

// Graph returns the wire graph.
func (c *Circuit) Graph() *netlist.Graph { return c.graph }

// Attach connects p to end.
func (c *Circuit) Attach(p *Port, end *netlist.WireEnd) error {
	if p.end != nil {
		return fmt.Errorf("port %s is already attached to %s", p, p.end)
	}
	if err := c.graph.Attach(end, p); err != nil {
		return fmt.Errorf("attaching %s: %w", p, err)
	}
	p.end = end
	return nil
}

// Detach releases p from its wire end.
func (c *Circuit) Detach(p *Port) {
	if p.end == nil {
		return
	}
	c.graph.Detach(p.end)
	p.end = nil
}

// Wire connects ports with a chain of wire segments, one wire end per
// port, and returns the first end. Each connection is validated as the
// editor would validate it. The circuit keeps the ends and segments created
// before a failure.
func (c *Circuit) Wire(name string, ports ...*Port) (*netlist.WireEnd, error) {
	return c.wire(name, true, ports)
}

// Link is Wire without connect-time validation, for loaders that build a
// whole circuit at once. Violations surface when a run starts.
func (c *Circuit) Link(name string, ports ...*Port) (*netlist.WireEnd, error) {
	return c.wire(name, false, ports)
}

func (c *Circuit) wire(name string, checked bool, ports []*Port) (*netlist.WireEnd, error) {
	var first, prev *netlist.WireEnd
	for i, p := range ports {
		end := c.graph.NewEnd(fmt.Sprintf("%s/%d", name, i))
		if err := c.Attach(p, end); err != nil {
			return nil, fmt.Errorf("wire %s: %w", name, err)
		}
		switch {
		case prev == nil:
			first = end
		case checked:
			if _, err := c.graph.Connect(prev, end); err != nil {
				return nil, fmt.Errorf("wire %s: connecting %s: %w", name, p, err)
			}
		default:
			c.graph.Link(prev, end)
		}
		prev = end
	}
	if first == nil {
		first = c.graph.NewEnd(name)
	}
	return first, nil
}
