package logic

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/anadon/JLS-sub002/sim"
	"github.com/anadon/JLS-sub002/sim/signal"
)

// Params are the construction parameters a loader may supply. Each
// constructor reads the fields it needs and ignores the rest.
type Params struct {
	Width  int    `yaml:"width"`
	Delay  int64  `yaml:"delay"`
	Inputs int    `yaml:"inputs"`
	Value  string `yaml:"value"`
	Base   int    `yaml:"base"`
	High   int64  `yaml:"high"`
	Low    int64  `yaml:"low"`
	Cycles int    `yaml:"cycles"`
}

func (p Params) width() int {
	if p.Width == 0 {
		return 1
	}
	return p.Width
}

func (p Params) inputs() int {
	if p.Inputs == 0 {
		return 2
	}
	return p.Inputs
}

// Constructor builds an element from a name and parameters.
type Constructor func(name string, p Params) (sim.Element, error)

// Registry maps element type tags to constructors.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor. Tags are case-insensitive and may be
// registered once.
func (r *Registry) Register(tag string, c Constructor) error {
	key := strings.ToLower(tag)
	if key == "" || c == nil {
		return fmt.Errorf("invalid registration for tag %q", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[key]; dup {
		return fmt.Errorf("element type %q already registered", tag)
	}
	r.ctors[key] = c
	return nil
}

// New builds an element of the given type.
func (r *Registry) New(tag, name string, p Params) (sim.Element, error) {
	r.mu.RLock()
	c, ok := r.ctors[strings.ToLower(tag)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown element type %q (valid: %s)", tag, strings.Join(r.Tags(), ", "))
	}
	return c(name, p)
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// DefaultRegistry returns a registry holding the whole catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for op := range gateOps {
		_ = r.Register(string(op), func(name string, p Params) (sim.Element, error) {
			n := p.inputs()
			if op == OpNot {
				n = 1
			}
			return element(NewGate(op, name, n, p.width(), p.Delay))
		})
	}
	_ = r.Register("constant", func(name string, p Params) (sim.Element, error) {
		base := p.Base
		if base == 0 {
			base = 10
		}
		v, err := signal.Parse(p.width(), p.Value, base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return NewConstant(name, v), nil
	})
	_ = r.Register("clock", func(name string, p Params) (sim.Element, error) {
		return element(NewClock(name, p.High, p.Low, p.Cycles))
	})
	_ = r.Register("tribuffer", func(name string, p Params) (sim.Element, error) {
		return element(NewTriBuffer(name, p.width(), p.Delay))
	})
	_ = r.Register("register", func(name string, p Params) (sim.Element, error) {
		return element(NewRegister(name, p.width(), p.Delay))
	})
	_ = r.Register("stop", func(name string, _ Params) (sim.Element, error) {
		return NewStop(name), nil
	})
	return r
}

// element drops the typed nil a failed constructor returns.
func element[T sim.Element](e T, err error) (sim.Element, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

var gateOps = map[Op]bool{OpAnd: true, OpOr: true, OpXor: true, OpNot: true}
