package netlist

import (
	"github.com/pkg/errors"
)

// Graph holds every wire end and segment of a circuit and keeps nets up to
// date while the circuit is edited. Partition recomputes all nets from
// scratch and is what the engine calls at the start of every run.
//
// Thread-safety: NOT thread-safe.
type Graph struct {
	ends    []*WireEnd
	segs    []*WireSegment
	nextNet int
	strict  bool
}

// NewGraph returns an empty graph. Mixed regular and tri-state drivers are
// accepted until SetStrictTriState(true).
func NewGraph() *Graph {
	return &Graph{}
}

// SetStrictTriState rejects nets that mix a regular driver with tri-state
// drivers in later checks.
func (g *Graph) SetStrictTriState(strict bool) { g.strict = strict }

func (g *Graph) newNet() *WireNet {
	g.nextNet++
	return &WireNet{id: g.nextNet}
}

// NewEnd adds an unattached, unconnected end. It starts in a net of its own.
func (g *Graph) NewEnd(name string) *WireEnd {
	e := &WireEnd{name: name}
	n := g.newNet()
	n.ends = []*WireEnd{e}
	e.net = n
	g.ends = append(g.ends, e)
	return e
}

// Ends returns the live ends in creation order.
func (g *Graph) Ends() []*WireEnd { return g.ends }

// Segments returns the live segments in creation order.
func (g *Graph) Segments() []*WireSegment { return g.segs }

// Nets returns the current nets, ordered by their first end.
func (g *Graph) Nets() []*WireNet {
	seen := make(map[*WireNet]bool)
	var nets []*WireNet
	for _, e := range g.ends {
		if e.net != nil && !seen[e.net] {
			seen[e.net] = true
			nets = append(nets, e.net)
		}
	}
	return nets
}

func (g *Graph) owns(e *WireEnd) bool {
	return e != nil && e.net != nil && !e.net.dead
}

// Attach connects a port to an end, rejecting it when the end's net could
// not accept the port's width or driver kind.
func (g *Graph) Attach(e *WireEnd, a Attachment) error {
	if !g.owns(e) {
		return errors.Wrapf(ErrUnknownEnd, "attach %s", a)
	}
	if e.att != nil {
		return errors.Wrapf(ErrAlreadyAttached, "%s holds %s, cannot attach %s", e, e.att, a)
	}
	f, err := e.net.netFlags.with(e.net.id, a, g.strict)
	if err != nil {
		return err
	}
	e.net.netFlags = f
	e.att = a
	return nil
}

// Detach removes the port attached to e, if any, and recomputes e's net.
func (g *Graph) Detach(e *WireEnd) {
	if e.att == nil {
		return
	}
	e.att = nil
	if g.owns(e) {
		g.rebuild(e)
	}
}

// Connect adds a segment between a and b, merging their nets. The graph is
// left untouched when the merge would violate a net invariant or close a loop.
func (g *Graph) Connect(a, b *WireEnd) (*WireSegment, error) {
	if !g.owns(a) || !g.owns(b) {
		return nil, errors.Wrapf(ErrUnknownEnd, "connect %s-%s", a, b)
	}
	if a.net == b.net {
		return nil, errors.Wrapf(ErrWireLoop, "%s and %s are already on %s", a, b, a.net)
	}
	n, err := g.Merge(a.net, b.net)
	if err != nil {
		return nil, err
	}
	s := &WireSegment{a: a, b: b, net: n}
	a.segs = append(a.segs, s)
	b.segs = append(b.segs, s)
	n.segs = append(n.segs, s)
	g.segs = append(g.segs, s)
	return s, nil
}

// Link adds a segment between a and b without merging or validating nets.
// It is meant for loaders that build a whole topology at once: nets are
// stale until the next Partition, which reports any violation.
func (g *Graph) Link(a, b *WireEnd) *WireSegment {
	s := &WireSegment{a: a, b: b}
	a.segs = append(a.segs, s)
	b.segs = append(b.segs, s)
	g.segs = append(g.segs, s)
	return s
}

// Merge unions b into a and returns the surviving net. b is emptied and
// marked dead. The merge is rejected, with neither net modified, if it
// would put two regular drivers or two different widths on one net.
func (g *Graph) Merge(a, b *WireNet) (*WireNet, error) {
	if a.dead || b.dead {
		return nil, ErrDeadNet
	}
	if a == b {
		return a, nil
	}
	f, err := a.netFlags.union(a.id, b.id, b.netFlags, g.strict)
	if err != nil {
		return nil, err
	}
	for _, e := range b.ends {
		e.net = a
	}
	for _, s := range b.segs {
		s.net = a
	}
	a.ends = append(a.ends, b.ends...)
	a.segs = append(a.segs, b.segs...)
	a.netFlags = f
	b.ends, b.segs, b.netFlags, b.dead = nil, nil, netFlags{}, true
	return a, nil
}

// Disconnect removes s and splits its net if that disconnects it.
func (g *Graph) Disconnect(s *WireSegment) {
	idx := -1
	for i, gs := range g.segs {
		if gs == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	g.segs = append(g.segs[:idx], g.segs[idx+1:]...)
	s.a.segs = removeSeg(s.a.segs, s)
	s.b.segs = removeSeg(s.b.segs, s)
	g.rebuild(s.a)
	if s.b.net == s.net {
		g.rebuild(s.b)
	}
	s.net = nil
}

func removeSeg(segs []*WireSegment, s *WireSegment) []*WireSegment {
	for i, x := range segs {
		if x == s {
			return append(segs[:i], segs[i+1:]...)
		}
	}
	return segs
}

// rebuild recomputes the component containing e. Removing a segment or a
// port can only relax a valid net, so validation errors are not expected
// here and the counts are kept as computed.
func (g *Graph) rebuild(e *WireEnd) *WireNet {
	old := e.net
	n := g.collect(e, make(map[*WireEnd]bool))
	_ = n.fold(g.strict)
	if old != nil && old != n {
		old.dead = true
	}
	return n
}

// collect performs a breadth-first traversal from start, moving every
// reached end and segment into one new net.
func (g *Graph) collect(start *WireEnd, seen map[*WireEnd]bool) *WireNet {
	n := g.newNet()
	segSeen := make(map[*WireSegment]bool)
	queue := []*WireEnd{start}
	seen[start] = true
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		n.ends = append(n.ends, e)
		e.net = n
		for _, s := range e.segs {
			if segSeen[s] {
				continue
			}
			segSeen[s] = true
			s.net = n
			n.segs = append(n.segs, s)
			if o := s.Other(e); !seen[o] {
				seen[o] = true
				queue = append(queue, o)
			}
		}
	}
	return n
}

// fold recomputes the net flags from member attachments.
func (n *WireNet) fold(strict bool) error {
	n.netFlags = netFlags{}
	var firstErr error
	for _, e := range n.ends {
		if e.att == nil {
			continue
		}
		f, err := n.netFlags.with(n.id, e.att, strict)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		n.netFlags = f
	}
	return firstErr
}

// Partition recomputes every net from the current ends and segments in
// O(V+E). Unattached ends with no segments are pruned from the graph.
// The first violated invariant is returned; on error no nets are returned.
func (g *Graph) Partition() ([]*WireNet, error) {
	seen := make(map[*WireEnd]bool, len(g.ends))
	kept := g.ends[:0]
	var nets []*WireNet
	var firstErr error
	for _, e := range g.ends {
		if e.Degree() == 0 && e.att == nil {
			if e.net != nil {
				e.net.dead = true
			}
			e.net = nil
			continue
		}
		kept = append(kept, e)
		if seen[e] {
			continue
		}
		old := e.net
		n := g.collect(e, seen)
		if old != nil {
			old.dead = true
		}
		if err := n.fold(g.strict); err != nil && firstErr == nil {
			firstErr = err
		}
		if len(n.segs) >= len(n.ends) && firstErr == nil {
			firstErr = errors.Wrapf(ErrWireLoop, "%s has %d segments over %d ends", n, len(n.segs), len(n.ends))
		}
		nets = append(nets, n)
	}
	for i := len(kept); i < len(g.ends); i++ {
		g.ends[i] = nil
	}
	g.ends = kept
	if firstErr != nil {
		return nil, firstErr
	}
	return nets, nil
}
