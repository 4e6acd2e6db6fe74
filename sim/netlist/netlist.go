// Package netlist partitions a graph of wire ends and wire segments into nets:
// maximal connected components that share one electrical signal.
//
// This package has no dependencies on sim/. Element ports plug in through the
// Attachment interface.
package netlist

import (
	"fmt"

	"github.com/pkg/errors"
)

// Topology violations. Returned errors wrap one of these with net and port
// detail; match with errors.Is.
var (
	ErrWidthMismatch   = errors.New("bit width mismatch")
	ErrMultipleDrivers = errors.New("multiple non-tri-state drivers")
	ErrMixedDrivers    = errors.New("tri-state and non-tri-state drivers mixed")
	ErrWireLoop        = errors.New("wire loop")
	ErrAlreadyAttached = errors.New("wire end already attached")
	ErrUnknownEnd      = errors.New("wire end is not part of the graph")
	ErrDeadNet         = errors.New("net was discarded by a merge")
)

// Attachment is what a wire end can be connected to: an element port.
type Attachment interface {
	// BitWidth is the declared width; 0 means unconstrained until connected.
	BitWidth() int
	// IsDriver reports whether the attachment drives the net (an output).
	IsDriver() bool
	// IsTriState reports whether a driving attachment can release the net.
	IsTriState() bool
	String() string
}

// WireEnd is a graph node. Its degree is the number of incident segments.
type WireEnd struct {
	name string
	segs []*WireSegment
	att  Attachment
	net  *WireNet
}

// Name returns the name given at creation.
func (e *WireEnd) Name() string { return e.name }

// Degree returns the number of incident segments.
func (e *WireEnd) Degree() int { return len(e.segs) }

// Attachment returns the attached port, or nil.
func (e *WireEnd) Attachment() Attachment { return e.att }

// Net returns the net the end currently belongs to, or nil once pruned.
func (e *WireEnd) Net() *WireNet { return e.net }

// Segments returns the incident segments.
func (e *WireEnd) Segments() []*WireSegment { return e.segs }

func (e *WireEnd) String() string { return e.name }

// WireSegment is a graph edge between two distinct ends.
type WireSegment struct {
	a, b *WireEnd
	net  *WireNet
}

// Ends returns both endpoints.
func (s *WireSegment) Ends() (*WireEnd, *WireEnd) { return s.a, s.b }

// Other returns the endpoint opposite e.
func (s *WireSegment) Other(e *WireEnd) *WireEnd {
	if s.a == e {
		return s.b
	}
	return s.a
}

// Net returns the net owning the segment.
func (s *WireSegment) Net() *WireNet { return s.net }

// netFlags is the per-net summary folded from attachments.
type netFlags struct {
	width   int
	regular int // non-tri-state drivers
	tri     int // tri-state drivers
}

func (f netFlags) with(id int, a Attachment, strict bool) (netFlags, error) {
	if w := a.BitWidth(); w != 0 {
		switch {
		case f.width == 0:
			f.width = w
		case f.width != w:
			return f, errors.Wrapf(ErrWidthMismatch, "net %d: %s is %d bits wide, net is %d bits", id, a, w, f.width)
		}
	}
	if a.IsDriver() {
		if a.IsTriState() {
			f.tri++
		} else {
			f.regular++
		}
	}
	return f, f.checkDrivers(id, strict)
}

func (f netFlags) union(id, otherID int, o netFlags, strict bool) (netFlags, error) {
	if f.width != 0 && o.width != 0 && f.width != o.width {
		return f, errors.Wrapf(ErrWidthMismatch, "merging net %d (%d bits) with net %d (%d bits)", id, f.width, otherID, o.width)
	}
	if f.width == 0 {
		f.width = o.width
	}
	f.regular += o.regular
	f.tri += o.tri
	if err := f.checkDrivers(id, strict); err != nil {
		return f, errors.Wrapf(err, "merging with net %d", otherID)
	}
	return f, nil
}

func (f netFlags) checkDrivers(id int, strict bool) error {
	if f.regular > 1 {
		return errors.Wrapf(ErrMultipleDrivers, "net %d has %d", id, f.regular)
	}
	if strict && f.regular > 0 && f.tri > 0 {
		return errors.Wrapf(ErrMixedDrivers, "net %d has %d regular and %d tri-state", id, f.regular, f.tri)
	}
	return nil
}

// WireNet is one connected component of the wire graph. It owns its member
// ends and segments until the next partition or merge.
type WireNet struct {
	id   int
	ends []*WireEnd
	segs []*WireSegment
	netFlags
	dead bool
}

// ID is unique within the graph that produced the net and is never reused.
func (n *WireNet) ID() int { return n.id }

// Width is the bit width folded from attached ports, 0 if none declares one.
func (n *WireNet) Width() int { return n.width }

// HasInput reports whether any attachment drives the net.
func (n *WireNet) HasInput() bool { return n.regular+n.tri > 0 }

// IsTriState reports whether any driver is tri-state capable.
func (n *WireNet) IsTriState() bool { return n.tri > 0 }

// Drivers returns the number of regular and tri-state drivers.
func (n *WireNet) Drivers() (regular, triState int) { return n.regular, n.tri }

// Ends returns the member ends in traversal order.
func (n *WireNet) Ends() []*WireEnd { return n.ends }

// Segments returns the member segments in traversal order.
func (n *WireNet) Segments() []*WireSegment { return n.segs }

// Dead reports whether the net was discarded by a merge or split.
func (n *WireNet) Dead() bool { return n.dead }

// Attachments returns the ports attached to member ends.
func (n *WireNet) Attachments() []Attachment {
	var atts []Attachment
	for _, e := range n.ends {
		if e.att != nil {
			atts = append(atts, e.att)
		}
	}
	return atts
}

func (n *WireNet) String() string { return fmt.Sprintf("net#%d", n.id) }
