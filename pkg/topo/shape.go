package topo

import (
	"fmt"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// Shape is a handle on a node of an arena with an orientation.
// The zero Shape is null.
type Shape struct {
	arena  *Arena
	index  int
	orient Orientation
}

// Key identifies a node independently of orientation.
type Key struct {
	Arena *Arena
	Index int
}

// NewShape returns a Forward handle on node i of a.
func NewShape(a *Arena, i int) Shape {
	a.Node(i)
	return Shape{arena: a, index: i}
}

// IsNull reports whether the shape is the zero handle.
func (s Shape) IsNull() bool { return s.arena == nil }

// Arena returns the arena holding the shape.
func (s Shape) Arena() *Arena { return s.arena }

// Index returns the node index.
func (s Shape) Index() int { return s.index }

// Orientation returns the handle orientation.
func (s Shape) Orientation() Orientation { return s.orient }

// Key returns the orientation-free identity of the shape.
func (s Shape) Key() Key { return Key{s.arena, s.index} }

// Node returns the underlying node.
func (s Shape) Node() *Node { return s.arena.Node(s.index) }

// Kind returns the topological type.
func (s Shape) Kind() Kind { return s.Node().Kind }

// Tolerance returns the node tolerance.
func (s Shape) Tolerance() float64 { return s.Node().Tolerance }

// Reversed returns the handle with the opposite orientation.
func (s Shape) Reversed() Shape {
	s.orient = s.orient.Reverse()
	return s
}

// Oriented returns the handle with orientation o.
func (s Shape) Oriented(o Orientation) Shape {
	s.orient = o
	return s
}

// IsSame reports whether two handles refer to the same node.
func (s Shape) IsSame(o Shape) bool { return s.Key() == o.Key() }

func (s Shape) String() string {
	if s.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%s#%d", s.Kind(), s.index)
}

// Children returns the direct sub-shapes with composed orientations.
func (s Shape) Children() []Shape {
	n := s.Node()
	out := make([]Shape, len(n.Children))
	for i, r := range n.Children {
		out[i] = Shape{arena: s.arena, index: r.Index, orient: s.orient.Compose(r.Orientation)}
	}
	return out
}

// Explore returns the distinct sub-shapes of the given kind in depth-first
// order, including s itself when it matches. Each node is reported once with
// the orientation of its first occurrence.
func (s Shape) Explore(kind Kind) []Shape {
	var out []Shape
	seen := make(map[int]bool)
	var walk func(Shape)
	walk = func(c Shape) {
		if seen[c.index] {
			return
		}
		seen[c.index] = true
		if c.Kind() == kind {
			out = append(out, c)
			return
		}
		for _, ch := range c.Children() {
			walk(ch)
		}
	}
	walk(s)
	return out
}

// Point returns the location of a vertex.
func (s Shape) Point() v3.Vec { return s.Node().Point }

// Segment returns the bounded curve of an edge in its stored direction.
func (s Shape) Segment() geom.Segment {
	n := s.Node()
	return geom.Segment{Line: n.Curve, First: n.First, Last: n.Last}
}

// Vertices returns the stored first and last vertex of an edge.
func (s Shape) Vertices() (Shape, Shape) {
	n := s.Node()
	return Shape{arena: s.arena, index: n.Children[0].Index},
		Shape{arena: s.arena, index: n.Children[1].Index}
}

// Start returns the vertex an oriented edge is traversed from.
func (s Shape) Start() Shape {
	v1, v2 := s.Vertices()
	if s.orient == Reversed {
		return v2
	}
	return v1
}

// End returns the vertex an oriented edge is traversed to.
func (s Shape) End() Shape {
	v1, v2 := s.Vertices()
	if s.orient == Reversed {
		return v1
	}
	return v2
}

// Plane returns the stored surface of a face.
func (s Shape) Plane() *geom.Plane { return s.Node().Surface }

// Normal returns the outward normal of a face, taking orientation into account.
func (s Shape) Normal() v3.Vec {
	n := s.Node().Surface.Normal
	if s.orient == Reversed {
		return n.MulScalar(-1)
	}
	return n
}

// WireEdges returns the oriented edges of a wire in traversal order.
func (s Shape) WireEdges() []Shape {
	edges := s.Children()
	if s.orient == Reversed {
		slices.Reverse(edges)
	}
	return edges
}

// Wires returns the wires of a face, outer first.
func (s Shape) Wires() []Shape { return s.Children() }

// Loops returns the vertex positions of each wire of a face in traversal
// order. The outer loop turns counter-clockwise about Normal.
func (s Shape) Loops() [][]v3.Vec {
	var out [][]v3.Vec
	for _, w := range s.Wires() {
		var pts []v3.Vec
		for _, e := range w.WireEdges() {
			pts = append(pts, e.Start().Point())
		}
		out = append(out, pts)
	}
	return out
}
