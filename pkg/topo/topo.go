package topo

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// Kind identifies the topological type of a node.
type Kind int

const (
	Compound Kind = iota
	Solid
	Shell
	Face
	Wire
	Edge
	Vertex
)

// String returns the human-readable name of a Kind.
func (k Kind) String() string {
	switch k {
	case Compound:
		return "compound"
	case Solid:
		return "solid"
	case Shell:
		return "shell"
	case Face:
		return "face"
	case Wire:
		return "wire"
	case Edge:
		return "edge"
	case Vertex:
		return "vertex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Orientation of a sub-shape relative to its parent.
type Orientation int

const (
	Forward Orientation = iota
	Reversed
)

// Reverse returns the opposite orientation.
func (o Orientation) Reverse() Orientation {
	if o == Forward {
		return Reversed
	}
	return Forward
}

// Compose returns the orientation of a child reached through a parent with
// orientation o.
func (o Orientation) Compose(child Orientation) Orientation {
	if o == Reversed {
		return child.Reverse()
	}
	return child
}

// Ref is an oriented reference to a node in the same arena.
type Ref struct {
	Index       int
	Orientation Orientation
}

// Node is one topological entity. Only the fields relevant to its Kind are set.
type Node struct {
	Kind      Kind
	Tolerance float64

	// Vertex
	Point v3.Vec

	// Edge: Children[0] is the first vertex (Forward) at First,
	// Children[1] the last vertex (Reversed) at Last.
	Curve       *geom.Line
	First, Last float64

	// Face: Children are wires, the first one outer. The outer wire turns
	// counter-clockwise about Surface.Normal, holes clockwise.
	Surface *geom.Plane

	Children []Ref
}

// Arena owns the nodes of one or more shapes. It is not safe for concurrent
// mutation.
type Arena struct {
	nodes []Node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Len returns the number of nodes.
func (a *Arena) Len() int { return len(a.nodes) }

// Node returns the node at index i. It panics when i is out of range.
func (a *Arena) Node(i int) *Node {
	if i < 0 || i >= len(a.nodes) {
		panic(fmt.Sprintf("topo: node index %d out of range [0,%d)", i, len(a.nodes)))
	}
	return &a.nodes[i]
}

func (a *Arena) add(n Node) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

// AddVertex appends a vertex.
func (a *Arena) AddVertex(p v3.Vec, tol float64) int {
	return a.add(Node{Kind: Vertex, Point: p, Tolerance: tol})
}

// AddEdge appends the straight edge from vertex v1 to vertex v2. Coincident
// vertices yield an edge without a curve.
func (a *Arena) AddEdge(v1, v2 int) int {
	p1, p2 := a.Node(v1), a.Node(v2)
	l, n := geom.NewLine(p1.Point, p2.Point)
	return a.AddEdgeOn(l, 0, n, v1, v2)
}

// AddEdgeOn appends an edge lying on an existing line over [first, last].
func (a *Arena) AddEdgeOn(l *geom.Line, first, last float64, v1, v2 int) int {
	tol := math.Max(a.Node(v1).Tolerance, a.Node(v2).Tolerance)
	return a.add(Node{
		Kind:      Edge,
		Tolerance: tol,
		Curve:     l,
		First:     first,
		Last:      last,
		Children:  []Ref{{v1, Forward}, {v2, Reversed}},
	})
}

// AddWire appends a wire of oriented edges.
func (a *Arena) AddWire(edges ...Ref) int {
	return a.add(Node{Kind: Wire, Children: edges})
}

// AddFace appends a face on a plane bounded by wires, the first one outer.
func (a *Arena) AddFace(surface *geom.Plane, wires ...int) int {
	refs := make([]Ref, len(wires))
	var tol float64
	for i, w := range wires {
		refs[i] = Ref{w, Forward}
		for _, e := range a.Node(w).Children {
			tol = math.Max(tol, a.Node(e.Index).Tolerance)
		}
	}
	return a.add(Node{Kind: Face, Surface: surface, Tolerance: tol, Children: refs})
}

// AddShell appends a shell of oriented faces.
func (a *Arena) AddShell(faces ...Ref) int {
	return a.add(Node{Kind: Shell, Children: faces})
}

// AddSolid appends a solid bounded by shells, the first one outer.
func (a *Arena) AddSolid(shells ...int) int {
	refs := make([]Ref, len(shells))
	for i, s := range shells {
		refs[i] = Ref{s, Forward}
	}
	return a.add(Node{Kind: Solid, Children: refs})
}

// AddCompound appends a compound of arbitrary shapes.
func (a *Arena) AddCompound(children ...Ref) int {
	return a.add(Node{Kind: Compound, Children: children})
}

// SetTolerance replaces the tolerance of node i.
func (a *Arena) SetTolerance(i int, tol float64) {
	a.Node(i).Tolerance = tol
}
