// Package ds is the intersection data structure shared by the pave filler and
// the builder.
//
// Every sub-shape of every argument is flattened into one indexed table of
// ShapeInfo. Intersection results are recorded as interferences between table
// indices, as paves on edges, as pave blocks (edge splits) and as common
// blocks (geometrically coincident pave blocks). Vertices merged during
// intersection are tracked with a same-domain map so that every reference can
// be resolved to its surviving vertex with Real.
package ds

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

// OrientedEdge is a use of an edge inside a face boundary.
type OrientedEdge struct {
	Edge     int
	Reversed bool
}

// ShapeInfo is one row of the shape table.
type ShapeInfo struct {
	Kind   topo.Kind
	Source topo.Shape // null for shapes created during intersection
	Rank   int        // argument index, -1 for new shapes
	Sub    []int
	Box    sdf.Box3
	Tol    float64

	// Vertex
	Point v3.Vec

	// Edge: Sub[0] is the vertex at Seg.First, Sub[1] the one at Seg.Last.
	Seg   geom.Segment
	Small bool

	// Face: Plane is oriented along the outward normal and Region is in its
	// frame. Loops follow the outward orientation, outer loop first.
	Face  intersect.Face
	Loops [][]OrientedEdge
	Solid int
}

// Edge returns the intersector view of an edge.
func (s *ShapeInfo) Edge() intersect.Edge {
	return intersect.Edge{Seg: s.Seg, Tol: s.Tol}
}

// DS is the intersection data structure. Shape rows are addressed by index;
// an invalid index is a programming error and panics.
type DS struct {
	mu     sync.RWMutex
	shapes []*ShapeInfo
	index  map[topo.Key]int
	args   []topo.Shape
	ranges [][2]int
	sd     map[int]int

	imu     sync.Mutex
	interfs [numInterfKinds][]Interference
	couples map[couple]int

	pmu        sync.Mutex
	paveSets   map[int]*PaveSet
	paveBlocks map[int][]*PaveBlock
	cbOf       map[*PaveBlock]*CommonBlock

	fmu      sync.Mutex
	faceInfo map[int]*FaceInfo
}

// New flattens the arguments into a fresh data structure. The rank of a
// sub-shape is the index of the first argument containing it.
func New(args []topo.Shape) *DS {
	d := &DS{
		index:      make(map[topo.Key]int),
		args:       args,
		sd:         make(map[int]int),
		couples:    make(map[couple]int),
		paveSets:   make(map[int]*PaveSet),
		paveBlocks: make(map[int][]*PaveBlock),
		cbOf:       make(map[*PaveBlock]*CommonBlock),
		faceInfo:   make(map[int]*FaceInfo),
	}
	for rank, a := range args {
		first := len(d.shapes)
		if !a.IsNull() {
			d.visit(a, rank, -1)
		}
		d.ranges = append(d.ranges, [2]int{first, len(d.shapes)})
	}
	return d
}

func (d *DS) visit(s topo.Shape, rank, solid int) int {
	if i, ok := d.index[s.Key()]; ok {
		return i
	}
	info := &ShapeInfo{Kind: s.Kind(), Source: s, Rank: rank, Tol: s.Tolerance(), Solid: -1}
	i := len(d.shapes)
	d.shapes = append(d.shapes, info)
	d.index[s.Key()] = i

	switch info.Kind {
	case topo.Vertex:
		info.Point = s.Point()
		info.Box = geom.Inflate(geom.BoxOf(info.Point), info.Tol)
	case topo.Edge:
		a, b := s.Vertices()
		info.Sub = []int{d.visit(a, rank, solid), d.visit(b, rank, solid)}
		info.Seg = s.Segment()
		p1, p2 := d.shapes[info.Sub[0]], d.shapes[info.Sub[1]]
		info.Tol = math.Max(info.Tol, geom.Confusion)
		info.Small = info.Seg.Line == nil || info.Seg.Length() <= p1.Tol+p2.Tol
		info.Box = geom.Inflate(geom.BoxOf(p1.Point, p2.Point), math.Max(info.Tol, math.Max(p1.Tol, p2.Tol)))
	case topo.Face:
		info.Solid = solid
		var pts [][]v3.Vec
		for _, w := range s.Wires() {
			var loop []OrientedEdge
			var lp []v3.Vec
			for _, e := range w.WireEdges() {
				ei := d.visit(e.Oriented(topo.Forward), rank, solid)
				loop = append(loop, OrientedEdge{Edge: ei, Reversed: e.Orientation() == topo.Reversed})
				info.Sub = append(info.Sub, ei)
				lp = append(lp, e.Start().Point())
			}
			info.Loops = append(info.Loops, loop)
			pts = append(pts, lp)
		}
		info.Tol = math.Max(info.Tol, geom.Confusion)
		info.Face = faceGeometry(s, pts, info.Tol)
		info.Box = geom.Inflate(geom.BoxOf(slices.Concat(pts...)...), info.Tol)
	default:
		if info.Kind == topo.Solid {
			solid = i
		}
		first := true
		for _, c := range s.Children() {
			ci := d.visit(c, rank, solid)
			info.Sub = append(info.Sub, ci)
			if first {
				info.Box = d.shapes[ci].Box
				first = false
			} else {
				info.Box = info.Box.Extend(d.shapes[ci].Box)
			}
		}
	}
	return i
}

func faceGeometry(s topo.Shape, loops [][]v3.Vec, tol float64) intersect.Face {
	pl := s.Plane()
	frame := geom.NewPlane(pl.Origin, s.Normal())
	f := intersect.Face{Plane: frame, Tol: tol}
	for _, l := range loops {
		var r []v2.Vec
		for _, p := range l {
			r = append(r, frame.Project(p))
		}
		f.Region.Loops = append(f.Region.Loops, r)
	}
	return f
}

// NumberOfShapes returns the number of rows.
func (d *DS) NumberOfShapes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.shapes)
}

// NumberOfArguments returns the number of arguments given to New.
func (d *DS) NumberOfArguments() int { return len(d.args) }

// Argument returns argument rank as given to New.
func (d *DS) Argument(rank int) topo.Shape { return d.args[rank] }

// ArgumentRange returns the half-open index range of rows first reached
// through argument rank.
func (d *DS) ArgumentRange(rank int) (int, int) {
	r := d.ranges[rank]
	return r[0], r[1]
}

// Shape returns row i. It panics when i is not a valid index.
func (d *DS) Shape(i int) *ShapeInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.shapes) {
		panic(fmt.Sprintf("ds: shape index %d out of range [0,%d)", i, len(d.shapes)))
	}
	return d.shapes[i]
}

// Index returns the row of an input sub-shape.
func (d *DS) Index(s topo.Shape) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[s.Key()]
	return i, ok
}

// IsNew reports whether row i was created during intersection.
func (d *DS) IsNew(i int) bool { return d.Shape(i).Rank < 0 }

// Indices returns every row of the given kind in index order.
func (d *DS) Indices(kind topo.Kind) []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []int
	for i, s := range d.shapes {
		if s.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

// SubShapes returns the distinct rows of the given kind below row i,
// including i itself when it matches.
func (d *DS) SubShapes(i int, kind topo.Kind) []int {
	var out []int
	seen := make(map[int]bool)
	var walk func(int)
	walk = func(j int) {
		if seen[j] {
			return
		}
		seen[j] = true
		s := d.Shape(j)
		if s.Kind == kind {
			out = append(out, j)
			return
		}
		for _, c := range s.Sub {
			walk(c)
		}
	}
	walk(i)
	return out
}

// AddShape appends a new row and returns its index.
func (d *DS) AddShape(info ShapeInfo) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shapes = append(d.shapes, &info)
	return len(d.shapes) - 1
}

// AddVertex appends a new vertex.
func (d *DS) AddVertex(p v3.Vec, tol float64) int {
	return d.AddShape(ShapeInfo{
		Kind:  topo.Vertex,
		Rank:  -1,
		Point: p,
		Tol:   tol,
		Box:   geom.Inflate(geom.BoxOf(p), tol),
		Solid: -1,
	})
}

// AddEdge appends a new edge on seg between vertices v1 (at First) and v2
// (at Last).
func (d *DS) AddEdge(seg geom.Segment, v1, v2 int, tol float64) int {
	p1, p2 := d.Shape(v1), d.Shape(v2)
	return d.AddShape(ShapeInfo{
		Kind:  topo.Edge,
		Rank:  -1,
		Sub:   []int{v1, v2},
		Seg:   seg,
		Tol:   tol,
		Box:   geom.Inflate(geom.BoxOf(p1.Point, p2.Point), math.Max(tol, math.Max(p1.Tol, p2.Tol))),
		Solid: -1,
	})
}

// SetSameDomain records that vertex v is merged into vertex real.
func (d *DS) SetSameDomain(v, real int) {
	d.Shape(v)
	d.Shape(real)
	d.mu.Lock()
	defer d.mu.Unlock()
	rv, rr := d.realLocked(v), d.realLocked(real)
	if rv != rr {
		d.sd[rv] = rr
	}
}

// Real returns the vertex that v has been merged into, or v itself.
func (d *DS) Real(v int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.realLocked(v)
}

func (d *DS) realLocked(v int) int {
	for {
		r, ok := d.sd[v]
		if !ok {
			return v
		}
		v = r
	}
}

// HasSameDomain reports whether v has been merged into another vertex.
func (d *DS) HasSameDomain(v int) bool { return d.Real(v) != v }

// Point returns the position of the vertex v resolves to.
func (d *DS) Point(v int) v3.Vec { return d.Shape(d.Real(v)).Point }

// VertexTol returns the tolerance of the vertex v resolves to.
func (d *DS) VertexTol(v int) float64 { return d.Shape(d.Real(v)).Tol }

// EdgeVertices returns the resolved end vertices of edge e.
func (d *DS) EdgeVertices(e int) (int, int) {
	s := d.Shape(e)
	return d.Real(s.Sub[0]), d.Real(s.Sub[1])
}

// FaceVertices returns the resolved vertices of the boundary of face f.
func (d *DS) FaceVertices(f int) []int {
	var out []int
	for _, e := range d.Shape(f).Sub {
		v1, v2 := d.EdgeVertices(e)
		out = append(out, v1, v2)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
