// Package intersect implements the tolerant primitive intersectors used by
// the pave filler: vertex/vertex, vertex/edge, edge/edge, vertex/face,
// edge/face and face/face.
//
// Every test uses the combined tolerance tolA + tolB + fuzzy. Absence of an
// intersection is a normal result; an error is returned only when the
// computation itself breaks down (non-finite intermediates, or a result that
// fails control-point validation).
package intersect

import (
	"errors"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

var (
	// ErrDegenerate reports geometry that cannot be intersected, such as a
	// zero-length edge direction.
	ErrDegenerate = errors.New("intersect: degenerate geometry")

	// ErrNoConvergence reports a result that failed validation against the
	// input carriers.
	ErrNoConvergence = errors.New("intersect: result failed validation")
)

// Edge is a bounded line segment with its tolerance.
type Edge struct {
	Seg geom.Segment
	Tol float64
}

// Face is a planar polygonal region with its tolerance. Region is expressed
// in the in-plane coordinates of Plane.
type Face struct {
	Plane  *geom.Plane
	Region geom.Polygon2
	Tol    float64
}

func (e Edge) valid() bool {
	return e.Seg.Line != nil && geom.Finite(e.Seg.Line.Dir) && geom.Finite(e.Seg.Line.Origin)
}

func (f Face) valid() bool {
	return f.Plane != nil && geom.Finite(f.Plane.Normal) && len(f.Region.Loops) > 0
}

// VertexVertex reports whether two points coincide within tol1+tol2+fuzzy,
// returning their distance.
func VertexVertex(p1 v3.Vec, tol1 float64, p2 v3.Vec, tol2, fuzzy float64) (float64, bool) {
	d := p1.Sub(p2).Length()
	return d, d <= tol1+tol2+fuzzy
}

// VEResult is a vertex lying on an edge.
type VEResult struct {
	Param    float64
	Distance float64
}

// VertexEdge projects p onto the edge. The projection must fall inside the
// edge's parameter range, extended by the combined tolerance and clamped.
func VertexEdge(p v3.Vec, tol float64, e Edge, fuzzy float64) (VEResult, bool, error) {
	if !e.valid() || !geom.Finite(p) {
		return VEResult{}, false, ErrDegenerate
	}
	tolSum := tol + e.Tol + fuzzy
	t := e.Seg.Line.Parameter(p)
	if t < e.Seg.First-tolSum || t > e.Seg.Last+tolSum {
		return VEResult{}, false, nil
	}
	t = math.Max(e.Seg.First, math.Min(e.Seg.Last, t))
	d := p.Sub(e.Seg.Value(t)).Length()
	if d > tolSum {
		return VEResult{}, false, nil
	}
	return VEResult{Param: t, Distance: d}, true, nil
}

// VFResult is a vertex lying on a face.
type VFResult struct {
	UV         v2.Vec
	Distance   float64
	OnBoundary bool
}

// VertexFace tests p against the face plane and region.
func VertexFace(p v3.Vec, tol float64, f Face, fuzzy float64) (VFResult, bool, error) {
	if !f.valid() || !geom.Finite(p) {
		return VFResult{}, false, ErrDegenerate
	}
	tolSum := tol + f.Tol + fuzzy
	d := math.Abs(f.Plane.Distance(p))
	if d > tolSum {
		return VFResult{}, false, nil
	}
	uv := f.Plane.Project(p)
	st := f.Region.Classify(uv, tolSum)
	if st == geom.Out {
		return VFResult{}, false, nil
	}
	return VFResult{UV: uv, Distance: d, OnBoundary: st == geom.On}, true, nil
}

// NewEdge returns the edge from a to b with tolerance tol.
func NewEdge(a, b v3.Vec, tol float64) (Edge, bool) {
	s, ok := geom.NewSegment(a, b)
	return Edge{Seg: s, Tol: tol}, ok
}

// NewFace builds a face from closed loops in model space; the first loop is
// the outer boundary and fixes the plane orientation.
func NewFace(loops [][]v3.Vec, tol float64) (Face, bool) {
	if len(loops) == 0 {
		return Face{}, false
	}
	pl := geom.PlaneFromLoop(loops[0])
	if pl == nil {
		return Face{}, false
	}
	region := geom.Polygon2{Loops: make([][]v2.Vec, len(loops))}
	for i, l := range loops {
		for _, p := range l {
			region.Loops[i] = append(region.Loops[i], pl.Project(p))
		}
	}
	return Face{Plane: pl, Region: region, Tol: tol}, true
}
