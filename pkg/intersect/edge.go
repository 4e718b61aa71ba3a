package intersect

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// Kind classifies the outcome of an edge/edge or edge/face test.
type Kind int

const (
	None Kind = iota
	Point
	Overlap
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Point:
		return "point"
	case Overlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// EEResult describes how two edges meet. For Point, Param1/Param2 locate the
// crossing on each edge. For Overlap, Range1/Range2 bound the shared portion.
type EEResult struct {
	Kind     Kind
	Param1   float64
	Param2   float64
	Point    v3.Vec
	Distance float64
	Range1   [2]float64
	Range2   [2]float64
}

// EdgeEdge intersects two edges. Collinear edges sharing a portion longer
// than the combined tolerance produce an Overlap; otherwise the closest
// approach of the two segments is reported as a Point when within tolerance.
// EdgeEdge(e2, e1) is EdgeEdge(e1, e2) with the per-edge fields swapped.
func EdgeEdge(e1, e2 Edge, fuzzy float64) (EEResult, error) {
	if !e1.valid() || !e2.valid() {
		return EEResult{}, ErrDegenerate
	}
	if leads(e2, e1) {
		r, err := edgeEdge(e2, e1, fuzzy)
		return r.swapped(), err
	}
	return edgeEdge(e1, e2, fuzzy)
}

// leads reports whether a is the reference edge of the pair: the longer one,
// ties broken by parameter range and then endpoint coordinates.
func leads(a, b Edge) bool {
	ka := [...]float64{-a.Seg.Length(), a.Seg.First, a.Seg.Last,
		a.Seg.Start().X, a.Seg.Start().Y, a.Seg.Start().Z, a.Seg.End().X, a.Seg.End().Y, a.Seg.End().Z}
	kb := [...]float64{-b.Seg.Length(), b.Seg.First, b.Seg.Last,
		b.Seg.Start().X, b.Seg.Start().Y, b.Seg.Start().Z, b.Seg.End().X, b.Seg.End().Y, b.Seg.End().Z}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return false
}

func (r EEResult) swapped() EEResult {
	r.Param1, r.Param2 = r.Param2, r.Param1
	r.Range1, r.Range2 = r.Range2, r.Range1
	return r
}

// edgeEdge tests e2 against the line of the reference edge e1.
func edgeEdge(e1, e2 Edge, fuzzy float64) (EEResult, error) {
	tol := e1.Tol + e2.Tol + fuzzy
	l1 := e1.Seg.Line
	if l1.Distance(e2.Seg.Start()) <= tol && l1.Distance(e2.Seg.End()) <= tol {
		return collinear(e1, e2, tol)
	}

	s, t, c1, c2 := closest(e1.Seg, e2.Seg)
	if math.IsNaN(s) || math.IsNaN(t) {
		return EEResult{}, ErrNoConvergence
	}
	d := c1.Sub(c2).Length()
	if d > tol {
		return EEResult{}, nil
	}
	return EEResult{
		Kind:     Point,
		Param1:   s,
		Param2:   t,
		Point:    c1.Add(c2).MulScalar(0.5),
		Distance: d,
	}, nil
}

func collinear(e1, e2 Edge, tol float64) (EEResult, error) {
	l1, l2 := e1.Seg.Line, e2.Seg.Line
	p, q := l1.Parameter(e2.Seg.Start()), l1.Parameter(e2.Seg.End())
	r0 := math.Max(e1.Seg.First, math.Min(p, q))
	r1 := math.Min(e1.Seg.Last, math.Max(p, q))
	if r1-r0 < -tol {
		return EEResult{}, nil
	}
	if r1-r0 <= tol {
		t1 := (r0 + r1) / 2
		pt := l1.Value(t1)
		d, t2 := e2.Seg.Distance(pt)
		if d > tol {
			return EEResult{}, nil
		}
		return EEResult{Kind: Point, Param1: t1, Param2: t2, Point: pt, Distance: d}, nil
	}
	s0 := l2.Parameter(l1.Value(r0))
	s1 := l2.Parameter(l1.Value(r1))
	s0, s1 = math.Min(s0, s1), math.Max(s0, s1)
	s0 = math.Max(s0, e2.Seg.First)
	s1 = math.Min(s1, e2.Seg.Last)
	return EEResult{
		Kind:   Overlap,
		Range1: [2]float64{r0, r1},
		Range2: [2]float64{s0, s1},
	}, nil
}

// closest returns the parameters and points of closest approach between two
// segments, following the clamped formulation of Ericson's
// ClosestPtSegmentSegment.
func closest(a, b geom.Segment) (float64, float64, v3.Vec, v3.Vec) {
	la, lb := a.Length(), b.Length()
	d1 := a.Line.Dir.MulScalar(la)
	d2 := b.Line.Dir.MulScalar(lb)
	r := a.Start().Sub(b.Start())
	aa, e := d1.Dot(d1), d2.Dot(d2)
	f := d2.Dot(r)
	c := d1.Dot(r)
	bb := d1.Dot(d2)
	den := aa*e - bb*bb

	var s, t float64
	if den > geom.Angular*aa*e {
		s = clamp01((bb*f - c*e) / den)
	}
	t = (bb*s + f) / e
	switch {
	case t < 0:
		t = 0
		s = clamp01(-c / aa)
	case t > 1:
		t = 1
		s = clamp01((bb - c) / aa)
	}
	c1 := a.Start().Add(d1.MulScalar(s))
	c2 := b.Start().Add(d2.MulScalar(t))
	return a.First + s*la, b.First + t*lb, c1, c2
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
