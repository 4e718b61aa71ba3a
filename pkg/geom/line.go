package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// Confusion is the distance below which two points are indistinguishable.
	Confusion = 1e-7

	// Angular is the sine below which two directions are parallel.
	Angular = 1e-12

	// NControl is the number of control points sampled when bounding the
	// deviation of an edge from another carrier.
	NControl = 23
)

// Line is an unbounded line parameterized by arc length: Value(t) = Origin + t*Dir.
// Dir is always unit length.
type Line struct {
	Origin v3.Vec
	Dir    v3.Vec
}

// NewLine returns the line through a and b together with the parameter of b.
// Returns nil when the points coincide.
func NewLine(a, b v3.Vec) (*Line, float64) {
	d := b.Sub(a)
	n := d.Length()
	if n <= Confusion {
		return nil, 0
	}
	return &Line{Origin: a, Dir: d.MulScalar(1 / n)}, n
}

// Value returns the point at parameter t.
func (l *Line) Value(t float64) v3.Vec {
	return l.Origin.Add(l.Dir.MulScalar(t))
}

// Parameter returns the parameter of the orthogonal projection of p.
func (l *Line) Parameter(p v3.Vec) float64 {
	return p.Sub(l.Origin).Dot(l.Dir)
}

// Distance returns the distance from p to the line.
func (l *Line) Distance(p v3.Vec) float64 {
	return p.Sub(l.Value(l.Parameter(p))).Length()
}

// Segment is the bounded portion [First, Last] of a line.
type Segment struct {
	Line        *Line
	First, Last float64
}

// NewSegment returns the segment from a to b, parameterized from 0.
func NewSegment(a, b v3.Vec) (Segment, bool) {
	l, n := NewLine(a, b)
	if l == nil {
		return Segment{}, false
	}
	return Segment{Line: l, First: 0, Last: n}, true
}

// Start returns the point at First.
func (s Segment) Start() v3.Vec { return s.Line.Value(s.First) }

// End returns the point at Last.
func (s Segment) End() v3.Vec { return s.Line.Value(s.Last) }

// Length returns Last - First.
func (s Segment) Length() float64 { return s.Last - s.First }

// Value returns the point at parameter t of the underlying line.
func (s Segment) Value(t float64) v3.Vec { return s.Line.Value(t) }

// Sub returns the segment restricted to [t1, t2] on the same line.
func (s Segment) Sub(t1, t2 float64) Segment {
	return Segment{Line: s.Line, First: t1, Last: t2}
}

// Distance returns the distance from p to the segment and the parameter of
// the closest point.
func (s Segment) Distance(p v3.Vec) (float64, float64) {
	t := clamp(s.Line.Parameter(p), s.First, s.Last)
	return p.Sub(s.Line.Value(t)).Length(), t
}

// Box returns the bounding box of the segment enlarged by tol on every side.
func (s Segment) Box(tol float64) sdf.Box3 {
	return Inflate(BoxOf(s.Start(), s.End()), tol)
}

// Samples returns n parameters evenly spaced strictly inside [First, Last].
func (s Segment) Samples(n int) []float64 {
	out := make([]float64, n)
	step := s.Length() / float64(n+1)
	for i := range out {
		out[i] = s.First + step*float64(i+1)
	}
	return out
}

// Finite reports whether every component of v is a finite number.
func Finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
