package intersect

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// EFResult describes how an edge meets a face. A Point is a transversal
// crossing (or a touch at an edge end) inside the face region; an Overlap
// lists the parameter ranges of an edge lying in the face plane that fall
// inside the region.
type EFResult struct {
	Kind     Kind
	Param    float64
	Point    v3.Vec
	Distance float64
	Ranges   [][2]float64
}

// EdgeFace intersects an edge with a face.
func EdgeFace(e Edge, f Face, fuzzy float64) (EFResult, error) {
	if !e.valid() || !f.valid() {
		return EFResult{}, ErrDegenerate
	}
	tol := e.Tol + f.Tol + fuzzy
	pl := f.Plane
	a, b := e.Seg.Start(), e.Seg.End()
	da, db := pl.Distance(a), pl.Distance(b)
	if math.Abs(da) <= tol && math.Abs(db) <= tol && pl.Deviation(e.Seg) <= tol {
		return inPlane(e, f, tol)
	}
	if (da > tol && db > tol) || (da < -tol && db < -tol) {
		return EFResult{}, nil
	}

	var t float64
	switch {
	case math.Abs(da) <= tol && math.Abs(da) <= math.Abs(db):
		t = e.Seg.First
	case math.Abs(db) <= tol:
		t = e.Seg.Last
	default:
		t = e.Seg.First + da/(da-db)*e.Seg.Length()
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return EFResult{}, ErrNoConvergence
	}
	p := e.Seg.Value(t)
	if f.Region.Classify(pl.Project(p), tol) == geom.Out {
		return EFResult{}, nil
	}
	return EFResult{Kind: Point, Param: t, Point: p, Distance: math.Abs(pl.Distance(p))}, nil
}

func inPlane(e Edge, f Face, tol float64) (EFResult, error) {
	pl := f.Plane
	o := pl.Project(e.Seg.Start())
	dir := pl.Project(e.Seg.End()).Sub(o)
	l2 := dir.Length()
	if l2 <= tol {
		return EFResult{}, nil
	}
	dir = dir.MulScalar(1 / l2)
	scale := e.Seg.Length() / l2

	var ranges [][2]float64
	for _, iv := range f.Region.ClipLine(o, dir, tol) {
		lo, hi := math.Max(iv[0], 0), math.Min(iv[1], l2)
		if hi-lo <= tol {
			continue
		}
		ranges = append(ranges, [2]float64{e.Seg.First + lo*scale, e.Seg.First + hi*scale})
	}
	if len(ranges) == 0 {
		return EFResult{}, nil
	}
	return EFResult{Kind: Overlap, Ranges: ranges}, nil
}

// FFResult describes how two faces meet. Coplanar faces whose regions touch
// set Coplanar and carry no curves. Otherwise Curves are the section segments
// common to both regions and Points are isolated touches.
type FFResult struct {
	Coplanar bool
	Curves   []geom.Segment
	Points   []v3.Vec
}

// FaceFace intersects two faces. The plane/plane line is clipped against both
// regions and the common parameter ranges become section curves; each curve is
// validated at NControl points against both planes.
func FaceFace(f1, f2 Face, fuzzy float64) (FFResult, error) {
	if !f1.valid() || !f2.valid() {
		return FFResult{}, ErrDegenerate
	}
	tol := f1.Tol + f2.Tol + fuzzy
	n1, n2 := f1.Plane.Normal, f2.Plane.Normal
	d := n1.Cross(n2)
	sn := d.Length()
	if sn <= 1e-9 {
		if math.Abs(f2.Plane.Distance(f1.Plane.Origin)) > tol {
			return FFResult{}, nil
		}
		return FFResult{Coplanar: regionsTouch(f1, f2, tol)}, nil
	}

	c := n1.Dot(n2)
	det := 1 - c*c
	h1 := n1.Dot(f1.Plane.Origin)
	h2 := n2.Dot(f2.Plane.Origin)
	p0 := n1.MulScalar((h1 - h2*c) / det).Add(n2.MulScalar((h2 - h1*c) / det))
	if !geom.Finite(p0) {
		return FFResult{}, ErrNoConvergence
	}
	line := &geom.Line{Origin: p0, Dir: d.MulScalar(1 / sn)}
	line.Origin = line.Value(line.Parameter(f1.Plane.Origin))

	var res FFResult
	for _, iv := range geom.IntersectIntervals(clip(f1, line, tol), clip(f2, line, tol)) {
		if iv[1]-iv[0] <= tol {
			res.Points = append(res.Points, line.Value((iv[0]+iv[1])/2))
			continue
		}
		seg := geom.Segment{Line: line, First: iv[0], Last: iv[1]}
		if f1.Plane.Deviation(seg) > tol || f2.Plane.Deviation(seg) > tol {
			return FFResult{}, ErrNoConvergence
		}
		res.Curves = append(res.Curves, seg)
	}
	return res, nil
}

// clip returns the parameter ranges of l inside the face region.
func clip(f Face, l *geom.Line, tol float64) [][2]float64 {
	o := f.Plane.Project(l.Origin)
	dd := f.Plane.ProjectDir(l.Dir)
	n := dd.Length()
	if n <= geom.Angular {
		return nil
	}
	ivs := f.Region.ClipLine(o, dd.MulScalar(1/n), tol)
	for i := range ivs {
		ivs[i][0] /= n
		ivs[i][1] /= n
	}
	return ivs
}

// regionsTouch reports whether two coplanar face regions share any point.
func regionsTouch(f1, f2 Face, tol float64) bool {
	into := func(from, to Face) [][]v2.Vec {
		loops := make([][]v2.Vec, len(from.Region.Loops))
		for i, l := range from.Region.Loops {
			for _, uv := range l {
				loops[i] = append(loops[i], to.Plane.Project(from.Plane.Value(uv)))
			}
		}
		return loops
	}
	b := into(f2, f1)
	a := f1.Region.Loops
	for _, l := range b {
		for _, p := range l {
			if f1.Region.Classify(p, tol) != geom.Out {
				return true
			}
		}
	}
	bb := geom.Polygon2{Loops: b}
	for _, l := range a {
		for _, p := range l {
			if bb.Classify(p, tol) != geom.Out {
				return true
			}
		}
	}
	for _, la := range a {
		for i, p := range la {
			q := la[(i+1)%len(la)]
			for _, lb := range b {
				for j, r := range lb {
					if segmentsCross(p, q, r, lb[(j+1)%len(lb)]) {
						return true
					}
				}
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d v2.Vec) bool {
	d1 := geom.Cross2(b.Sub(a), c.Sub(a))
	d2 := geom.Cross2(b.Sub(a), d.Sub(a))
	d3 := geom.Cross2(d.Sub(c), a.Sub(c))
	d4 := geom.Cross2(d.Sub(c), b.Sub(c))
	return d1*d2 < 0 && d3*d4 < 0
}
