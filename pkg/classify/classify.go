// Package classify locates points relative to closed polyhedral boundaries.
//
// Membership is decided by the generalized winding number: the signed solid
// angle subtended by every boundary face, divided by 4π. It is 1 inside an
// outward-oriented closed boundary, 0 outside and changes by one across each
// face, so nested cavities and overlapping shells classify correctly and
// small gaps in the boundary degrade gracefully.
package classify

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/topo"
)

type triangle [3]v3.Vec

// Solid is a closed boundary prepared for point classification.
type Solid struct {
	tris []triangle
	box  sdf.Box3
	// Inverted complements the solid: points are inside where the boundary
	// winds zero times around them.
	Inverted bool
}

// FromShape collects the faces of s with their orientation.
func FromShape(s topo.Shape) *Solid {
	var loops [][]v3.Vec
	for _, f := range s.Explore(topo.Face) {
		loops = append(loops, f.Loops()...)
	}
	return FromLoops(loops)
}

// FromLoops builds a solid from closed planar loops. Outer boundaries turn
// counter-clockwise seen from outside; holes turn the other way.
func FromLoops(loops [][]v3.Vec) *Solid {
	s := &Solid{}
	first := true
	for _, l := range loops {
		if len(l) < 3 {
			continue
		}
		for i := 1; i+1 < len(l); i++ {
			s.tris = append(s.tris, triangle{l[0], l[i], l[i+1]})
		}
		b := geom.BoxOf(l...)
		if first {
			s.box, first = b, false
		} else {
			s.box = s.box.Extend(b)
		}
	}
	return s
}

// IsEmpty reports whether the solid has no boundary.
func (s *Solid) IsEmpty() bool { return len(s.tris) == 0 }

// Box returns the bounding box of the boundary.
func (s *Solid) Box() sdf.Box3 { return s.box }

// Winding returns the generalized winding number of the boundary around p.
func (s *Solid) Winding(p v3.Vec) float64 {
	var omega float64
	for _, t := range s.tris {
		omega += solidAngle(t, p)
	}
	return omega / (4 * math.Pi)
}

// solidAngle is the signed solid angle of triangle t seen from p, after
// Van Oosterom and Strackee.
func solidAngle(t triangle, p v3.Vec) float64 {
	a, b, c := t[0].Sub(p), t[1].Sub(p), t[2].Sub(p)
	la, lb, lc := a.Length(), b.Length(), c.Length()
	num := a.Dot(b.Cross(c))
	den := la*lb*lc + a.Dot(b)*lc + a.Dot(c)*lb + b.Dot(c)*la
	return 2 * math.Atan2(num, den)
}

// Contains reports whether p is inside the solid. Points on the boundary
// get an arbitrary answer; use State to detect them.
func (s *Solid) Contains(p v3.Vec) bool {
	if !s.Inverted && !inBox(s.box, p) {
		return false
	}
	w := s.Winding(p)
	if s.Inverted {
		w++
	}
	return w > 0.5
}

// State classifies p as On when it lies within tol of the boundary, otherwise
// In or Out.
func (s *Solid) State(p v3.Vec, tol float64) geom.State {
	if inBox(geom.Inflate(s.box, tol), p) {
		for _, t := range s.tris {
			if distance(t, p) <= tol {
				return geom.On
			}
		}
	}
	if s.Contains(p) {
		return geom.In
	}
	return geom.Out
}

// Volume returns the signed volume enclosed by the boundary.
func (s *Solid) Volume() float64 {
	var v float64
	for _, t := range s.tris {
		v += t[0].Dot(t[1].Cross(t[2]))
	}
	return v / 6
}

func inBox(b sdf.Box3, p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// distance returns the distance from p to triangle t, following Ericson's
// ClosestPtPointTriangle.
func distance(t triangle, p v3.Vec) float64 {
	a, b, c := t[0], t[1], t[2]
	ab, ac, ap := b.Sub(a), c.Sub(a), p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return ap.Length()
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return bp.Length()
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return p.Sub(a.Add(ab.MulScalar(v))).Length()
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return cp.Length()
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return p.Sub(a.Add(ac.MulScalar(w))).Length()
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return p.Sub(b.Add(c.Sub(b).MulScalar(w))).Length()
	}
	den := 1 / (va + vb + vc)
	v, w := vb*den, vc*den
	q := a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
	if math.IsNaN(q.X) {
		return math.Min(ap.Length(), math.Min(bp.Length(), cp.Length()))
	}
	return p.Sub(q).Length()
}
