package topo

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// Volume returns the signed volume enclosed by the faces of s using the
// divergence theorem. Outward-oriented closed shells give a positive volume,
// cavities a negative one.
func Volume(s Shape) float64 {
	var v float64
	for _, f := range s.Explore(Face) {
		for _, l := range f.Loops() {
			v += LoopVolume(l)
		}
	}
	return v
}

// SolidsVolume sums the volumes of the solids of s. A face shared by two
// solids counts once for each. Shapes without solids give Volume(s).
func SolidsVolume(s Shape) float64 {
	solids := s.Explore(Solid)
	if len(solids) == 0 {
		return Volume(s)
	}
	var v float64
	for _, sol := range solids {
		v += Volume(sol)
	}
	return v
}

// LoopVolume returns the signed volume of the cone from the origin over a
// closed planar loop.
func LoopVolume(l []v3.Vec) float64 {
	var v float64
	for i := 1; i+1 < len(l); i++ {
		v += l[0].Dot(l[i].Cross(l[i+1]))
	}
	return v / 6
}

// Area returns the area of a face, holes excluded.
func Area(f Shape) float64 {
	var a float64
	for i, l := range f.Loops() {
		n := geom.NewellNormal(l).Length() / 2
		if i == 0 {
			a += n
		} else {
			a -= n
		}
	}
	return a
}

// BoundingBox returns the axis-aligned box of all vertices of s, enlarged by
// their tolerances.
func BoundingBox(s Shape) (sdf.Box3, bool) {
	vs := s.Explore(Vertex)
	if len(vs) == 0 {
		return sdf.Box3{}, false
	}
	b := geom.Inflate(geom.BoxOf(vs[0].Point()), vs[0].Tolerance())
	for _, v := range vs[1:] {
		b = b.Extend(geom.Inflate(geom.BoxOf(v.Point()), v.Tolerance()))
	}
	return b, true
}

// Count returns the number of distinct sub-shapes of the given kind.
func Count(s Shape, kind Kind) int {
	return len(s.Explore(kind))
}

// MaxTolerance returns the largest vertex, edge or face tolerance in s.
func MaxTolerance(s Shape) float64 {
	var t float64
	for _, k := range []Kind{Vertex, Edge, Face} {
		for _, c := range s.Explore(k) {
			t = math.Max(t, c.Tolerance())
		}
	}
	return t
}

// IsClosed reports whether every edge of a shell or solid is used exactly
// twice with opposite orientations.
func IsClosed(s Shape) bool {
	uses := make(map[int]int)
	for _, f := range s.Explore(Face) {
		for _, w := range f.Wires() {
			for _, e := range w.WireEdges() {
				if e.Orientation() == Forward {
					uses[e.Index()]++
				} else {
					uses[e.Index()]--
				}
			}
		}
	}
	for _, u := range uses {
		if u != 0 {
			return false
		}
	}
	return len(uses) > 0
}
