package brep

import (
	"cmp"
	"math"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/xylem/pkg/geom"
)

// triangulate splits a polygon given as an outer loop turning
// counter-clockwise followed by clockwise holes into triangles. Triangle
// corners index the loop points in the order given.
func triangulate(loops [][]v2.Vec) [][3]int {
	var pts []v2.Vec
	var rings [][]int
	for _, l := range loops {
		ring := make([]int, len(l))
		for i, p := range l {
			ring[i] = len(pts)
			pts = append(pts, p)
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 || len(rings[0]) < 3 {
		return nil
	}
	lo, hi := geom.Polygon2{Loops: loops}.Bounds()
	d := hi.Sub(lo).Length()
	eps := 1e-12 * d * d

	poly := rings[0]
	holes := slices.Clone(rings[1:])
	right := func(h []int) float64 {
		x := math.Inf(-1)
		for _, i := range h {
			x = max(x, pts[i].X)
		}
		return x
	}
	slices.SortStableFunc(holes, func(a, b []int) int { return cmp.Compare(right(b), right(a)) })
	for i, h := range holes {
		if len(h) < 3 {
			continue
		}
		poly = bridge(pts, poly, h, holes[i+1:])
	}
	return earClip(pts, poly, eps)
}

// bridge joins a hole to poly through the shortest segment from the hole's
// rightmost vertex to a poly vertex that crosses no boundary.
func bridge(pts []v2.Vec, poly, hole []int, rest [][]int) []int {
	m := 0
	for i, v := range hole {
		if pts[v].X > pts[hole[m]].X || (pts[v].X == pts[hole[m]].X && pts[v].Y < pts[hole[m]].Y) {
			m = i
		}
	}
	pm := pts[hole[m]]
	order := make([]int, len(poly))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		da, db := pts[poly[a]].Sub(pm), pts[poly[b]].Sub(pm)
		return cmp.Compare(da.Dot(da), db.Dot(db))
	})

	rings := append([][]int{poly, hole}, rest...)
	j := order[0]
	for _, cand := range order {
		if visible(pts, pm, pts[poly[cand]], rings) {
			j = cand
			break
		}
	}

	out := make([]int, 0, len(poly)+len(hole)+2)
	out = append(out, poly[:j+1]...)
	out = append(out, hole[m:]...)
	out = append(out, hole[:m+1]...)
	out = append(out, poly[j:]...)
	return out
}

// visible reports whether the open segment a-b crosses no ring edge.
func visible(pts []v2.Vec, a, b v2.Vec, rings [][]int) bool {
	for _, r := range rings {
		for i, u := range r {
			p, q := pts[u], pts[r[(i+1)%len(r)]]
			if p == a || p == b || q == a || q == b {
				continue
			}
			if segmentsMeet(a, b, p, q) {
				return false
			}
		}
	}
	return true
}

func segmentsMeet(a, b, p, q v2.Vec) bool {
	d1 := geom.Cross2(b.Sub(a), p.Sub(a))
	d2 := geom.Cross2(b.Sub(a), q.Sub(a))
	d3 := geom.Cross2(q.Sub(p), a.Sub(p))
	d4 := geom.Cross2(q.Sub(p), b.Sub(p))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	on := func(d float64, s, e, x v2.Vec) bool {
		return d == 0 && geom.SegmentDistance2(x, s, e) == 0
	}
	return on(d1, a, b, p) || on(d2, a, b, q) || on(d3, p, q, a) || on(d4, p, q, b)
}

// earClip triangulates a simple counter-clockwise polygon that may touch
// itself along bridge segments.
func earClip(pts []v2.Vec, idx []int, eps float64) [][3]int {
	idx = slices.Clone(idx)
	var tris [][3]int
	for len(idx) > 3 {
		n := len(idx)
		ear, flattest, flat := -1, -1, math.Inf(1)
		for i := range n {
			a, b, c := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
			cr := geom.Cross2(pts[b].Sub(pts[a]), pts[c].Sub(pts[b]))
			if math.Abs(cr) < flat {
				flattest, flat = i, math.Abs(cr)
			}
			if cr <= eps || !empty(pts, idx, a, b, c) {
				continue
			}
			ear = i
			break
		}
		if ear < 0 {
			// No clean ear: drop the flattest corner, keeping its
			// triangle when it has area.
			ear = flattest
			if flat > eps {
				tris = append(tris, [3]int{idx[(ear+n-1)%n], idx[ear], idx[(ear+1)%n]})
			}
			idx = slices.Delete(idx, ear, ear+1)
			continue
		}
		tris = append(tris, [3]int{idx[(ear+n-1)%n], idx[ear], idx[(ear+1)%n]})
		idx = slices.Delete(idx, ear, ear+1)
	}
	if len(idx) == 3 {
		a, b, c := pts[idx[0]], pts[idx[1]], pts[idx[2]]
		if geom.Cross2(b.Sub(a), c.Sub(b)) > eps {
			tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
		}
	}
	return tris
}

// empty reports whether no polygon vertex other than the corners lies in
// or on the triangle a, b, c.
func empty(pts []v2.Vec, idx []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	for _, k := range idx {
		p := pts[k]
		if p == pa || p == pb || p == pc {
			continue
		}
		if geom.Cross2(pb.Sub(pa), p.Sub(pa)) >= 0 &&
			geom.Cross2(pc.Sub(pb), p.Sub(pb)) >= 0 &&
			geom.Cross2(pa.Sub(pc), p.Sub(pc)) >= 0 {
			return false
		}
	}
	return true
}
