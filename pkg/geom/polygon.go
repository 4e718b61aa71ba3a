package geom

import (
	"math"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// State is the position of a point relative to a region.
type State int

const (
	Out State = iota
	On
	In
)

func (s State) String() string {
	switch s {
	case Out:
		return "out"
	case On:
		return "on"
	case In:
		return "in"
	default:
		return "unknown"
	}
}

// Polygon2 is a planar region bounded by closed loops. Loops[0] is the outer
// boundary, any further loops are holes. Classification uses the even-odd rule
// so loop orientation does not matter here.
type Polygon2 struct {
	Loops [][]v2.Vec
}

// SignedArea returns the signed area of a closed loop, positive when
// counter-clockwise.
func SignedArea(loop []v2.Vec) float64 {
	var a float64
	for i, p := range loop {
		q := loop[(i+1)%len(loop)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// Area returns the outer area minus the hole areas.
func (pg Polygon2) Area() float64 {
	var a float64
	for i, l := range pg.Loops {
		if i == 0 {
			a += math.Abs(SignedArea(l))
		} else {
			a -= math.Abs(SignedArea(l))
		}
	}
	return a
}

// Bounds returns the 2D bounding rectangle of all loops.
func (pg Polygon2) Bounds() (lo, hi v2.Vec) {
	lo = v2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi = v2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, l := range pg.Loops {
		for _, p := range l {
			lo = v2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
			hi = v2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
		}
	}
	return lo, hi
}

// Classify returns On when p is within tol of a boundary loop, otherwise In or Out.
func (pg Polygon2) Classify(p v2.Vec, tol float64) State {
	inside := false
	for _, l := range pg.Loops {
		for i, a := range l {
			b := l[(i+1)%len(l)]
			if SegmentDistance2(p, a, b) <= tol {
				return On
			}
			if (a.Y > p.Y) != (b.Y > p.Y) {
				x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
				if x > p.X {
					inside = !inside
				}
			}
		}
	}
	if inside {
		return In
	}
	return Out
}

// ClipLine returns the parameter intervals of the line o + t*d (d unit length)
// that lie inside the region or on its boundary, in increasing order.
// Intervals shorter than tol are dropped.
func (pg Polygon2) ClipLine(o, d v2.Vec, tol float64) [][2]float64 {
	var ts []float64
	for _, l := range pg.Loops {
		for i, a := range l {
			b := l[(i+1)%len(l)]
			w := a.Sub(o)
			if math.Abs(Cross2(d, w)) <= tol {
				ts = append(ts, w.Dot(d))
			}
			e := b.Sub(a)
			den := Cross2(d, e)
			if math.Abs(den) <= Angular*e.Length() {
				continue
			}
			s := Cross2(w, d) / den
			if s >= 0 && s <= 1 {
				ts = append(ts, Cross2(w, e)/den)
			}
		}
	}
	if len(ts) < 2 {
		return nil
	}
	slices.Sort(ts)
	ts = dedupe(ts, tol)

	var out [][2]float64
	for i := 0; i+1 < len(ts); i++ {
		t0, t1 := ts[i], ts[i+1]
		m := (t0 + t1) / 2
		p := v2.Vec{X: o.X + m*d.X, Y: o.Y + m*d.Y}
		if pg.Classify(p, tol) == Out {
			continue
		}
		if n := len(out); n > 0 && out[n-1][1] == t0 {
			out[n-1][1] = t1
			continue
		}
		out = append(out, [2]float64{t0, t1})
	}
	return slices.DeleteFunc(out, func(r [2]float64) bool { return r[1]-r[0] <= tol })
}

// IntersectIntervals returns the pairwise overlaps of two sorted interval lists.
func IntersectIntervals(a, b [][2]float64) [][2]float64 {
	var out [][2]float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := math.Max(a[i][0], b[j][0])
		hi := math.Min(a[i][1], b[j][1])
		if lo <= hi {
			out = append(out, [2]float64{lo, hi})
		}
		if a[i][1] < b[j][1] {
			i++
		} else {
			j++
		}
	}
	return out
}

// InteriorPoint returns a point strictly inside the region, chosen along a
// horizontal scanline that avoids every vertex so crossings are unambiguous.
// Among candidate scanlines the one giving the roomiest interval wins.
func (pg Polygon2) InteriorPoint() (v2.Vec, bool) {
	var ys []float64
	for _, l := range pg.Loops {
		for _, p := range l {
			ys = append(ys, p.Y)
		}
	}
	slices.Sort(ys)
	ys = slices.Compact(ys)

	var (
		best  v2.Vec
		score = -1.0
	)
	for i := 0; i+1 < len(ys); i++ {
		gap := ys[i+1] - ys[i]
		if gap <= 0 || gap/2 <= score {
			continue
		}
		y := (ys[i] + ys[i+1]) / 2
		xs := pg.crossings(y)
		for k := 0; k+1 < len(xs); k += 2 {
			w := xs[k+1] - xs[k]
			if s := math.Min(w, gap) / 2; s > score {
				score = s
				best = v2.Vec{X: (xs[k] + xs[k+1]) / 2, Y: y}
			}
		}
	}
	return best, score > 0
}

func (pg Polygon2) crossings(y float64) []float64 {
	var xs []float64
	for _, l := range pg.Loops {
		for i, a := range l {
			b := l[(i+1)%len(l)]
			if (a.Y > y) != (b.Y > y) {
				xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
			}
		}
	}
	slices.Sort(xs)
	return xs
}

// Cross2 returns the z component of the cross product of two plane vectors.
func Cross2(a, b v2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}

// SegmentDistance2 returns the distance from p to the segment [a, b].
func SegmentDistance2(p, a, b v2.Vec) float64 {
	e := b.Sub(a)
	l2 := e.Dot(e)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := clamp(p.Sub(a).Dot(e)/l2, 0, 1)
	q := v2.Vec{X: a.X + t*e.X, Y: a.Y + t*e.Y}
	return p.Sub(q).Length()
}

func dedupe(sorted []float64, tol float64) []float64 {
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t-out[len(out)-1] > tol {
			out = append(out, t)
		}
	}
	return out
}
