package builder

import (
	"cmp"
	"math"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/xylem/internal/unionfind"
	"github.com/chazu/xylem/pkg/geom"
)

// arrangement is the planar graph of the split edges lying in one face,
// in the face's frame. Vertices are resolved data-structure rows.
type arrangement struct {
	pos  map[int]v2.Vec
	segs [][2]int
	seen map[[2]int]bool
}

func newArrangement() *arrangement {
	return &arrangement{pos: make(map[int]v2.Vec), seen: make(map[[2]int]bool)}
}

// add inserts the segment a-b once. Degenerate segments are ignored.
func (ar *arrangement) add(a, b int, pa, pb v2.Vec) {
	if a == b {
		return
	}
	k := edgeKey(a, b)
	if ar.seen[k] {
		return
	}
	ar.seen[k] = true
	ar.pos[a], ar.pos[b] = pa, pb
	ar.segs = append(ar.segs, k)
}

func edgeKey(a, b int) [2]int { return [2]int{min(a, b), max(a, b)} }

// region is a bounded face of the arrangement: an outer cycle turning
// counter-clockwise and hole cycles turning clockwise.
type region struct {
	outer []int
	holes [][]int
}

// polygon returns the region in face coordinates.
func (ar *arrangement) polygon(r region) geom.Polygon2 {
	loops := make([][]v2.Vec, 0, 1+len(r.holes))
	for _, l := range append([][]int{r.outer}, r.holes...) {
		pts := make([]v2.Vec, len(l))
		for i, v := range l {
			pts[i] = ar.pos[v]
		}
		loops = append(loops, pts)
	}
	return geom.Polygon2{Loops: loops}
}

type walk struct {
	verts []int
	area  float64
	comp  int
}

// regions returns the bounded faces of the arrangement. Dangling and bridge
// segments do not bound anything and are dropped first.
func (ar *arrangement) regions() []region {
	alive := make([]bool, len(ar.segs))
	for i := range alive {
		alive[i] = true
	}
	var walks []walk
	for range len(ar.segs) + 1 {
		var bridges []int
		walks, bridges = ar.walks(alive)
		if len(bridges) == 0 {
			break
		}
		for _, k := range bridges {
			alive[k] = false
		}
	}

	var pos, neg []walk
	for _, w := range walks {
		switch {
		case w.area > geom.Confusion*geom.Confusion:
			pos = append(pos, w)
		case w.area < -geom.Confusion*geom.Confusion:
			neg = append(neg, w)
		}
	}
	out := make([]region, len(pos))
	for i, w := range pos {
		out[i].outer = w.verts
	}
	for _, n := range neg {
		a, b := ar.pos[n.verts[0]], ar.pos[n.verts[1]]
		mid := a.Add(b).MulScalar(0.5)
		best := -1
		for i, p := range pos {
			if p.comp == n.comp {
				continue
			}
			pg := ar.polygon(region{outer: p.verts})
			if pg.Classify(mid, 0) != geom.In {
				continue
			}
			if best < 0 || p.area < pos[best].area {
				best = i
			}
		}
		if best >= 0 {
			out[best].holes = append(out[best].holes, n.verts)
		}
	}
	return out
}

// walks traces every closed walk keeping its region on the left, turning
// to the next edge clockwise at each vertex. A segment walked in both
// directions by the same walk is a bridge.
func (ar *arrangement) walks(alive []bool) ([]walk, []int) {
	from := func(h int) int { return ar.segs[h/2][h%2] }
	to := func(h int) int { return ar.segs[h/2][1-h%2] }

	out := make(map[int][]int)
	uf := unionfind.New()
	for k, s := range ar.segs {
		if !alive[k] {
			continue
		}
		out[s[0]] = append(out[s[0]], 2*k)
		out[s[1]] = append(out[s[1]], 2*k+1)
		uf.Union(s[0], s[1])
	}
	at := make(map[int]int)
	for v, hs := range out {
		p := ar.pos[v]
		angle := func(h int) float64 {
			d := ar.pos[to(h)].Sub(p)
			return math.Atan2(d.Y, d.X)
		}
		slices.SortFunc(hs, func(x, y int) int { return cmp.Compare(angle(x), angle(y)) })
		for i, h := range hs {
			at[h] = i
		}
	}
	next := func(h int) int {
		hs := out[to(h)]
		i := at[h^1]
		return hs[(i-1+len(hs))%len(hs)]
	}

	owner := make(map[int]int)
	var walks []walk
	for k := range ar.segs {
		if !alive[k] {
			continue
		}
		for _, h0 := range []int{2 * k, 2*k + 1} {
			if _, ok := owner[h0]; ok {
				continue
			}
			w := walk{comp: uf.Find(from(h0))}
			h := h0
			for range 2*len(ar.segs) + 1 {
				owner[h] = len(walks)
				w.verts = append(w.verts, from(h))
				h = next(h)
				if h == h0 {
					break
				}
			}
			pts := make([]v2.Vec, len(w.verts))
			for i, v := range w.verts {
				pts[i] = ar.pos[v]
			}
			w.area = geom.SignedArea(pts)
			walks = append(walks, w)
		}
	}

	var bridges []int
	for k := range ar.segs {
		if alive[k] && owner[2*k] == owner[2*k+1] {
			bridges = append(bridges, k)
		}
	}
	return walks, bridges
}
