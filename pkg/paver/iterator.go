package paver

import (
	"cmp"
	"slices"

	"github.com/deadsy/sdfx/sdf"
	"github.com/dhconnelly/rtreego"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/topo"
)

// pair is a candidate couple of rows. For mixed kinds the lower-dimensional
// shape is i; for equal kinds i < j.
type pair struct{ i, j int }

type entry struct {
	idx  int
	kind topo.Kind
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

func rectOf(b sdf.Box3, grow float64) rtreego.Rect {
	b = geom.Inflate(b, grow)
	size := b.Size()
	r, err := rtreego.NewRect(
		rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z},
		[]float64{size.X, size.Y, size.Z},
	)
	if err != nil {
		// Only non-positive lengths fail, which Inflate rules out.
		panic(err)
	}
	return r
}

// iterator is the broad phase: an R-tree over the inflated boxes of every
// vertex, edge and face of the arguments.
type iterator struct {
	d       *ds.DS
	tree    *rtreego.Rtree
	entries map[topo.Kind][]*entry
	grow    float64
	obb     map[int]geom.OBB
}

func newIterator(d *ds.DS, fuzzy float64, useOBB bool, skip func(int) bool) *iterator {
	it := &iterator{
		d:       d,
		tree:    rtreego.NewTree(3, 8, 32),
		entries: make(map[topo.Kind][]*entry),
		grow:    fuzzy/2 + geom.Confusion,
	}
	if useOBB {
		it.obb = make(map[int]geom.OBB)
	}
	for _, kind := range []topo.Kind{topo.Vertex, topo.Edge, topo.Face} {
		for _, i := range d.Indices(kind) {
			if skip(i) {
				continue
			}
			e := &entry{idx: i, kind: kind, rect: rectOf(d.Shape(i).Box, it.grow)}
			it.entries[kind] = append(it.entries[kind], e)
			it.tree.Insert(e)
			if useOBB {
				it.obb[i] = it.orientedBox(i)
			}
		}
	}
	return it
}

func (it *iterator) orientedBox(i int) geom.OBB {
	s := it.d.Shape(i)
	tol := s.Tol + it.grow
	switch s.Kind {
	case topo.Edge:
		return geom.NewOBB([]v3.Vec{s.Seg.Start(), s.Seg.End()}, geom.FrameAxes(s.Seg.Line.Dir), tol)
	case topo.Face:
		pl := s.Face.Plane
		var pts []v3.Vec
		for _, v := range it.d.FaceVertices(i) {
			pts = append(pts, it.d.Point(v))
		}
		return geom.NewOBB(pts, [3]v3.Vec{pl.Normal, pl.XDir, pl.YDir}, tol)
	default:
		return geom.NewOBB([]v3.Vec{s.Point}, geom.WorldAxes, tol)
	}
}

// Pairs returns the candidate couples of shapes of kinds a and b that come
// from different arguments and whose boxes overlap, in index order.
func (it *iterator) Pairs(a, b topo.Kind) []pair {
	seen := make(map[pair]bool)
	var out []pair
	for _, e := range it.entries[a] {
		ri := it.d.Shape(e.idx).Rank
		for _, s := range it.tree.SearchIntersect(e.rect) {
			o := s.(*entry)
			if o.kind != b || it.d.Shape(o.idx).Rank == ri {
				continue
			}
			p := pair{e.idx, o.idx}
			if a == b && p.i > p.j {
				p.i, p.j = p.j, p.i
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			if it.obb != nil && !it.obb[p.i].Overlaps(it.obb[p.j]) {
				continue
			}
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(x, y pair) int {
		if c := cmp.Compare(x.i, y.i); c != 0 {
			return c
		}
		return cmp.Compare(x.j, y.j)
	})
	return out
}
