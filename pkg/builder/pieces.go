package builder

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/classify"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/topo"
)

// piece is a part of an argument face bounded by split edges. Loops hold
// resolved vertex rows: the outer loop turns counter-clockwise about the
// face normal, holes clockwise.
type piece struct {
	id    int
	face  int
	rank  int
	solid int
	plane *geom.Plane
	loops [][]int
	point v3.Vec

	// Arguments containing the points just behind and just in front of the
	// piece.
	below, above mask
}

// facet is a piece used with a given orientation.
type facet struct {
	p   *piece
	rev bool
}

func (f facet) normal() v3.Vec {
	if f.rev {
		return f.p.plane.Normal.MulScalar(-1)
	}
	return f.p.plane.Normal
}

// loops returns the vertex loops in the facet's orientation.
func (f facet) loops() [][]int {
	if !f.rev {
		return f.p.loops
	}
	out := make([][]int, len(f.p.loops))
	for i, l := range f.p.loops {
		r := slices.Clone(l)
		slices.Reverse(r)
		out[i] = r
	}
	return out
}

// key identifies the oriented boundary of a facet independently of where
// each loop starts, so coincident pieces of different faces compare equal.
func (f facet) key() string {
	var parts []string
	for i, l := range f.loops() {
		k := 0
		for j, v := range l {
			if v < l[k] {
				k = j
			}
		}
		var b strings.Builder
		for j := range l {
			b.WriteString(strconv.Itoa(l[(k+j)%len(l)]))
			b.WriteByte(',')
		}
		if i == 0 {
			parts = append(parts, "o"+b.String())
		} else {
			parts = append(parts, "h"+b.String())
		}
	}
	slices.Sort(parts[min(1, len(parts)):])
	return strings.Join(parts, "|")
}

// splitFaces cuts every argument face along the pave blocks of its boundary
// edges, the edges of other arguments lying in it and its section edges.
func (b *Builder) splitFaces(ctx context.Context) error {
	b.edges = make(map[[2]int]*ds.PaveBlock)
	faces := b.d.Indices(topo.Face)
	split := make([][]*piece, len(faces))
	err := b.opts.ForEach(ctx, len(faces), func(k int) error {
		split[k] = b.splitFace(faces[k])
		return nil
	})
	if err != nil {
		return err
	}
	for _, ps := range split {
		for _, p := range ps {
			p.id = len(b.pieces)
			b.pieces = append(b.pieces, p)
		}
	}
	for _, e := range b.d.Indices(topo.Edge) {
		for _, pb := range b.d.PaveBlocks(e) {
			u, v := b.d.BlockVertices(pb)
			if _, ok := b.edges[edgeKey(u, v)]; !ok {
				b.edges[edgeKey(u, v)] = b.d.RealPaveBlock(pb)
			}
		}
	}
	return nil
}

func (b *Builder) splitFace(fc int) []*piece {
	s := b.d.Shape(fc)
	pl := s.Face.Plane
	ar := newArrangement()
	add := func(pb *ds.PaveBlock) {
		u, v := b.d.BlockVertices(pb)
		ar.add(u, v, pl.Project(b.d.Point(u)), pl.Project(b.d.Point(v)))
	}
	for _, loop := range s.Loops {
		for _, oe := range loop {
			for _, pb := range b.d.PaveBlocks(oe.Edge) {
				add(pb)
			}
		}
	}
	fi := b.d.FaceInfo(fc)
	for _, pb := range slices.Concat(fi.PaveBlocksIn(), fi.PaveBlocksSc()) {
		add(pb)
	}

	var out []*piece
	for _, r := range ar.regions() {
		uv, ok := ar.polygon(r).InteriorPoint()
		if !ok || s.Face.Region.Classify(uv, geom.Confusion) == geom.Out {
			continue
		}
		loops := append([][]int{r.outer}, r.holes...)
		out = append(out, &piece{
			face:  fc,
			rank:  s.Rank,
			solid: s.Solid,
			plane: pl,
			loops: loops,
			point: pl.Value(uv),
		})
	}
	return out
}

// classifyPieces finds which solid arguments contain the two sides of every
// piece. The own solid of a piece is known to be behind it and not in front.
func (b *Builder) classifyPieces(ctx context.Context) error {
	b.solids = make(map[int]*classify.Solid)
	for _, row := range b.d.Indices(topo.Solid) {
		s := b.d.Shape(row)
		if s.Rank < 0 {
			continue
		}
		c := classify.FromShape(s.Source)
		c.Inverted = b.filler.IsInverted(row)
		b.solids[row] = c
	}
	rows := make([]int, 0, len(b.solids))
	for row := range b.solids {
		rows = append(rows, row)
	}
	slices.Sort(rows)

	eps := b.sampleDistance()
	n := b.d.NumberOfArguments()
	sample := func(q v3.Vec, own int) mask {
		m := newMask(n)
		for _, row := range rows {
			r := b.d.Shape(row).Rank
			if row == own || m.has(r) {
				continue
			}
			if b.solids[row].Contains(q) {
				m.set(r)
			}
		}
		return m
	}
	return b.opts.ForEach(ctx, len(b.pieces), func(k int) error {
		p := b.pieces[k]
		nrm := p.plane.Normal.MulScalar(eps)
		p.below = sample(p.point.Sub(nrm), p.solid)
		p.above = sample(p.point.Add(nrm), p.solid)
		if _, ok := b.solids[p.solid]; ok {
			p.below.set(p.rank)
		}
		return nil
	})
}

// sampleDistance is how far from a piece its two sides are sampled: above
// every tolerance in play, small against the model.
func (b *Builder) sampleDistance() float64 {
	var (
		tol    float64
		lo, hi v3.Vec
		first  = true
	)
	for i := range b.d.NumberOfShapes() {
		s := b.d.Shape(i)
		tol = math.Max(tol, s.Tol)
		if s.Kind != topo.Vertex {
			continue
		}
		if first {
			lo, hi, first = s.Point, s.Point, false
			continue
		}
		lo, hi = lo.Min(s.Point), hi.Max(s.Point)
	}
	return math.Max(50*(tol+b.opts.Fuzzy), 1e-6*hi.Sub(lo).Length())
}

func (p *piece) String() string {
	return fmt.Sprintf("piece %d of face %d (rank %d)", p.id, p.face, p.rank)
}
