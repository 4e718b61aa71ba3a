package ds

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/chazu/xylem/pkg/topo"
)

// Pave is a vertex placed on an edge at a curve parameter.
type Pave struct {
	Vertex int
	Param  float64
	Edge   int
}

// Merge reports that vertex Dropped coincided with vertex Kept on an edge.
type Merge struct {
	Kept    int
	Dropped int
}

// PaveSet is the ordered set of paves of one edge. Paves closer than the
// tolerance given to Add are merged. Writes are serialized per edge.
type PaveSet struct {
	mu     sync.Mutex
	edge   int
	v1, v2 int
	real   func(int) int
	paves  []Pave
	closed bool
}

func newPaveSet(edge, v1, v2 int, real func(int) int) *PaveSet {
	return &PaveSet{edge: edge, v1: v1, v2: v2, real: real}
}

// Edge returns the edge the paves lie on.
func (ps *PaveSet) Edge() int { return ps.edge }

// Add inserts p in parameter order. When a pave with the same vertex or
// within tol of p.Param exists, the two merge and the earlier-created (lower
// index) vertex is kept; the returned Merge is valid when ok is true.
func (ps *PaveSet) Add(p Pave, tol float64) (kept Pave, m Merge, ok bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p.Edge = ps.edge
	p.Vertex = ps.real(p.Vertex)
	for i, q := range ps.paves {
		qv := ps.real(q.Vertex)
		if qv != p.Vertex && math.Abs(q.Param-p.Param) > tol {
			continue
		}
		if qv == p.Vertex {
			return q, Merge{}, false
		}
		if p.Vertex < qv {
			ps.paves[i] = p
			ps.sort()
			return p, Merge{Kept: p.Vertex, Dropped: qv}, true
		}
		return q, Merge{Kept: qv, Dropped: p.Vertex}, true
	}
	ps.paves = append(ps.paves, p)
	ps.sort()
	return p, Merge{}, false
}

func (ps *PaveSet) sort() {
	slices.SortStableFunc(ps.paves, func(a, b Pave) int {
		switch {
		case a.Param < b.Param:
			return -1
		case a.Param > b.Param:
			return 1
		}
		return 0
	})
}

// Paves returns a copy of the paves in parameter order.
func (ps *PaveSet) Paves() []Pave {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return slices.Clone(ps.paves)
}

// Len returns the number of paves.
func (ps *PaveSet) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.paves)
}

// Finalize makes the edge's own vertices the first and last paves at
// first and last. Interior paves within tol of an end, or carrying an end
// vertex, are absorbed into it; paves outside the range are discarded.
// Calling Finalize again is a no-op.
func (ps *PaveSet) Finalize(first, last, tol float64) []Merge {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return nil
	}
	ps.closed = true
	v1, v2 := ps.real(ps.v1), ps.real(ps.v2)
	var merges []Merge
	var inner []Pave
	for _, p := range ps.paves {
		pv := ps.real(p.Vertex)
		switch {
		case p.Param < first-tol || p.Param > last+tol:
		case pv == v1 || math.Abs(p.Param-first) <= tol:
			if pv != v1 {
				merges = append(merges, Merge{Kept: v1, Dropped: pv})
			}
		case pv == v2 || math.Abs(p.Param-last) <= tol:
			if pv != v2 {
				merges = append(merges, Merge{Kept: v2, Dropped: pv})
			}
		default:
			inner = append(inner, p)
		}
	}
	ps.paves = append([]Pave{{Vertex: v1, Param: first, Edge: ps.edge}}, inner...)
	ps.paves = append(ps.paves, Pave{Vertex: v2, Param: last, Edge: ps.edge})
	return merges
}

// SplitIntoBlocks returns one pave block per pair of consecutive paves.
func (ps *PaveSet) SplitIntoBlocks() []*PaveBlock {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	var out []*PaveBlock
	for i := 0; i+1 < len(ps.paves); i++ {
		out = append(out, &PaveBlock{
			Edge:      ps.edge,
			Pave1:     ps.paves[i],
			Pave2:     ps.paves[i+1],
			SplitEdge: -1,
		})
	}
	return out
}

// PaveBlock is the portion of an edge between two consecutive paves.
// SplitEdge is the row of the split edge built for it, -1 until then.
type PaveBlock struct {
	Edge         int
	Pave1, Pave2 Pave
	SplitEdge    int
}

// Range returns the parameter range of the block.
func (pb *PaveBlock) Range() (float64, float64) {
	return pb.Pave1.Param, pb.Pave2.Param
}

// Length returns the parametric length, equal to the arc length for lines.
func (pb *PaveBlock) Length() float64 {
	return pb.Pave2.Param - pb.Pave1.Param
}

// Mid returns the middle parameter.
func (pb *PaveBlock) Mid() float64 {
	return (pb.Pave1.Param + pb.Pave2.Param) / 2
}

// Within reports whether the block lies inside the parameter range r,
// extended by tol.
func (pb *PaveBlock) Within(r [2]float64, tol float64) bool {
	return pb.Pave1.Param >= r[0]-tol && pb.Pave2.Param <= r[1]+tol
}

func (pb *PaveBlock) String() string {
	return fmt.Sprintf("pb(e%d %d@%.6g-%d@%.6g)", pb.Edge, pb.Pave1.Vertex, pb.Pave1.Param, pb.Pave2.Vertex, pb.Pave2.Param)
}

// PaveSetFor returns the pave set of edge e, creating it on first use.
func (d *DS) PaveSetFor(e int) *PaveSet {
	s := d.Shape(e)
	if s.Kind != topo.Edge {
		panic(fmt.Sprintf("ds: PaveSetFor(%d) on a %s", e, s.Kind))
	}
	d.pmu.Lock()
	defer d.pmu.Unlock()
	ps, ok := d.paveSets[e]
	if !ok {
		ps = newPaveSet(e, s.Sub[0], s.Sub[1], d.Real)
		d.paveSets[e] = ps
	}
	return ps
}

// HasPaveSet reports whether edge e has a pave set.
func (d *DS) HasPaveSet(e int) bool {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	_, ok := d.paveSets[e]
	return ok
}

// SetPaveBlocks stores the split of edge e.
func (d *DS) SetPaveBlocks(e int, pbs []*PaveBlock) {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	d.paveBlocks[e] = pbs
}

// PaveBlocks returns the split of edge e, in parameter order.
func (d *DS) PaveBlocks(e int) []*PaveBlock {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	return d.paveBlocks[e]
}

// BlockVertices returns the resolved vertices of a pave block.
func (d *DS) BlockVertices(pb *PaveBlock) (int, int) {
	return d.Real(pb.Pave1.Vertex), d.Real(pb.Pave2.Vertex)
}
