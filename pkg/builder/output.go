package builder

import (
	"math"

	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/topo"
)

// output writes result shapes into a fresh arena. Vertices, edges and faces
// are created once and shared by every shape using them.
type output struct {
	d      *ds.DS
	a      *topo.Arena
	blocks map[[2]int]*ds.PaveBlock
	verts  map[int]int
	edges  map[[2]int]int
	faces  map[int]int
	// sources of every result solid, as argument solid rows
	solidFrom map[int][]int
}

func newOutput(d *ds.DS, blocks map[[2]int]*ds.PaveBlock) *output {
	return &output{
		d:         d,
		a:         topo.NewArena(),
		blocks:    blocks,
		verts:     make(map[int]int),
		edges:     make(map[[2]int]int),
		faces:     make(map[int]int),
		solidFrom: make(map[int][]int),
	}
}

func (o *output) vertex(v int) int {
	if i, ok := o.verts[v]; ok {
		return i
	}
	i := o.a.AddVertex(o.d.Point(v), o.d.VertexTol(v))
	o.verts[v] = i
	return i
}

// edge returns the edge joining u and v, traversed from u.
func (o *output) edge(u, v int) topo.Ref {
	k := edgeKey(u, v)
	i, ok := o.edges[k]
	if !ok {
		i = o.a.AddEdge(o.vertex(k[0]), o.vertex(k[1]))
		if pb, ok := o.blocks[k]; ok {
			tol := math.Max(o.a.Node(i).Tolerance, o.d.Shape(pb.Edge).Tol)
			o.a.SetTolerance(i, tol)
		}
		o.edges[k] = i
	}
	if u == k[0] {
		return topo.Ref{Index: i, Orientation: topo.Forward}
	}
	return topo.Ref{Index: i, Orientation: topo.Reversed}
}

// face returns the face of a piece in the facet's orientation. The face is
// stored once, along the piece's own normal.
func (o *output) face(f facet) topo.Ref {
	i, ok := o.faces[f.p.id]
	if !ok {
		wires := make([]int, len(f.p.loops))
		for w, l := range f.p.loops {
			refs := make([]topo.Ref, len(l))
			for j, u := range l {
				refs[j] = o.edge(u, l[(j+1)%len(l)])
			}
			wires[w] = o.a.AddWire(refs...)
		}
		i = o.a.AddFace(f.p.plane, wires...)
		o.faces[f.p.id] = i
	}
	if f.rev {
		return topo.Ref{Index: i, Orientation: topo.Reversed}
	}
	return topo.Ref{Index: i, Orientation: topo.Forward}
}

func (o *output) shell(sh shell) int {
	refs := make([]topo.Ref, len(sh.facets))
	for i, f := range sh.facets {
		refs[i] = o.face(f)
	}
	return o.a.AddShell(refs...)
}

// solid writes s and remembers which argument solids its faces came from.
func (o *output) solid(s solid) topo.Ref {
	shells := []int{o.shell(s.outer)}
	for _, c := range s.cavities {
		shells = append(shells, o.shell(c))
	}
	i := o.a.AddSolid(shells...)
	seen := make(map[int]bool)
	for _, sh := range append([]shell{s.outer}, s.cavities...) {
		for _, f := range sh.facets {
			if r := f.p.solid; r >= 0 && !seen[r] {
				seen[r] = true
				o.solidFrom[i] = append(o.solidFrom[i], r)
			}
		}
	}
	return topo.Ref{Index: i, Orientation: topo.Forward}
}
