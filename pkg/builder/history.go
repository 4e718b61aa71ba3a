package builder

import (
	"context"
	"slices"

	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/topo"
)

// History maps argument sub-shapes to the result shapes made from them.
// Result shapes live in a new arena, so a shape that came through
// unchanged still has its copy as image.
type History struct {
	inputs    map[topo.Key]bool
	modified  map[topo.Key][]topo.Shape
	generated map[topo.Key][]topo.Shape
}

func newHistory() *History {
	return &History{
		inputs:    make(map[topo.Key]bool),
		modified:  make(map[topo.Key][]topo.Shape),
		generated: make(map[topo.Key][]topo.Shape),
	}
}

// Modified returns the result shapes of the same kind that s became: split
// parts, merged copies or the plain copy.
func (h *History) Modified(s topo.Shape) []topo.Shape {
	return slices.Clone(h.modified[s.Key()])
}

// Generated returns result shapes of a lower dimension created from s: the
// section edges and vertices of a face, the vertices cut into an edge.
func (h *History) Generated(s topo.Shape) []topo.Shape {
	return slices.Clone(h.generated[s.Key()])
}

// IsDeleted reports whether s is an argument sub-shape with no image in the
// result.
func (h *History) IsDeleted(s topo.Shape) bool {
	return h.inputs[s.Key()] && len(h.modified[s.Key()]) == 0
}

// HasModified reports whether any shape has an image.
func (h *History) HasModified() bool { return len(h.modified) > 0 }

// HasGenerated reports whether any shape generated others.
func (h *History) HasGenerated() bool { return len(h.generated) > 0 }

func (h *History) add(m map[topo.Key][]topo.Shape, src topo.Shape, img topo.Shape) {
	k := src.Key()
	for _, s := range m[k] {
		if s.IsSame(img) {
			return
		}
	}
	m[k] = append(m[k], img)
}

func (b *Builder) buildHistory(context.Context) error {
	h := newHistory()
	d, o := b.d, b.out
	shape := func(i int) topo.Shape { return topo.NewShape(o.a, i) }
	byFace := make(map[int][]*piece)
	for _, p := range b.pieces {
		byFace[p.face] = append(byFace[p.face], p)
	}

	for i := range d.NumberOfShapes() {
		s := d.Shape(i)
		if s.Rank < 0 || s.Source.IsNull() {
			continue
		}
		switch s.Kind {
		case topo.Vertex, topo.Edge, topo.Face, topo.Solid:
			h.inputs[s.Source.Key()] = true
		}
		switch s.Kind {
		case topo.Vertex:
			if v, ok := o.verts[d.Real(i)]; ok {
				h.add(h.modified, s.Source, shape(v))
			}
		case topo.Edge:
			for _, pb := range d.PaveBlocks(i) {
				u, v := d.BlockVertices(pb)
				if e, ok := o.edges[edgeKey(u, v)]; ok {
					h.add(h.modified, s.Source, shape(e))
				}
				for _, w := range []int{u, v} {
					if !b.isEdgeEnd(i, w) {
						if x, ok := o.verts[w]; ok {
							h.add(h.generated, s.Source, shape(x))
						}
					}
				}
			}
		case topo.Face:
			b.faceHistory(h, i, byFace[i])
		}
	}
	for sol, rows := range o.solidFrom {
		for _, r := range rows {
			h.add(h.modified, d.Shape(r).Source, shape(sol))
		}
	}
	for k := range h.modified {
		slices.SortFunc(h.modified[k], func(x, y topo.Shape) int { return x.Index() - y.Index() })
	}
	b.history = h
	return nil
}

func (b *Builder) isEdgeEnd(e, v int) bool {
	v1, v2 := b.d.EdgeVertices(e)
	return v == v1 || v == v2
}

func (b *Builder) faceHistory(h *History, fc int, pieces []*piece) {
	d, o := b.d, b.out
	src := d.Shape(fc).Source
	for _, p := range pieces {
		id := p.id
		if a, ok := b.alias[id]; ok {
			id = a
		}
		if f, ok := o.faces[id]; ok {
			h.add(h.modified, src, topo.NewShape(o.a, f))
		}
	}
	for _, in := range d.InterferencesWith(fc) {
		data, ok := in.Payload.(ds.FFData)
		if !ok {
			continue
		}
		for _, c := range data.Curves {
			for _, pb := range d.PaveBlocks(c) {
				u, v := d.BlockVertices(pb)
				if e, ok := o.edges[edgeKey(u, v)]; ok {
					h.add(h.generated, src, topo.NewShape(o.a, e))
				}
			}
		}
		for _, v := range data.Points {
			if x, ok := o.verts[d.Real(v)]; ok {
				h.add(h.generated, src, topo.NewShape(o.a, x))
			}
		}
	}
}
