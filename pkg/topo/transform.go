package topo

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// importer copies nodes from other arenas into a destination arena, keeping
// shared nodes and shared geometry shared.
type importer struct {
	dst    *Arena
	fn     func(v3.Vec) v3.Vec
	nodes  map[Key]int
	lines  map[*geom.Line]*geom.Line
	planes map[*geom.Plane]*geom.Plane
}

func newImporter(dst *Arena, fn func(v3.Vec) v3.Vec) *importer {
	return &importer{
		dst:    dst,
		fn:     fn,
		nodes:  make(map[Key]int),
		lines:  make(map[*geom.Line]*geom.Line),
		planes: make(map[*geom.Plane]*geom.Plane),
	}
}

func (im *importer) point(p v3.Vec) v3.Vec {
	if im.fn == nil {
		return p
	}
	return im.fn(p)
}

func (im *importer) line(l *geom.Line) *geom.Line {
	if l == nil || im.fn == nil {
		return l
	}
	if c, ok := im.lines[l]; ok {
		return c
	}
	o := im.fn(l.Origin)
	c := &geom.Line{Origin: o, Dir: im.fn(l.Origin.Add(l.Dir)).Sub(o).Normalize()}
	im.lines[l] = c
	return c
}

func (im *importer) plane(p *geom.Plane) *geom.Plane {
	if p == nil || im.fn == nil {
		return p
	}
	if c, ok := im.planes[p]; ok {
		return c
	}
	o := im.fn(p.Origin)
	c := geom.NewPlane(o, im.fn(p.Origin.Add(p.Normal)).Sub(o))
	im.planes[p] = c
	return c
}

func (im *importer) copy(s Shape) int {
	if i, ok := im.nodes[s.Key()]; ok {
		return i
	}
	src := s.Node()
	n := Node{
		Kind:      src.Kind,
		Tolerance: src.Tolerance,
		Point:     im.point(src.Point),
		Curve:     im.line(src.Curve),
		First:     src.First,
		Last:      src.Last,
		Surface:   im.plane(src.Surface),
	}
	for _, r := range src.Children {
		c := im.copy(Shape{arena: s.arena, index: r.Index})
		n.Children = append(n.Children, Ref{c, r.Orientation})
	}
	i := im.dst.add(n)
	im.nodes[s.Key()] = i
	return i
}

// Copy returns a deep copy of s in a fresh arena, with every point mapped
// through fn. fn must be a rigid motion; nil copies unchanged.
func Copy(s Shape, fn func(v3.Vec) v3.Vec) Shape {
	a := NewArena()
	i := newImporter(a, fn).copy(s)
	return Shape{arena: a, index: i, orient: s.orient}
}

// Transform returns a copy of s moved by the rigid transform m.
func Transform(s Shape, m sdf.M44) Shape {
	return Copy(s, m.MulPosition)
}

// MakeCompound returns a compound of copies of the given shapes in a fresh arena.
func MakeCompound(shapes ...Shape) Shape {
	a := NewArena()
	im := newImporter(a, nil)
	refs := make([]Ref, 0, len(shapes))
	for _, s := range shapes {
		if s.IsNull() {
			continue
		}
		refs = append(refs, Ref{im.copy(s), s.orient})
	}
	return NewShape(a, a.AddCompound(refs...))
}
