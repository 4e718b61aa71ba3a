package paver

import (
	"context"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

type ffSlot struct {
	res intersect.FFResult
	err error
}

func (f *Filler) performFF(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Face, topo.Face)
	slots := make([]ffSlot, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		a, b := f.d.Shape(pairs[k].i), f.d.Shape(pairs[k].j)
		slots[k].res, slots[k].err = intersect.FaceFace(a.Face, b.Face, f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}
	for k, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := slots[k]
		switch {
		case s.err != nil:
			f.pairFailed(ds.FF, p.i, p.j, s.err)
		case s.res.Coplanar:
			f.d.AddInterference(ds.Interference{
				Kind: ds.FF, Index1: p.i, Index2: p.j,
				Payload: ds.FFData{Tangent: true},
			})
		case len(s.res.Curves) == 0 && len(s.res.Points) == 0:
		case f.opts.Glue == GlueFull:
		default:
			f.commitFF(p, s.res)
		}
	}
	f.crossSections()
	return nil
}

func (f *Filler) commitFF(p pair, res intersect.FFResult) {
	f1, f2 := p.i, p.j
	s1, s2 := f.d.Shape(f1), f.d.Shape(f2)
	tol := s1.Tol + s2.Tol + f.opts.Fuzzy
	cands := slices.Concat(f.faceVertexCands(f1), f.faceVertexCands(f2))

	endpoint := func(pt v3.Vec) int {
		if v, ok := f.nearest(pt, tol, cands); ok {
			f.raise(v, pt)
			return v
		}
		v := f.vertexAt(pt, tol, nil)
		f.attach(v, f1)
		f.attach(v, f2)
		cands = append(cands, v)
		return v
	}

	var data ds.FFData
	for _, curve := range res.Curves {
		a, b := f.d.Real(endpoint(curve.Start())), f.d.Real(endpoint(curve.End()))
		if a == b {
			continue
		}
		seg, ok := geom.NewSegment(f.d.Point(a), f.d.Point(b))
		if !ok {
			continue
		}
		e := f.d.AddEdge(seg, a, b, math.Max(s1.Tol, s2.Tol))
		etol := f.d.Shape(e).Tol + f.opts.Fuzzy
		seen := map[int]bool{a: true, b: true}
		for _, c := range cands {
			c = f.d.Real(c)
			if seen[c] {
				continue
			}
			seen[c] = true
			dist, t := seg.Distance(f.d.Point(c))
			if dist <= etol+f.d.VertexTol(c) && t > seg.First+etol && t < seg.Last-etol {
				f.pave(e, c, t)
			}
		}
		f.d.FaceInfo(f1).AddSection(e)
		f.d.FaceInfo(f2).AddSection(e)
		data.Curves = append(data.Curves, e)
	}
	for _, pt := range res.Points {
		v := f.d.Real(endpoint(pt))
		f.d.FaceInfo(f1).AddVertexIn(v)
		f.d.FaceInfo(f2).AddVertexIn(v)
		data.Points = append(data.Points, v)
	}
	if len(data.Curves) == 0 && len(data.Points) == 0 {
		return
	}
	f.d.AddInterference(ds.Interference{Kind: ds.FF, Index1: f1, Index2: f2, Payload: data})
}

// attach paves a vertex created on a face boundary onto the boundary edges it
// lies on.
func (f *Filler) attach(v, fc int) {
	p, tol := f.d.Point(v), f.d.VertexTol(v)
	for _, e := range f.d.Shape(fc).Sub {
		s := f.d.Shape(e)
		if s.Small || f.isEnd(e, v) {
			continue
		}
		if res, ok, err := intersect.VertexEdge(p, tol, s.Edge(), f.opts.Fuzzy); err == nil && ok {
			f.pave(e, v, res.Param)
		}
	}
}

// crossSections splits the section edges of every face at their crossings
// with each other and with foreign edges lying in the face.
func (f *Filler) crossSections() {
	for _, fc := range f.d.Indices(topo.Face) {
		fi := f.d.FaceInfo(fc)
		secs := fi.Sections()
		if len(secs) == 0 {
			continue
		}
		for i, a := range secs {
			for _, b := range secs[i+1:] {
				f.cross(a, b)
			}
			for _, in := range fi.EdgesIn() {
				f.cross(a, in.Edge)
			}
		}
	}
}

func (f *Filler) cross(a, b int) {
	if a > b {
		a, b = b, a
	}
	if a == b || f.d.HasInterference(ds.EE, a, b) {
		return
	}
	ea, eb := f.d.Shape(a), f.d.Shape(b)
	if !geom.Overlap(ea.Box, eb.Box) {
		return
	}
	res, err := intersect.EdgeEdge(ea.Edge(), eb.Edge(), f.opts.Fuzzy)
	if err != nil {
		f.pairFailed(ds.EE, a, b, err)
		return
	}
	switch res.Kind {
	case intersect.Point:
		f.commitEEPoint(pair{a, b}, res)
	case intersect.Overlap:
		f.commitEEOverlap(pair{a, b}, res)
	}
}
