package paver

import (
	"context"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/internal/unionfind"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

// ----------------------------------------------------------------------------
// Vertex / vertex
// ----------------------------------------------------------------------------

func (f *Filler) performVV(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Vertex, topo.Vertex)
	hit := make([]bool, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		a, b := f.d.Shape(pairs[k].i), f.d.Shape(pairs[k].j)
		_, hit[k] = intersect.VertexVertex(a.Point, a.Tol, b.Point, b.Tol, f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}

	uf := unionfind.New()
	for k, p := range pairs {
		if hit[k] {
			uf.Union(p.i, p.j)
		}
	}
	groups := make([][]int, 0)
	for _, members := range uf.Groups() {
		slices.Sort(members)
		groups = append(groups, members)
	}
	slices.SortFunc(groups, func(a, b []int) int { return a[0] - b[0] })

	for _, members := range groups {
		var c v3.Vec
		for _, m := range members {
			c = c.Add(f.d.Shape(m).Point)
		}
		c = c.MulScalar(1 / float64(len(members)))
		var tol float64
		for _, m := range members {
			s := f.d.Shape(m)
			tol = math.Max(tol, s.Point.Sub(c).Length()+s.Tol)
		}
		nv := f.newVertex(c, tol)
		for _, m := range members {
			f.d.SetSameDomain(m, nv)
		}
	}
	for k, p := range pairs {
		if hit[k] {
			f.d.AddInterference(ds.Interference{
				Kind: ds.VV, Index1: p.i, Index2: p.j,
				Payload: ds.VVData{NewVertex: f.d.Real(p.i)},
			})
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Vertex / edge
// ----------------------------------------------------------------------------

type veSlot struct {
	res intersect.VEResult
	ok  bool
	err error
}

func (f *Filler) performVE(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Vertex, topo.Edge)
	slots := make([]veSlot, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		v, e := f.d.Real(pairs[k].i), pairs[k].j
		if v1, v2 := f.d.EdgeVertices(e); v == v1 || v == v2 {
			return nil
		}
		s := &slots[k]
		s.res, s.ok, s.err = intersect.VertexEdge(f.d.Point(v), f.d.VertexTol(v), f.d.Shape(e).Edge(), f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}
	for k, p := range pairs {
		s := slots[k]
		if s.err != nil {
			f.pairFailed(ds.VE, p.i, p.j, s.err)
			continue
		}
		if !s.ok {
			continue
		}
		f.d.AddInterference(ds.Interference{
			Kind: ds.VE, Index1: p.i, Index2: p.j,
			Payload: ds.VEData{Param: s.res.Param, Distance: s.res.Distance},
		})
		f.raise(p.i, f.d.Shape(p.j).Seg.Value(s.res.Param))
		f.pave(p.j, p.i, s.res.Param)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Edge / edge
// ----------------------------------------------------------------------------

type eeSlot struct {
	res intersect.EEResult
	err error
}

func (f *Filler) performEE(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Edge, topo.Edge)
	slots := make([]eeSlot, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		a, b := f.d.Shape(pairs[k].i), f.d.Shape(pairs[k].j)
		slots[k].res, slots[k].err = intersect.EdgeEdge(a.Edge(), b.Edge(), f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}
	for k, p := range pairs {
		s := slots[k]
		if s.err != nil {
			f.pairFailed(ds.EE, p.i, p.j, s.err)
			continue
		}
		switch s.res.Kind {
		case intersect.Point:
			if f.opts.Glue >= GlueShift {
				continue
			}
			f.commitEEPoint(p, s.res)
		case intersect.Overlap:
			f.commitEEOverlap(p, s.res)
		}
	}
	return nil
}

func (f *Filler) commitEEPoint(p pair, res intersect.EEResult) {
	e1, e2 := f.d.Shape(p.i), f.d.Shape(p.j)
	tol := e1.Tol + e2.Tol + f.opts.Fuzzy
	v := f.vertexAt(res.Point, tol, append(f.edgeVertexCands(p.i), f.edgeVertexCands(p.j)...))
	if f.isEnd(p.i, v) && f.isEnd(p.j, v) {
		return
	}
	f.d.AddInterference(ds.Interference{
		Kind: ds.EE, Index1: p.i, Index2: p.j,
		Payload: ds.EEData{Kind: intersect.Point, Param1: res.Param1, Param2: res.Param2, Vertex: v},
	})
	f.pave(p.i, v, res.Param1)
	f.pave(p.j, v, res.Param2)
}

func (f *Filler) commitEEOverlap(p pair, res intersect.EEResult) {
	e1, e2 := f.d.Shape(p.i), f.d.Shape(p.j)
	tol := e1.Tol + e2.Tol + f.opts.Fuzzy
	cands := append(f.edgeVertexCands(p.i), f.edgeVertexCands(p.j)...)
	for _, t1 := range res.Range1 {
		pt := e1.Seg.Value(t1)
		v := f.vertexAt(pt, tol, cands)
		_, t2 := e2.Seg.Distance(pt)
		f.pave(p.i, v, t1)
		f.pave(p.j, v, t2)
	}
	f.d.AddInterference(ds.Interference{
		Kind: ds.EE, Index1: p.i, Index2: p.j,
		Payload: ds.EEData{Kind: intersect.Overlap, Range1: res.Range1, Range2: res.Range2, Vertex: -1},
	})
}

func (f *Filler) isEnd(e, v int) bool {
	v1, v2 := f.d.EdgeVertices(e)
	v = f.d.Real(v)
	return v == v1 || v == v2
}

// ----------------------------------------------------------------------------
// Vertex / face
// ----------------------------------------------------------------------------

type vfSlot struct {
	res intersect.VFResult
	ok  bool
	err error
}

func (f *Filler) performVF(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Vertex, topo.Face)
	slots := make([]vfSlot, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		v, fc := f.d.Real(pairs[k].i), pairs[k].j
		if slices.Contains(f.d.FaceVertices(fc), v) {
			return nil
		}
		s := &slots[k]
		s.res, s.ok, s.err = intersect.VertexFace(f.d.Point(v), f.d.VertexTol(v), f.d.Shape(fc).Face, f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}
	for k, p := range pairs {
		s := slots[k]
		if s.err != nil {
			f.pairFailed(ds.VF, p.i, p.j, s.err)
			continue
		}
		if !s.ok || s.res.OnBoundary {
			continue
		}
		f.d.AddInterference(ds.Interference{
			Kind: ds.VF, Index1: p.i, Index2: p.j,
			Payload: ds.VFData{UV: s.res.UV, Distance: s.res.Distance},
		})
		f.raise(p.i, f.d.Shape(p.j).Face.Plane.Value(s.res.UV))
		f.d.FaceInfo(p.j).AddVertexIn(f.d.Real(p.i))
	}
	return nil
}

// ----------------------------------------------------------------------------
// Edge / face
// ----------------------------------------------------------------------------

type efSlot struct {
	res intersect.EFResult
	err error
}

func (f *Filler) performEF(ctx context.Context) error {
	pairs := f.it.Pairs(topo.Edge, topo.Face)
	slots := make([]efSlot, len(pairs))
	err := f.forEach(ctx, len(pairs), func(k int) error {
		e, fc := f.d.Shape(pairs[k].i), f.d.Shape(pairs[k].j)
		slots[k].res, slots[k].err = intersect.EdgeFace(e.Edge(), fc.Face, f.opts.Fuzzy)
		return nil
	})
	if err != nil {
		return err
	}
	for k, p := range pairs {
		s := slots[k]
		if s.err != nil {
			f.pairFailed(ds.EF, p.i, p.j, s.err)
			continue
		}
		switch s.res.Kind {
		case intersect.Point:
			if f.opts.Glue == GlueFull {
				continue
			}
			f.commitEFPoint(p, s.res)
		case intersect.Overlap:
			f.commitEFOverlap(p, s.res)
		}
	}
	return nil
}

func (f *Filler) commitEFPoint(p pair, res intersect.EFResult) {
	e, fc := p.i, p.j
	tol := f.d.Shape(e).Tol + f.d.Shape(fc).Tol + f.opts.Fuzzy
	boundary := f.d.FaceVertices(fc)
	for _, be := range f.d.Shape(fc).Sub {
		boundary = append(boundary, f.edgeVertexCands(be)...)
	}
	v := f.vertexAt(res.Point, tol, slices.Concat(f.edgeVertexCands(e), boundary, f.d.FaceInfo(fc).VerticesIn()))
	if f.isEnd(e, v) && slices.Contains(boundary, v) {
		return
	}
	f.d.AddInterference(ds.Interference{
		Kind: ds.EF, Index1: e, Index2: fc,
		Payload: ds.EFData{Kind: intersect.Point, Param: res.Param, Vertex: v},
	})
	f.pave(e, v, res.Param)
	f.d.FaceInfo(fc).AddVertexIn(f.d.Real(v))
}

func (f *Filler) commitEFOverlap(p pair, res intersect.EFResult) {
	e, fc := p.i, p.j
	es := f.d.Shape(e)
	tol := es.Tol + f.d.Shape(fc).Tol + f.opts.Fuzzy
	cands := slices.Concat(f.edgeVertexCands(e), f.faceVertexCands(fc))
	fi := f.d.FaceInfo(fc)
	for _, r := range res.Ranges {
		for _, t := range r {
			f.pave(e, f.vertexAt(es.Seg.Value(t), tol, cands), t)
		}
		fi.AddEdgeIn(ds.EdgeRange{Edge: e, Range: r})
	}
	f.d.AddInterference(ds.Interference{
		Kind: ds.EF, Index1: e, Index2: fc,
		Payload: ds.EFData{Kind: intersect.Overlap, Ranges: res.Ranges, Vertex: -1},
	})
}
