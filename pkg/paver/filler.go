// Package paver computes every interference between the arguments of a
// Boolean operation and records it in a ds.DS.
//
// A Filler walks a fixed sequence of steps: data preparation, the six
// pairwise passes in the order vertex/vertex, vertex/edge, edge/edge,
// vertex/face, edge/face, face/face, then pave finalization and common block
// construction. Each pairwise pass takes its candidate pairs from an R-tree
// broad phase, evaluates them (concurrently when asked) into per-pair slots
// and commits the slots in pair order, so new vertices are numbered the same
// way on every run.
package paver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/dhconnelly/rtreego"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/topo"
)

// Filler fills the intersection data structure of a list of arguments.
type Filler struct {
	args []topo.Shape
	opts Options
	log  *slog.Logger

	d        *ds.DS
	report   *alert.Report
	state    State
	done     bool
	it       *iterator
	inverted map[int]bool
	fresh    *rtreego.Rtree
}

// New returns a filler over args. Each argument is one rank; sub-shapes of
// the same argument are never intersected with each other.
func New(args []topo.Shape, opts Options) *Filler {
	return &Filler{
		args:   args,
		opts:   opts,
		log:    opts.Log(),
		report: alert.NewReport(),
	}
}

type step struct {
	state State
	run   func(ctx context.Context) error
}

func (f *Filler) steps() []step {
	return []step{
		{StateDataPrepared, f.prepare},
		{StateVVDone, f.performVV},
		{StateVEDone, f.performVE},
		{StateEEDone, f.performEE},
		{StateVFDone, f.performVF},
		{StateEFDone, f.performEF},
		{StateFFDone, f.performFF},
		{StatePavesBuilt, f.buildPaveBlocks},
		{StateCommonBlocksBuilt, f.buildCommonBlocks},
		{StateDone, f.makeSplitEdges},
	}
}

// Perform runs every step on a fresh data structure. It returns the first
// blocking alert, in which case IsDone is false and the partially filled
// data structure stays available through DS.
func (f *Filler) Perform(ctx context.Context) error {
	f.d = ds.New(f.args)
	f.report = alert.NewReport()
	f.state = StateEmpty
	f.done = false
	f.inverted = make(map[int]bool)
	f.fresh = rtreego.NewTree(3, 8, 32)

	steps := f.steps()
	start := time.Now()
	for n, s := range steps {
		if err := ctx.Err(); err != nil {
			return f.abort(err)
		}
		if err := s.run(ctx); err != nil {
			return f.abort(err)
		}
		if f.report.HasBlocking() {
			return f.report.Err()
		}
		f.state = s.state
		f.log.Debug("paver: step done", "state", s.state, "shapes", f.d.NumberOfShapes())
		if f.opts.Progress != nil {
			f.opts.Progress(s.state, n+1, len(steps))
		}
	}
	f.done = true
	f.log.Debug("paver: filled",
		"arguments", len(f.args),
		"vv", f.d.CountInterferences(ds.VV),
		"ve", f.d.CountInterferences(ds.VE),
		"ee", f.d.CountInterferences(ds.EE),
		"vf", f.d.CountInterferences(ds.VF),
		"ef", f.d.CountInterferences(ds.EF),
		"ff", f.d.CountInterferences(ds.FF),
		"elapsed", time.Since(start))
	return nil
}

func (f *Filler) abort(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		f.report.AddKind(alert.UserBreak, "interrupted after %s: %v", f.state, err)
	} else {
		f.report.AddKind(alert.IntersectionFailed, "after %s: %v", f.state, err)
	}
	return f.report.Err()
}

// IsDone reports whether the last Perform completed every step.
func (f *Filler) IsDone() bool { return f.done }

// State returns the last completed step.
func (f *Filler) State() State { return f.state }

// DS returns the data structure of the last Perform, nil before the first.
func (f *Filler) DS() *ds.DS { return f.d }

// Report returns the alerts of the last Perform.
func (f *Filler) Report() *alert.Report { return f.report }

// Arguments returns the shapes given to New.
func (f *Filler) Arguments() []topo.Shape { return f.args }

// Options returns the options given to New.
func (f *Filler) Options() Options { return f.opts }

// IsInverted reports whether solid row i was found to be inside out. It is
// always false unless CheckInverted is set.
func (f *Filler) IsInverted(i int) bool { return f.inverted[i] }

func (f *Filler) prepare(ctx context.Context) error {
	if len(f.args) == 0 {
		f.report.AddKind(alert.TooFewArguments, "no arguments")
		return nil
	}
	null := 0
	for rank, a := range f.args {
		if a.IsNull() {
			null++
			f.report.AddKind(alert.EmptyShape, "argument %d is null", rank)
			continue
		}
		if topo.Count(a, topo.Vertex) == 0 {
			f.report.AddShape(alert.EmptyShape, a, "argument %d has no vertices", rank)
		}
	}
	if null == len(f.args) {
		f.report.AddKind(alert.NullInputShapes, "all %d arguments are null", null)
		return nil
	}

	for _, e := range f.d.Indices(topo.Edge) {
		s := f.d.Shape(e)
		f.checkPositioning(e, s)
		if s.Small {
			f.report.AddShape(alert.TooSmallEdge, s.Source, "edge %d is shorter than its vertex tolerances", e)
			v1, v2 := f.d.EdgeVertices(e)
			if v1 != v2 {
				f.d.SetSameDomain(max(v1, v2), min(v1, v2))
			}
		}
	}
	for _, fc := range f.d.Indices(topo.Face) {
		s := f.d.Shape(fc)
		var worst float64
		for _, v := range f.d.FaceVertices(fc) {
			worst = math.Max(worst, math.Abs(s.Face.Plane.Distance(f.d.Point(v))))
		}
		if worst > s.Tol {
			f.report.AddShape(alert.BadPositioning, s.Source, "face %d: vertex %.3g off its plane", fc, worst)
			f.raiseShape(fc, worst)
		}
	}

	if f.opts.CheckInverted {
		for _, i := range f.d.Indices(topo.Solid) {
			s := f.d.Shape(i)
			if !s.Source.IsNull() && topo.Volume(s.Source) < 0 {
				f.inverted[i] = true
				f.log.Info("paver: inverted solid", "solid", s.Source)
			}
		}
	}

	f.it = newIterator(f.d, f.opts.Fuzzy, f.opts.UseOBB, func(i int) bool {
		s := f.d.Shape(i)
		return s.Kind == topo.Edge && s.Small
	})
	return nil
}

// checkPositioning raises the tolerance of edge vertices that sit off the
// ends of the edge's segment.
func (f *Filler) checkPositioning(e int, s *ds.ShapeInfo) {
	if s.Seg.Line == nil {
		return
	}
	for k, end := range []v3.Vec{s.Seg.Start(), s.Seg.End()} {
		v := s.Sub[k]
		dist := f.d.Shape(v).Point.Sub(end).Length()
		if dist > f.d.Shape(v).Tol {
			f.report.AddShape(alert.BadPositioning, s.Source, "edge %d: vertex %d is %.3g from the edge end", e, v, dist)
			f.raiseShape(v, dist)
		}
	}
}

// raiseShape raises the tolerance of row i to tol. Input shapes are updated
// as well unless the filler is non-destructive.
func (f *Filler) raiseShape(i int, tol float64) {
	s := f.d.Shape(i)
	if tol <= s.Tol {
		return
	}
	s.Tol = tol
	switch s.Kind {
	case topo.Vertex:
		s.Box = geom.Inflate(geom.BoxOf(s.Point), tol)
	case topo.Face:
		s.Face.Tol = tol
		s.Box = geom.Inflate(s.Box, tol)
	}
	if !f.opts.NonDestructive && !s.Source.IsNull() {
		s.Source.Arena().SetTolerance(s.Source.Index(), tol)
	}
}

// raise makes the vertex v resolves to cover p.
func (f *Filler) raise(v int, p v3.Vec) {
	r := f.d.Real(v)
	if dist := f.d.Shape(r).Point.Sub(p).Length(); dist > f.d.Shape(r).Tol {
		f.raiseShape(r, dist)
	}
}

// newVertex creates a vertex during filling and indexes it for reuse.
func (f *Filler) newVertex(p v3.Vec, tol float64) int {
	v := f.d.AddVertex(p, math.Max(tol, geom.Confusion))
	f.fresh.Insert(&entry{idx: v, kind: topo.Vertex, rect: rectOf(geom.BoxOf(p), geom.Confusion)})
	return v
}

// nearest returns the resolved candidate closest to p within tol plus the
// candidate's own tolerance, preferring the lower index on ties.
func (f *Filler) nearest(p v3.Vec, tol float64, cands []int) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for _, c := range cands {
		c = f.d.Real(c)
		dist := f.d.Point(c).Sub(p).Length()
		if dist > tol+f.d.VertexTol(c) {
			continue
		}
		if dist < bestD || (dist == bestD && c < best) {
			best, bestD = c, dist
		}
	}
	return best, best >= 0
}

// vertexAt returns a vertex for p: the nearest candidate, or a vertex created
// earlier in this run, or a new one with tolerance tol.
func (f *Filler) vertexAt(p v3.Vec, tol float64, cands []int) int {
	if v, ok := f.nearest(p, tol, cands); ok {
		f.raise(v, p)
		return v
	}
	var near []int
	for _, s := range f.fresh.SearchIntersect(rectOf(geom.BoxOf(p), tol+f.opts.Fuzzy)) {
		near = append(near, s.(*entry).idx)
	}
	if v, ok := f.nearest(p, tol, near); ok {
		f.raise(v, p)
		return v
	}
	return f.newVertex(p, tol)
}

// pave places vertex v on edge e at parameter t. Paves that coincide with an
// existing one merge their vertices.
func (f *Filler) pave(e, v int, t float64) {
	tol := f.d.Shape(e).Tol + f.d.VertexTol(v) + f.opts.Fuzzy
	if _, m, merged := f.d.PaveSetFor(e).Add(ds.Pave{Vertex: v, Param: t}, tol); merged {
		f.d.SetSameDomain(m.Dropped, m.Kept)
	}
}

// edgeVertexCands returns the resolved end vertices of e and the vertices
// already paved on it.
func (f *Filler) edgeVertexCands(e int) []int {
	v1, v2 := f.d.EdgeVertices(e)
	out := []int{v1, v2}
	if f.d.HasPaveSet(e) {
		for _, p := range f.d.PaveSetFor(e).Paves() {
			out = append(out, p.Vertex)
		}
	}
	return out
}

// faceVertexCands returns the boundary vertices of face fc, the vertices
// paved on its edges and the vertices recorded inside it.
func (f *Filler) faceVertexCands(fc int) []int {
	out := f.d.FaceVertices(fc)
	for _, e := range f.d.Shape(fc).Sub {
		out = append(out, f.edgeVertexCands(e)...)
	}
	return append(out, f.d.FaceInfo(fc).VerticesIn()...)
}

func (f *Filler) pairFailed(kind ds.InterfKind, i, j int, err error) {
	f.report.AddShape(alert.IntersectionOfPairFailed, f.d.Shape(i).Source,
		"%s %d/%d: %v", kind, i, j, err)
	f.log.Warn("paver: pair failed", "kind", kind, "i", i, "j", j, "err", err)
}
