package builder

import (
	"context"
	"errors"
	"slices"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/topo"
)

func box(x, y, z, sx, sy, sz float64) topo.Shape {
	return topo.Box(v3.Vec{X: x, Y: y, Z: z}, v3.Vec{X: sx, Y: sy, Z: sz})
}

func run(t *testing.T, op Operation, objects, tools []topo.Shape, opts paver.Options) *Builder {
	t.Helper()
	b, err := Run(context.Background(), op, objects, tools, opts)
	require.NoError(t, err)
	require.True(t, b.IsDone())
	require.Equal(t, topo.Compound, b.Shape().Kind())
	return b
}

// volumes returns the volume of every result solid, ascending. Faces shared
// by neighbouring cells are counted once per solid.
func volumes(s topo.Shape) []float64 {
	var out []float64
	for _, sol := range s.Explore(topo.Solid) {
		out = append(out, topo.Volume(sol))
	}
	slices.Sort(out)
	return out
}

func total(s topo.Shape) float64 {
	var v float64
	for _, x := range volumes(s) {
		v += x
	}
	return v
}

func assertClosed(t *testing.T, s topo.Shape) {
	t.Helper()
	for _, sol := range s.Explore(topo.Solid) {
		assert.True(t, topo.IsClosed(sol), "%v is not closed", sol)
	}
}

func faceToward(s topo.Shape, n v3.Vec, at float64) topo.Shape {
	for _, f := range s.Explore(topo.Face) {
		if f.Normal().Dot(n) > 0.99 && f.Loops()[0][0].Dot(n) == at {
			return f
		}
	}
	panic("no such face")
}

func vertexAt(s topo.Shape, p v3.Vec) topo.Shape {
	for _, v := range s.Explore(topo.Vertex) {
		if v.Point().Sub(p).Length() < 1e-9 {
			return v
		}
	}
	panic("no such vertex")
}

func TestDisjointBoxes(t *testing.T) {
	a, b := box(0, 0, 0, 1, 1, 1), box(5, 5, 5, 1, 1, 1)

	fuse := run(t, OpFuse, []topo.Shape{a}, []topo.Shape{b}, paver.Options{})
	assert.Len(t, fuse.Shape().Explore(topo.Solid), 2)
	assert.Equal(t, []float64{1, 1}, roundAll(volumes(fuse.Shape())))
	assertClosed(t, fuse.Shape())
	assert.Zero(t, fuse.Report().Len())

	common := run(t, OpCommon, []topo.Shape{a}, []topo.Shape{b}, paver.Options{})
	assert.Empty(t, common.Shape().Children())
	assert.Zero(t, common.Report().Len())
}

func roundAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(int64(v*1e6+0.5)) / 1e6
	}
	return out
}

func TestOverlappingBoxes(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)
	objects, tools := []topo.Shape{a}, []topo.Shape{b}

	tests := []struct {
		op     Operation
		volume float64
		faces  int
	}{
		{OpCommon, 125, 6},
		{OpFuse, 1875, 12},
		{OpCut, 875, 9},
		{OpCut21, 875, 9},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			r := run(t, tt.op, objects, tools, paver.Options{NonDestructive: true})
			s := r.Shape()
			require.Len(t, s.Explore(topo.Solid), 1)
			assert.InDelta(t, tt.volume, total(s), 1e-6)
			assert.Equal(t, tt.faces, topo.Count(s, topo.Face))
			assertClosed(t, s)
			assert.False(t, r.Report().HasBlocking())
			for _, k := range []alert.Kind{alert.RemovalOfIBForEdgesFailed, alert.RemovalOfIBForFacesFailed, alert.RemovalOfIBForSolidsFailed} {
				assert.False(t, r.Report().HasAlert(k), k.String())
			}
		})
	}
}

func TestSectionOfOverlappingBoxes(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)
	r := run(t, OpSection, []topo.Shape{a}, []topo.Shape{b}, paver.Options{})
	s := r.Shape()
	edges := s.Explore(topo.Edge)
	require.Len(t, edges, 6)
	for _, e := range edges {
		assert.InDelta(t, 5, e.Segment().Length(), 1e-9)
	}
	assert.Equal(t, 6, topo.Count(s, topo.Vertex))
	assert.Zero(t, topo.Count(s, topo.Face))
}

func TestCutContainedBoxLeavesCavity(t *testing.T) {
	outer, inner := box(0, 0, 0, 10, 10, 10), box(2, 2, 2, 4, 4, 4)

	cut := run(t, OpCut, []topo.Shape{outer}, []topo.Shape{inner}, paver.Options{})
	s := cut.Shape()
	solids := s.Explore(topo.Solid)
	require.Len(t, solids, 1)
	assert.Len(t, solids[0].Children(), 2, "outer shell and cavity")
	assert.InDelta(t, 1000-64, total(s), 1e-9)
	assertClosed(t, s)

	common := run(t, OpCommon, []topo.Shape{outer}, []topo.Shape{inner}, paver.Options{})
	assert.Equal(t, []float64{64}, roundAll(volumes(common.Shape())))
	assert.Equal(t, 6, topo.Count(common.Shape(), topo.Face))
}

func TestSmallEdgeIsAdvisory(t *testing.T) {
	sliver, err := topo.Prism([]v3.Vec{{}, {X: 10}, {X: 10, Y: 10}, {Y: 10}, {Y: 1e-8}}, 0, 10)
	require.NoError(t, err)
	r := run(t, OpFuse, []topo.Shape{sliver}, []topo.Shape{box(20, 0, 0, 1, 1, 1)}, paver.Options{})

	assert.True(t, r.Report().HasAlert(alert.TooSmallEdge))
	assert.False(t, r.Report().HasBlocking())
	vs := volumes(r.Shape())
	require.Len(t, vs, 2)
	assert.InDelta(t, 1, vs[0], 1e-9)
	assert.InDelta(t, 1000, vs[1], 1e-6)
	assertClosed(t, r.Shape())
}

func TestFuzzyJoinsNearlyTouchingBoxes(t *testing.T) {
	objects := []topo.Shape{box(0, 0, 0, 10, 10, 10)}
	tools := []topo.Shape{box(10.0005, 0, 0, 10, 10, 10)}

	exact := run(t, OpFuse, objects, tools, paver.Options{NonDestructive: true})
	assert.Len(t, exact.Shape().Explore(topo.Solid), 2)

	fuzzy := run(t, OpFuse, objects, tools, paver.Options{NonDestructive: true, Fuzzy: 0.001})
	require.Len(t, fuzzy.Shape().Explore(topo.Solid), 1)
	assert.InDelta(t, 2000, total(fuzzy.Shape()), 0.1)
	assertClosed(t, fuzzy.Shape())
}

func TestGeneralFuseAndSplit(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)

	gf := run(t, OpGeneralFuse, []topo.Shape{a, b}, nil, paver.Options{})
	assert.Equal(t, []float64{125, 875, 875}, roundAll(volumes(gf.Shape())))
	assert.Equal(t, 18, topo.Count(gf.Shape(), topo.Face))
	assertClosed(t, gf.Shape())

	split := run(t, OpSplit, []topo.Shape{a}, []topo.Shape{b}, paver.Options{})
	assert.Equal(t, []float64{125, 875}, roundAll(volumes(split.Shape())))

	self := run(t, OpSplit, []topo.Shape{a, b}, nil, paver.Options{})
	assert.Equal(t, []float64{125, 875, 875}, roundAll(volumes(self.Shape())))
}

func TestSplitByFace(t *testing.T) {
	blade, err := topo.Polygon([]v3.Vec{
		{X: -1, Y: -1, Z: 4}, {X: 11, Y: -1, Z: 4}, {X: 11, Y: 11, Z: 4}, {X: -1, Y: 11, Z: 4},
	}, topo.DefaultTolerance)
	require.NoError(t, err)

	r := run(t, OpSplit, []topo.Shape{box(0, 0, 0, 10, 10, 10)}, []topo.Shape{blade}, paver.Options{})
	assert.Equal(t, []float64{400, 600}, roundAll(volumes(r.Shape())))
	assertClosed(t, r.Shape())
	assert.Len(t, r.Shape().Children(), 2, "only the two halves, no loose faces")
}

func TestHistory(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)
	r := run(t, OpCommon, []topo.Shape{a}, []topo.Shape{b}, paver.Options{NonDestructive: true})
	h := r.History()
	require.NotNil(t, h)

	right := faceToward(a, v3.Vec{X: 1}, 10)
	imgs := h.Modified(right)
	require.Len(t, imgs, 1)
	assert.InDelta(t, 25, topo.Area(imgs[0]), 1e-9)
	assert.False(t, h.IsDeleted(right))
	assert.Len(t, h.Generated(right), 2, "two section edges cross the face")

	left := faceToward(a, v3.Vec{X: -1}, 0)
	assert.True(t, h.IsDeleted(left))
	assert.Empty(t, h.Modified(left))

	assert.True(t, h.IsDeleted(vertexAt(a, v3.Vec{})))
	corner := vertexAt(a, v3.Vec{X: 10, Y: 10, Z: 10})
	require.Len(t, h.Modified(corner), 1)
	assert.InDelta(t, 0, h.Modified(corner)[0].Point().Sub(corner.Point()).Length(), 1e-9)

	solids := a.Explore(topo.Solid)
	assert.Len(t, h.Modified(solids[0]), 1)

	// Not an argument sub-shape.
	assert.False(t, h.IsDeleted(box(0, 0, 0, 1, 1, 1)))
}

func TestHistoryOfSplitEdge(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)
	r := run(t, OpCommon, []topo.Shape{a}, []topo.Shape{b}, paver.Options{NonDestructive: true})
	h := r.History()

	var edge topo.Shape
	for _, e := range a.Explore(topo.Edge) {
		s, f := e.Segment().Start(), e.Segment().End()
		if s.X == 10 && s.Y == 10 && f.X == 10 && f.Y == 10 {
			edge = e
		}
	}
	require.False(t, edge.IsNull())
	imgs := h.Modified(edge)
	require.Len(t, imgs, 1, "only the half inside the tool survives")
	assert.InDelta(t, 5, imgs[0].Segment().Length(), 1e-9)
	gen := h.Generated(edge)
	require.Len(t, gen, 1)
	assert.InDelta(t, 5, gen[0].Point().Z, 1e-9)
}

func TestSharedFiller(t *testing.T) {
	a, b := box(0, 0, 0, 10, 10, 10), box(5, 5, 5, 10, 10, 10)
	f := paver.New([]topo.Shape{a, b}, paver.Options{NonDestructive: true})
	require.NoError(t, f.Perform(context.Background()))

	for op, want := range map[Operation]float64{OpCommon: 125, OpFuse: 1875, OpCut: 875} {
		bl := NewWithFiller(op, []topo.Shape{a}, []topo.Shape{b}, f)
		require.NoError(t, bl.Perform(context.Background()), "%s", op)
		assert.InDelta(t, want, total(bl.Shape()), 1e-6, "%s", op)
		assert.Same(t, f, bl.Filler())
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	objects := []topo.Shape{box(0, 0, 0, 10, 10, 10), box(2, -3, 2, 2, 20, 2)}
	tools := []topo.Shape{box(5, 5, 5, 10, 10, 10)}

	seq := run(t, OpFuse, objects, tools, paver.Options{NonDestructive: true})
	par := run(t, OpFuse, objects, tools, paver.Options{NonDestructive: true, RunParallel: true, Workers: 4})
	assert.InDelta(t, total(seq.Shape()), total(par.Shape()), 1e-9)
	assert.Equal(t, topo.Count(seq.Shape(), topo.Face), topo.Count(par.Shape(), topo.Face))
	assert.Equal(t, topo.Count(seq.Shape(), topo.Vertex), topo.Count(par.Shape(), topo.Vertex))
	assert.True(t, seq.Report().HasAlert(alert.SelfInterferingShape))
}

func requireAlert(t *testing.T, err error, want alert.Kind) {
	t.Helper()
	require.Error(t, err)
	var a alert.Alert
	require.True(t, errors.As(err, &a))
	assert.Equal(t, want, a.Kind)
}

func TestBlockingAlerts(t *testing.T) {
	a, b := box(0, 0, 0, 1, 1, 1), box(0.5, 0, 0, 1, 1, 1)
	face, err := topo.Polygon([]v3.Vec{{}, {X: 1}, {X: 1, Y: 1}}, topo.DefaultTolerance)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		b    *Builder
		want alert.Kind
	}{
		{"unset", New(OpUnknown, []topo.Shape{a}, []topo.Shape{b}, paver.Options{}), alert.BOPNotSet},
		{"no tools", New(OpFuse, []topo.Shape{a}, nil, paver.Options{}), alert.TooFewArguments},
		{"no objects", New(OpSplit, nil, []topo.Shape{b}, paver.Options{}), alert.TooFewArguments},
		{"same shape", New(OpCut, []topo.Shape{a}, []topo.Shape{a}, paver.Options{}), alert.MultipleArguments},
		{"face in fuse", New(OpFuse, []topo.Shape{a}, []topo.Shape{face}, paver.Options{}), alert.UnsupportedType},
		{"no filler", NewWithFiller(OpFuse, []topo.Shape{a}, []topo.Shape{b}, nil), alert.NoFiller},
		{"unperformed filler", NewWithFiller(OpFuse, []topo.Shape{a}, []topo.Shape{b},
			paver.New([]topo.Shape{a, b}, paver.Options{})), alert.NoFiller},
		{"null inputs", New(OpFuse, []topo.Shape{{}}, []topo.Shape{{}}, paver.Options{}), alert.NullInputShapes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireAlert(t, tt.b.Perform(ctx), tt.want)
			assert.False(t, tt.b.IsDone())
			assert.True(t, tt.b.Shape().IsNull())
		})
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := Fuse(ctx, []topo.Shape{box(0, 0, 0, 1, 1, 1)}, []topo.Shape{box(2, 0, 0, 1, 1, 1)}, paver.Options{})
	requireAlert(t, err, alert.UserBreak)
	assert.False(t, b.IsDone())
}

func TestParseOperation(t *testing.T) {
	for _, op := range []Operation{OpGeneralFuse, OpFuse, OpCommon, OpCut, OpCut21, OpSection, OpSplit} {
		got, err := ParseOperation(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	got, err := ParseOperation(" Splitter ")
	require.NoError(t, err)
	assert.Equal(t, OpSplit, got)
	_, err = ParseOperation("xor")
	assert.Error(t, err)
}
