package intersect

import (
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-7

func edge(t *testing.T, a, b v3.Vec) Edge {
	t.Helper()
	e, ok := NewEdge(a, b, tol)
	require.True(t, ok)
	return e
}

func rect(t *testing.T, pts ...v3.Vec) Face {
	t.Helper()
	f, ok := NewFace([][]v3.Vec{pts}, tol)
	require.True(t, ok)
	return f
}

func TestVertexVertex(t *testing.T) {
	_, ok := VertexVertex(v3.Vec{}, tol, v3.Vec{X: 1e-7}, tol, 0)
	assert.True(t, ok)
	_, ok = VertexVertex(v3.Vec{}, tol, v3.Vec{X: 0.0005}, tol, 0)
	assert.False(t, ok)
	_, ok = VertexVertex(v3.Vec{}, tol, v3.Vec{X: 0.0005}, tol, 0.001)
	assert.True(t, ok)
}

func TestVertexEdge(t *testing.T) {
	e := edge(t, v3.Vec{}, v3.Vec{X: 10})
	tests := []struct {
		name  string
		p     v3.Vec
		ok    bool
		param float64
	}{
		{"interior", v3.Vec{X: 4}, true, 4},
		{"off line", v3.Vec{X: 4, Y: 1}, false, 0},
		{"beyond end", v3.Vec{X: 11}, false, 0},
		{"end within tolerance", v3.Vec{X: 10 + 1e-8}, true, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok, err := VertexEdge(tt.p, tol, e, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.param, r.Param, 1e-9)
			}
		})
	}
	_, _, err := VertexEdge(v3.Vec{}, tol, Edge{}, 0)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestEdgeEdgeCrossing(t *testing.T) {
	e1 := edge(t, v3.Vec{}, v3.Vec{X: 10})
	e2 := edge(t, v3.Vec{X: 3, Y: -5}, v3.Vec{X: 3, Y: 5})
	r, err := EdgeEdge(e1, e2, 0)
	require.NoError(t, err)
	require.Equal(t, Point, r.Kind)
	assert.InDelta(t, 3, r.Param1, 1e-9)
	assert.InDelta(t, 5, r.Param2, 1e-9)

	// symmetric
	s, err := EdgeEdge(e2, e1, 0)
	require.NoError(t, err)
	require.Equal(t, Point, s.Kind)
	assert.InDelta(t, r.Param1, s.Param2, 1e-9)
	assert.InDelta(t, r.Param2, s.Param1, 1e-9)
}

func TestEdgeEdgeSkewMiss(t *testing.T) {
	e1 := edge(t, v3.Vec{}, v3.Vec{X: 10})
	e2 := edge(t, v3.Vec{X: 3, Y: -5, Z: 1}, v3.Vec{X: 3, Y: 5, Z: 1})
	r, err := EdgeEdge(e1, e2, 0)
	require.NoError(t, err)
	assert.Equal(t, None, r.Kind)

	r, err = EdgeEdge(e1, e2, 1.5)
	require.NoError(t, err)
	assert.Equal(t, Point, r.Kind)
}

func TestEdgeEdgeOverlap(t *testing.T) {
	e1 := edge(t, v3.Vec{}, v3.Vec{X: 10})
	e2 := edge(t, v3.Vec{X: 12}, v3.Vec{X: 4})
	r, err := EdgeEdge(e1, e2, 0)
	require.NoError(t, err)
	require.Equal(t, Overlap, r.Kind)
	assert.InDelta(t, 4, r.Range1[0], 1e-9)
	assert.InDelta(t, 10, r.Range1[1], 1e-9)
	assert.InDelta(t, 2, r.Range2[0], 1e-9)
	assert.InDelta(t, 8, r.Range2[1], 1e-9)
}

func TestEdgeEdgeTouchAtEnds(t *testing.T) {
	e1 := edge(t, v3.Vec{}, v3.Vec{X: 10})
	e2 := edge(t, v3.Vec{X: 10}, v3.Vec{X: 20})
	r, err := EdgeEdge(e1, e2, 0)
	require.NoError(t, err)
	require.Equal(t, Point, r.Kind)
	assert.InDelta(t, 10, r.Param1, 1e-9)
	assert.InDelta(t, 0, r.Param2, 1e-9)
}

func TestEdgeEdgeIsOrderIndependent(t *testing.T) {
	tilt := sdf.Rotate3d(v3.Vec{X: 1, Y: 2, Z: 3}.Normalize(), 0.7)
	tests := []struct {
		name string
		a, b [2]v3.Vec
	}{
		{"short edge leaning off a long one",
			[2]v3.Vec{{}, {X: 10}}, [2]v3.Vec{{X: 4}, {X: 5, Y: 1.5e-7}}},
		{"crossing", [2]v3.Vec{{}, {X: 10, Y: 1}}, [2]v3.Vec{{X: 3, Y: -5}, {X: 3.2, Y: 5}}},
		{"overlap", [2]v3.Vec{{}, {X: 10}}, [2]v3.Vec{{X: 12}, {X: 4}}},
		{"equal length, touching", [2]v3.Vec{{}, {X: 10}}, [2]v3.Vec{{X: 10}, {X: 20}}},
	}
	for _, tt := range tests {
		for _, m := range []struct {
			name string
			m    sdf.M44
		}{{"axis aligned", sdf.Identity3d()}, {"tilted", tilt}} {
			t.Run(tt.name+"/"+m.name, func(t *testing.T) {
				a := edge(t, m.m.MulPosition(tt.a[0]), m.m.MulPosition(tt.a[1]))
				b := edge(t, m.m.MulPosition(tt.b[0]), m.m.MulPosition(tt.b[1]))
				ab, err := EdgeEdge(a, b, 0)
				require.NoError(t, err)
				ba, err := EdgeEdge(b, a, 0)
				require.NoError(t, err)
				require.Equal(t, ab.Kind, ba.Kind)
				assert.Equal(t, ab.Param1, ba.Param2)
				assert.Equal(t, ab.Param2, ba.Param1)
				assert.Equal(t, ab.Range1, ba.Range2)
				assert.Equal(t, ab.Range2, ba.Range1)
			})
		}
	}

	// A short edge inside the tolerance tube of a long one overlaps it
	// whichever is given first.
	long := edge(t, v3.Vec{}, v3.Vec{X: 10})
	short := edge(t, v3.Vec{X: 4}, v3.Vec{X: 5, Y: 1.5e-7})
	r, err := EdgeEdge(short, long, 0)
	require.NoError(t, err)
	assert.Equal(t, Overlap, r.Kind)
	assert.InDelta(t, 4, r.Range2[0], 1e-6)
	assert.InDelta(t, 5, r.Range2[1], 1e-6)
}

func TestVertexFace(t *testing.T) {
	f := rect(t, v3.Vec{}, v3.Vec{X: 10}, v3.Vec{X: 10, Y: 10}, v3.Vec{Y: 10})
	r, ok, err := VertexFace(v3.Vec{X: 5, Y: 5}, tol, f, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, r.OnBoundary)

	r, ok, _ = VertexFace(v3.Vec{X: 10, Y: 5}, tol, f, 0)
	assert.True(t, ok)
	assert.True(t, r.OnBoundary)

	_, ok, _ = VertexFace(v3.Vec{X: 5, Y: 5, Z: 0.1}, tol, f, 0)
	assert.False(t, ok)
}

func TestEdgeFaceCrossing(t *testing.T) {
	f := rect(t, v3.Vec{}, v3.Vec{X: 10}, v3.Vec{X: 10, Y: 10}, v3.Vec{Y: 10})
	r, err := EdgeFace(edge(t, v3.Vec{X: 5, Y: 5, Z: -2}, v3.Vec{X: 5, Y: 5, Z: 3}), f, 0)
	require.NoError(t, err)
	require.Equal(t, Point, r.Kind)
	assert.InDelta(t, 2, r.Param, 1e-9)

	r, err = EdgeFace(edge(t, v3.Vec{X: 15, Y: 5, Z: -2}, v3.Vec{X: 15, Y: 5, Z: 3}), f, 0)
	require.NoError(t, err)
	assert.Equal(t, None, r.Kind)
}

func TestEdgeFaceInPlane(t *testing.T) {
	f := rect(t, v3.Vec{}, v3.Vec{X: 10}, v3.Vec{X: 10, Y: 10}, v3.Vec{Y: 10})
	r, err := EdgeFace(edge(t, v3.Vec{X: -5, Y: 5}, v3.Vec{X: 15, Y: 5}), f, 0)
	require.NoError(t, err)
	require.Equal(t, Overlap, r.Kind)
	require.Len(t, r.Ranges, 1)
	assert.InDelta(t, 5, r.Ranges[0][0], 1e-9)
	assert.InDelta(t, 15, r.Ranges[0][1], 1e-9)
}

func TestFaceFace(t *testing.T) {
	bottom := rect(t, v3.Vec{}, v3.Vec{X: 10}, v3.Vec{X: 10, Y: 10}, v3.Vec{Y: 10})
	wall := rect(t, v3.Vec{X: 5, Y: 2, Z: -5}, v3.Vec{X: 5, Y: 20, Z: -5}, v3.Vec{X: 5, Y: 20, Z: 5}, v3.Vec{X: 5, Y: 2, Z: 5})
	r, err := FaceFace(bottom, wall, 0)
	require.NoError(t, err)
	assert.False(t, r.Coplanar)
	require.Len(t, r.Curves, 1)
	c := r.Curves[0]
	assert.InDelta(t, 8, c.Length(), 1e-9)
	for _, p := range []v3.Vec{c.Start(), c.End()} {
		assert.InDelta(t, 5, p.X, 1e-9)
		assert.InDelta(t, 0, p.Z, 1e-9)
	}

	lifted := rect(t, v3.Vec{X: 5, Y: 5}, v3.Vec{X: 15, Y: 5}, v3.Vec{X: 15, Y: 15}, v3.Vec{X: 5, Y: 15})
	r, err = FaceFace(bottom, lifted, 0)
	require.NoError(t, err)
	assert.True(t, r.Coplanar)
	assert.Empty(t, r.Curves)

	far := rect(t, v3.Vec{Z: 1}, v3.Vec{X: 10, Z: 1}, v3.Vec{X: 10, Y: 10, Z: 1}, v3.Vec{Y: 10, Z: 1})
	r, err = FaceFace(bottom, far, 0)
	require.NoError(t, err)
	assert.False(t, r.Coplanar)
	assert.Empty(t, r.Curves)
}
