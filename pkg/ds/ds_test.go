package ds

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

func twoBoxes() *DS {
	a := topo.Box(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})
	b := topo.Box(v3.Vec{X: 5, Y: 5, Z: 5}, v3.Vec{X: 10, Y: 10, Z: 10})
	return New([]topo.Shape{a, b})
}

func TestNewFlattensArguments(t *testing.T) {
	d := twoBoxes()
	assert.Equal(t, 2, d.NumberOfArguments())
	assert.Equal(t, 56, d.NumberOfShapes())
	assert.Len(t, d.Indices(topo.Vertex), 16)
	assert.Len(t, d.Indices(topo.Edge), 24)
	assert.Len(t, d.Indices(topo.Face), 12)

	first, last := d.ArgumentRange(1)
	assert.Equal(t, 28, first)
	assert.Equal(t, 56, last)
	for i := first; i < last; i++ {
		assert.Equal(t, 1, d.Shape(i).Rank)
	}

	solid := d.Indices(topo.Solid)[0]
	faces := d.SubShapes(solid, topo.Face)
	require.Len(t, faces, 6)
	for _, f := range faces {
		info := d.Shape(f)
		assert.Equal(t, solid, info.Solid)
		assert.Len(t, info.Loops, 1)
		assert.Len(t, info.Loops[0], 4)
		assert.InDelta(t, 100, info.Face.Region.Area(), 1e-9)
	}
	assert.Len(t, d.SubShapes(solid, topo.Vertex), 8)
}

func TestFaceFramesFaceOutward(t *testing.T) {
	d := twoBoxes()
	center := v3.Vec{X: 5, Y: 5, Z: 5}
	for _, f := range d.SubShapes(d.Indices(topo.Solid)[0], topo.Face) {
		info := d.Shape(f)
		p := info.Face.Plane
		assert.Greater(t, p.Origin.Sub(center).Dot(p.Normal), 0.0)
		assert.Greater(t, geom.SignedArea(info.Face.Region.Loops[0]), 0.0)
	}
}

func TestAddInterferenceIsIdempotent(t *testing.T) {
	d := twoBoxes()
	vs := d.Indices(topo.Vertex)
	pos, added := d.AddInterference(Interference{Kind: VV, Index1: vs[0], Index2: vs[9], Payload: VVData{NewVertex: -1}})
	assert.True(t, added)
	again, added := d.AddInterference(Interference{Kind: VV, Index1: vs[9], Index2: vs[0], Payload: VVData{NewVertex: -1}})
	assert.False(t, added)
	assert.Equal(t, pos, again)
	assert.Equal(t, 1, d.CountInterferences(VV))
	assert.True(t, d.HasInterference(VV, vs[9], vs[0]))
	assert.False(t, d.HasInterference(VE, vs[9], vs[0]))

	var n int
	for in := range d.InterferencesOf(VV) {
		assert.Equal(t, vs[0], in.Index1)
		n++
	}
	assert.Equal(t, 1, n)
	assert.Len(t, d.InterferencesWith(vs[9]), 1)
}

func TestAddInterferenceRejectsInvalidRecords(t *testing.T) {
	d := twoBoxes()
	assert.Panics(t, func() {
		d.AddInterference(Interference{Kind: VV, Index1: 0, Index2: 1000, Payload: VVData{}})
	})
	assert.Panics(t, func() {
		d.AddInterference(Interference{Kind: EE, Index1: 0, Index2: 1, Payload: VVData{}})
	})
	assert.Panics(t, func() { d.Shape(-1) })
}

func TestSameDomainResolution(t *testing.T) {
	d := twoBoxes()
	a := d.AddVertex(v3.Vec{}, 1e-7)
	b := d.AddVertex(v3.Vec{}, 1e-7)
	c := d.AddVertex(v3.Vec{}, 1e-7)
	d.SetSameDomain(c, b)
	d.SetSameDomain(b, a)
	assert.Equal(t, a, d.Real(c))
	assert.True(t, d.HasSameDomain(c))
	assert.False(t, d.HasSameDomain(a))
	d.SetSameDomain(a, c)
	assert.Equal(t, a, d.Real(a))
}

func TestPaveSetAddMergesWithinTolerance(t *testing.T) {
	d := twoBoxes()
	e := d.Indices(topo.Edge)[0]
	ps := d.PaveSetFor(e)
	assert.Same(t, ps, d.PaveSetFor(e))

	v1 := d.AddVertex(v3.Vec{}, 1e-7)
	v2 := d.AddVertex(v3.Vec{}, 1e-7)
	v3i := d.AddVertex(v3.Vec{}, 1e-7)
	ps.Add(Pave{Vertex: v2, Param: 5}, 1e-6)
	kept, m, merged := ps.Add(Pave{Vertex: v1, Param: 5 + 1e-7}, 1e-6)
	require.True(t, merged)
	assert.Equal(t, v1, kept.Vertex)
	assert.Equal(t, Merge{Kept: v1, Dropped: v2}, m)

	_, _, merged = ps.Add(Pave{Vertex: v3i, Param: 3}, 1e-6)
	assert.False(t, merged)
	paves := ps.Paves()
	require.Len(t, paves, 2)
	assert.Equal(t, 3.0, paves[0].Param)
	assert.Equal(t, e, paves[0].Edge)
}

func TestPaveSetFinalizeAndSplit(t *testing.T) {
	d := twoBoxes()
	e := d.Indices(topo.Edge)[0]
	info := d.Shape(e)
	ps := d.PaveSetFor(e)
	mid := d.AddVertex(info.Seg.Value(4), 1e-7)
	nearEnd := d.AddVertex(info.Seg.Value(info.Seg.Last), 1e-7)
	ps.Add(Pave{Vertex: mid, Param: 4}, 1e-7)
	ps.Add(Pave{Vertex: nearEnd, Param: info.Seg.Last - 1e-9}, 1e-7)

	merges := ps.Finalize(info.Seg.First, info.Seg.Last, 1e-7)
	require.Len(t, merges, 1)
	assert.Equal(t, nearEnd, merges[0].Dropped)
	assert.Equal(t, info.Sub[1], merges[0].Kept)

	paves := ps.Paves()
	require.Len(t, paves, 3)
	assert.Equal(t, info.Sub[0], paves[0].Vertex)
	assert.Equal(t, info.Sub[1], paves[2].Vertex)
	assert.Nil(t, ps.Finalize(0, 1, 0))

	blocks := ps.SplitIntoBlocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, mid, blocks[0].Pave2.Vertex)
	assert.Equal(t, mid, blocks[1].Pave1.Vertex)
	assert.InDelta(t, info.Seg.Length(), blocks[0].Length()+blocks[1].Length(), 1e-12)
	assert.Equal(t, -1, blocks[0].SplitEdge)
}

func TestPaveSetForRejectsNonEdges(t *testing.T) {
	d := twoBoxes()
	assert.Panics(t, func() { d.PaveSetFor(d.Indices(topo.Face)[0]) })
}

func TestCommonBlockTryMerge(t *testing.T) {
	d := New(nil)
	p := d.AddVertex(v3.Vec{}, 1e-7)
	q := d.AddVertex(v3.Vec{X: 10}, 1e-7)
	r := d.AddVertex(v3.Vec{X: 10, Y: 1}, 1e-7)
	s1, _ := geom.NewSegment(v3.Vec{}, v3.Vec{X: 10})
	s2, _ := geom.NewSegment(v3.Vec{X: 10}, v3.Vec{})
	s3, _ := geom.NewSegment(v3.Vec{}, v3.Vec{X: 10, Y: 1})
	e1 := d.AddEdge(s1, p, q, 1e-7)
	e2 := d.AddEdge(s2, q, p, 1e-7)
	e3 := d.AddEdge(s3, p, r, 1e-7)

	block := func(e int) *PaveBlock {
		ps := d.PaveSetFor(e)
		info := d.Shape(e)
		ps.Finalize(info.Seg.First, info.Seg.Last, 1e-7)
		pbs := ps.SplitIntoBlocks()
		d.SetPaveBlocks(e, pbs)
		return pbs[0]
	}
	b1, b2, b3 := block(e1), block(e2), block(e3)

	cb := NewCommonBlock()
	assert.False(t, cb.TryMerge(d, b1, b3, 0))
	assert.Empty(t, cb.PaveBlocks())
	assert.True(t, cb.TryMerge(d, b1, b2, 0))
	assert.Len(t, cb.PaveBlocks(), 2)
	assert.Same(t, b1, cb.Real())

	assert.True(t, d.MergePaveBlocks(b2, b1, 0))
	assert.Same(t, b1, d.RealPaveBlock(b2))
	assert.Same(t, b3, d.RealPaveBlock(b3))
	assert.Len(t, d.CommonBlocks(), 1)

	// a vertex merge makes the third block share both ends, but it still
	// deviates from the others by 1 at its far end
	d.SetSameDomain(r, q)
	assert.False(t, d.MergePaveBlocks(b1, b3, 0))
	assert.True(t, d.MergePaveBlocks(b1, b3, 1))
	assert.Len(t, d.CommonBlockOf(b3).PaveBlocks(), 3)
}

func TestFaceInfoDeduplicates(t *testing.T) {
	d := twoBoxes()
	fi := d.FaceInfo(d.Indices(topo.Face)[0])
	fi.AddVertexIn(3)
	fi.AddVertexIn(3)
	fi.AddSection(7)
	fi.AddSection(7)
	fi.AddEdgeIn(EdgeRange{Edge: 1, Range: [2]float64{0, 1}})
	assert.Equal(t, []int{3}, fi.VerticesIn())
	assert.Equal(t, []int{7}, fi.Sections())
	assert.Len(t, fi.EdgesIn(), 1)
	assert.Same(t, fi, d.FaceInfo(d.Indices(topo.Face)[0]))
}

func TestShapeInfoEdgeView(t *testing.T) {
	d := twoBoxes()
	e := d.Shape(d.Indices(topo.Edge)[0])
	var ie intersect.Edge = e.Edge()
	assert.InDelta(t, 10, ie.Seg.Length(), 1e-12)
	assert.False(t, e.Small)
}
