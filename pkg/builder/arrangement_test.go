package builder

import (
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/xylem/pkg/geom"
)

type seg struct {
	a, b int
}

func arrange(pos map[int]v2.Vec, segs ...seg) *arrangement {
	ar := newArrangement()
	for _, s := range segs {
		ar.add(s.a, s.b, pos[s.a], pos[s.b])
	}
	return ar
}

var square = map[int]v2.Vec{
	0: {X: 0, Y: 0}, 1: {X: 1, Y: 0}, 2: {X: 1, Y: 1}, 3: {X: 0, Y: 1},
	4: {X: 0.5, Y: 0}, 5: {X: 1, Y: 0.5}, 6: {X: 0.5, Y: 1}, 7: {X: 0, Y: 0.5},
	8: {X: 0.5, Y: 0.5},
	10: {X: 0.25, Y: 0.25}, 11: {X: 0.75, Y: 0.25}, 12: {X: 0.75, Y: 0.75}, 13: {X: 0.25, Y: 0.75},
}

func TestArrangementDiagonal(t *testing.T) {
	ar := arrange(square, seg{0, 1}, seg{1, 2}, seg{2, 3}, seg{3, 0}, seg{0, 2})
	rs := ar.regions()
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.Len(t, r.outer, 3)
		assert.Empty(t, r.holes)
		assert.InDelta(t, 0.5, ar.polygon(r).Area(), 1e-12)
		assert.Greater(t, geom.SignedArea(ar.polygon(r).Loops[0]), 0.0)
	}
}

func TestArrangementCross(t *testing.T) {
	ar := arrange(square,
		seg{0, 4}, seg{4, 1}, seg{1, 5}, seg{5, 2}, seg{2, 6}, seg{6, 3}, seg{3, 7}, seg{7, 0},
		seg{4, 8}, seg{8, 6}, seg{7, 8}, seg{8, 5},
		seg{0, 4}, // repeated
	)
	rs := ar.regions()
	require.Len(t, rs, 4)
	for _, r := range rs {
		assert.Len(t, r.outer, 4)
		assert.InDelta(t, 0.25, ar.polygon(r).Area(), 1e-12)
	}
}

func TestArrangementNestedLoopBecomesHole(t *testing.T) {
	ar := arrange(square,
		seg{0, 1}, seg{1, 2}, seg{2, 3}, seg{3, 0},
		seg{10, 11}, seg{11, 12}, seg{12, 13}, seg{13, 10},
	)
	rs := ar.regions()
	require.Len(t, rs, 2)
	var ring, island region
	for _, r := range rs {
		if len(r.holes) > 0 {
			ring = r
		} else {
			island = r
		}
	}
	require.Len(t, ring.holes, 1)
	assert.Less(t, geom.SignedArea(ar.polygon(ring).Loops[1]), 0.0, "holes turn clockwise")
	assert.InDelta(t, 0.75, ar.polygon(ring).Area(), 1e-12)
	assert.InDelta(t, 0.25, ar.polygon(island).Area(), 1e-12)
}

func TestArrangementDropsDanglingEdges(t *testing.T) {
	ar := arrange(square,
		seg{0, 1}, seg{1, 2}, seg{2, 3}, seg{3, 0},
		seg{0, 8}, seg{8, 12}, seg{5, 5},
	)
	rs := ar.regions()
	require.Len(t, rs, 1)
	assert.Len(t, rs[0].outer, 4)
	assert.InDelta(t, 1, ar.polygon(rs[0]).Area(), 1e-12)
}

func TestFacetKey(t *testing.T) {
	p := &piece{loops: [][]int{{3, 1, 2}, {7, 5, 6}, {9, 8, 10}}}
	q := &piece{loops: [][]int{{2, 3, 1}, {8, 10, 9}, {6, 7, 5}}}
	assert.Equal(t, facet{p: p}.key(), facet{p: q}.key())
	assert.NotEqual(t, facet{p: p}.key(), facet{p: p, rev: true}.key())

	rev := facet{p: p, rev: true}.loops()
	assert.Equal(t, []int{2, 1, 3}, rev[0])
	assert.Equal(t, []int{3, 1, 2}, p.loops[0], "reversing does not touch the piece")
}

func TestMask(t *testing.T) {
	m := newMask(70)
	assert.True(t, m.empty())
	m.set(3)
	m.set(69)
	assert.True(t, m.has(69))
	assert.False(t, m.has(68))

	o := newMask(70)
	o.set(69)
	assert.True(t, m.intersects(o))
	assert.False(t, m.equal(o))
	assert.NotEqual(t, m.key(), o.key())
	assert.Len(t, m, 2)
}
