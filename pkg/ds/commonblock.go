package ds

import (
	"slices"
)

// CommonBlockSamples is the number of interior points compared by TryMerge.
const CommonBlockSamples = 5

// CommonBlock groups pave blocks of different edges that occupy the same
// portion of space. The builder emits one edge per common block.
type CommonBlock struct {
	blocks []*PaveBlock
	faces  []int
}

// NewCommonBlock returns a common block holding pbs.
func NewCommonBlock(pbs ...*PaveBlock) *CommonBlock {
	cb := &CommonBlock{}
	for _, pb := range pbs {
		cb.add(pb)
	}
	return cb
}

func (cb *CommonBlock) add(pb *PaveBlock) {
	if !slices.Contains(cb.blocks, pb) {
		cb.blocks = append(cb.blocks, pb)
	}
}

// PaveBlocks returns the member blocks.
func (cb *CommonBlock) PaveBlocks() []*PaveBlock { return slices.Clone(cb.blocks) }

// Faces returns the faces the common block lies on.
func (cb *CommonBlock) Faces() []int { return slices.Clone(cb.faces) }

// AddFace records that the block lies on face f.
func (cb *CommonBlock) AddFace(f int) {
	if !slices.Contains(cb.faces, f) {
		cb.faces = append(cb.faces, f)
		slices.Sort(cb.faces)
	}
}

// Contains reports whether pb is a member.
func (cb *CommonBlock) Contains(pb *PaveBlock) bool { return slices.Contains(cb.blocks, pb) }

// Real returns the canonical member: the block of the lowest edge index,
// then the lowest parameter.
func (cb *CommonBlock) Real() *PaveBlock {
	return slices.MinFunc(cb.blocks, func(a, b *PaveBlock) int {
		if a.Edge != b.Edge {
			return a.Edge - b.Edge
		}
		switch {
		case a.Pave1.Param < b.Pave1.Param:
			return -1
		case a.Pave1.Param > b.Pave1.Param:
			return 1
		}
		return 0
	})
}

// TryMerge adds a and b to the block when they join the same two vertices and
// CommonBlockSamples interior points of a lie on b within the sum of the edge
// tolerances plus fuzzy. Nothing changes when the test fails.
func (cb *CommonBlock) TryMerge(d *DS, a, b *PaveBlock, fuzzy float64) bool {
	a1, a2 := d.BlockVertices(a)
	b1, b2 := d.BlockVertices(b)
	if !(a1 == b1 && a2 == b2) && !(a1 == b2 && a2 == b1) {
		return false
	}
	ea, eb := d.Shape(a.Edge), d.Shape(b.Edge)
	if ea.Seg.Line == nil || eb.Seg.Line == nil {
		return false
	}
	tol := ea.Tol + eb.Tol + fuzzy
	sa := ea.Seg.Sub(a.Pave1.Param, a.Pave2.Param)
	sb := eb.Seg.Sub(b.Pave1.Param, b.Pave2.Param)
	for _, t := range sa.Samples(CommonBlockSamples) {
		if dist, _ := sb.Distance(sa.Value(t)); dist > tol {
			return false
		}
	}
	cb.add(a)
	cb.add(b)
	return true
}

// MergePaveBlocks puts a and b into one common block when TryMerge accepts
// them, joining any common blocks they already belong to.
func (d *DS) MergePaveBlocks(a, b *PaveBlock, fuzzy float64) bool {
	if a == b {
		return true
	}
	d.pmu.Lock()
	ca, cbb := d.cbOf[a], d.cbOf[b]
	d.pmu.Unlock()
	if ca != nil && ca == cbb {
		return true
	}
	target := ca
	if target == nil {
		target = cbb
	}
	fresh := target == nil
	if fresh {
		target = &CommonBlock{}
	}
	if !target.TryMerge(d, a, b, fuzzy) {
		return false
	}
	d.pmu.Lock()
	defer d.pmu.Unlock()
	for _, other := range []*CommonBlock{ca, cbb} {
		if other == nil || other == target {
			continue
		}
		for _, pb := range other.blocks {
			target.add(pb)
		}
		for _, f := range other.faces {
			target.AddFace(f)
		}
	}
	for _, pb := range target.blocks {
		d.cbOf[pb] = target
	}
	return true
}

// CommonBlockOf returns the common block of pb, or nil.
func (d *DS) CommonBlockOf(pb *PaveBlock) *CommonBlock {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	return d.cbOf[pb]
}

// RealPaveBlock returns the canonical block standing for pb.
func (d *DS) RealPaveBlock(pb *PaveBlock) *PaveBlock {
	if cb := d.CommonBlockOf(pb); cb != nil {
		return cb.Real()
	}
	return pb
}

// CommonBlocks returns the distinct common blocks ordered by their canonical
// block.
func (d *DS) CommonBlocks() []*CommonBlock {
	d.pmu.Lock()
	seen := make(map[*CommonBlock]bool)
	var out []*CommonBlock
	for _, cb := range d.cbOf {
		if !seen[cb] {
			seen[cb] = true
			out = append(out, cb)
		}
	}
	d.pmu.Unlock()
	slices.SortFunc(out, func(x, y *CommonBlock) int {
		a, b := x.Real(), y.Real()
		if a.Edge != b.Edge {
			return a.Edge - b.Edge
		}
		switch {
		case a.Pave1.Param < b.Pave1.Param:
			return -1
		case a.Pave1.Param > b.Pave1.Param:
			return 1
		}
		return 0
	})
	return out
}
