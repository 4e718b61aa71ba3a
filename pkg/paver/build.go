package paver

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

// buildPaveBlocks finalizes every pave set and splits the edges into pave
// blocks, then hands the blocks lying in faces to the face infos.
func (f *Filler) buildPaveBlocks(ctx context.Context) error {
	edges := f.d.Indices(topo.Edge)
	for _, e := range edges {
		s := f.d.Shape(e)
		if s.Small {
			continue
		}
		v1, v2 := f.d.EdgeVertices(e)
		tol := s.Tol + math.Max(f.d.VertexTol(v1), f.d.VertexTol(v2)) + f.opts.Fuzzy
		for _, m := range f.d.PaveSetFor(e).Finalize(s.Seg.First, s.Seg.Last, tol) {
			f.d.SetSameDomain(m.Dropped, m.Kept)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range edges {
		s := f.d.Shape(e)
		if s.Small {
			continue
		}
		var keep []*ds.PaveBlock
		for _, pb := range f.d.PaveSetFor(e).SplitIntoBlocks() {
			a, b := f.d.BlockVertices(pb)
			if a == b || pb.Length() <= s.Tol {
				f.report.AddShape(alert.NotSplittableEdge, s.Source, "edge %d: block %s collapses", e, pb)
				if a != b {
					f.d.SetSameDomain(max(a, b), min(a, b))
				}
				continue
			}
			keep = append(keep, pb)
		}
		f.d.SetPaveBlocks(e, keep)
	}

	for _, fc := range f.d.Indices(topo.Face) {
		fi := f.d.FaceInfo(fc)
		for _, sec := range fi.Sections() {
			for _, pb := range f.d.PaveBlocks(sec) {
				fi.AddPaveBlockSc(pb)
			}
		}
		for _, r := range fi.EdgesIn() {
			tol := f.d.Shape(r.Edge).Tol + f.opts.Fuzzy
			for _, pb := range f.d.PaveBlocks(r.Edge) {
				if pb.Within(r.Range, tol) {
					fi.AddPaveBlockIn(pb)
				}
			}
		}
	}
	return nil
}

// buildCommonBlocks groups coincident pave blocks: the overlaps found by the
// edge/edge pass, then any two blocks of different origin joining the same
// pair of vertices.
func (f *Filler) buildCommonBlocks(ctx context.Context) error {
	fuzzy := f.opts.Fuzzy
	for in := range f.d.InterferencesOf(ds.EE) {
		data := in.Payload.(ds.EEData)
		if data.Kind != intersect.Overlap {
			continue
		}
		t1 := f.d.Shape(in.Index1).Tol + fuzzy
		t2 := f.d.Shape(in.Index2).Tol + fuzzy
		for _, a := range f.d.PaveBlocks(in.Index1) {
			if !a.Within(data.Range1, t1) {
				continue
			}
			for _, b := range f.d.PaveBlocks(in.Index2) {
				if b.Within(data.Range2, t2) {
					f.d.MergePaveBlocks(a, b, fuzzy)
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buckets := make(map[[2]int][]*ds.PaveBlock)
	for _, e := range f.d.Indices(topo.Edge) {
		for _, pb := range f.d.PaveBlocks(e) {
			a, b := f.d.BlockVertices(pb)
			key := [2]int{min(a, b), max(a, b)}
			buckets[key] = append(buckets[key], pb)
		}
	}
	keys := make([][2]int, 0, len(buckets))
	for k, list := range buckets {
		if len(list) > 1 {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(x, y [2]int) int {
		if c := cmp.Compare(x[0], y[0]); c != 0 {
			return c
		}
		return cmp.Compare(x[1], y[1])
	})
	for _, k := range keys {
		list := buckets[k]
		for i, pb := range list {
			for _, other := range list[:i] {
				ra, rb := f.d.Shape(pb.Edge).Rank, f.d.Shape(other.Edge).Rank
				if ra >= 0 && ra == rb {
					continue
				}
				if f.d.MergePaveBlocks(other, pb, fuzzy) {
					break
				}
			}
		}
	}

	for _, fc := range f.d.Indices(topo.Face) {
		fi := f.d.FaceInfo(fc)
		for _, pb := range slices.Concat(fi.PaveBlocksIn(), fi.PaveBlocksSc()) {
			if cb := f.d.CommonBlockOf(pb); cb != nil {
				cb.AddFace(fc)
			}
		}
	}
	return nil
}

// makeSplitEdges gives every pave block a split-edge row. Blocks spanning
// their whole edge reuse the edge; members of a common block share the row of
// the canonical block.
func (f *Filler) makeSplitEdges(ctx context.Context) error {
	for _, e := range f.d.Indices(topo.Edge) {
		for _, pb := range f.d.PaveBlocks(e) {
			canon := f.d.RealPaveBlock(pb)
			if canon.SplitEdge < 0 {
				rs := f.d.Shape(canon.Edge)
				a, b := f.d.BlockVertices(canon)
				v1, v2 := f.d.EdgeVertices(canon.Edge)
				if a == v1 && b == v2 && canon.Pave1.Param == rs.Seg.First && canon.Pave2.Param == rs.Seg.Last {
					canon.SplitEdge = canon.Edge
				} else {
					canon.SplitEdge = f.d.AddEdge(rs.Seg.Sub(canon.Pave1.Param, canon.Pave2.Param), a, b, rs.Tol)
				}
			}
			pb.SplitEdge = canon.SplitEdge
		}
	}
	return nil
}
