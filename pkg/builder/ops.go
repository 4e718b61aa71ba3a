package builder

import (
	"context"
	"slices"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/intersect"
	"github.com/chazu/xylem/pkg/topo"
)

// buildBoolean keeps the pieces across which the operation's predicate
// changes, oriented from inside to outside, and sews them into solids.
func (b *Builder) buildBoolean(ctx context.Context) ([]topo.Ref, error) {
	var facets []facet
	for _, p := range b.pieces {
		if p.solid < 0 {
			continue
		}
		in := b.op.keeps(p.below.intersects(b.objMask), p.below.intersects(b.toolMask))
		out := b.op.keeps(p.above.intersects(b.objMask), p.above.intersects(b.toolMask))
		if in == out {
			continue
		}
		facets = append(facets, facet{p: p, rev: !in})
	}
	facets = b.dedupe(facets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	solids := b.solidsOf(facets)
	if len(facets) > 0 && len(solids) == 0 {
		b.report.AddKind(alert.BuilderSolidFailed, "%s: %d faces did not close into a solid", b.op, len(facets))
		return nil, nil
	}
	refs := make([]topo.Ref, len(solids))
	for i, s := range solids {
		refs[i] = b.out.solid(s)
	}
	return refs, nil
}

// buildCells makes one solid per connected region of space with the same
// set of containing arguments. Faces of non-solid arguments lying inside a
// region split it; the splitter keeps only regions inside an object.
func (b *Builder) buildCells(ctx context.Context) ([]topo.Ref, error) {
	groups := make(map[string][]facet)
	var order []string
	add := func(m mask, fs ...facet) {
		k := m.key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], fs...)
	}
	wanted := func(m mask) bool {
		if m.empty() {
			return false
		}
		return b.op != OpSplit || m.intersects(b.objMask)
	}

	var loose []facet
	for _, p := range b.pieces {
		if p.solid >= 0 {
			if p.below.equal(p.above) {
				continue
			}
			if wanted(p.below) {
				add(p.below, facet{p: p})
			}
			if wanted(p.above) {
				add(p.above, facet{p: p, rev: true})
			}
			continue
		}
		switch {
		case wanted(p.below):
			add(p.below, facet{p: p}, facet{p: p, rev: true})
		case b.op == OpGeneralFuse || b.group(p.rank) == 0:
			loose = append(loose, facet{p: p})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var refs []topo.Ref
	var sewn int
	for _, k := range order {
		facets := b.dedupe(groups[k])
		sewn += len(facets)
		for _, s := range b.solidsOf(facets) {
			refs = append(refs, b.out.solid(s))
		}
	}
	if sewn > 0 && len(refs) == 0 {
		b.report.AddKind(alert.BuilderSolidFailed, "%s: %d faces did not close into a solid", b.op, sewn)
		return nil, nil
	}
	for _, f := range b.dedupe(loose) {
		refs = append(refs, b.out.face(f))
	}
	return refs, nil
}

// dedupe drops facets with the same oriented boundary as an earlier one,
// remembering which piece stands for the dropped one.
func (b *Builder) dedupe(facets []facet) []facet {
	if b.alias == nil {
		b.alias = make(map[int]int)
	}
	seen := make(map[string]*piece)
	out := make([]facet, 0, len(facets))
	for _, f := range facets {
		k := f.key()
		if p, ok := seen[k]; ok {
			if p != f.p {
				b.alias[f.p.id] = p.id
			}
			continue
		}
		seen[k] = f.p
		out = append(out, f)
	}
	return out
}

// buildSection collects the edges shared by objects and tools: section
// edges of face pairs, edges lying in a face of the other group and
// coincident edges. Vertices where the groups touch without an edge are
// added on their own.
func (b *Builder) buildSection() []topo.Ref {
	d := b.d
	cross := func(in ds.Interference) bool {
		r1, r2 := d.Shape(in.Index1).Rank, d.Shape(in.Index2).Rank
		return r1 >= 0 && r2 >= 0 && b.group(r1) != b.group(r2)
	}

	var edges [][2]int
	inEdge := make(map[int]bool)
	seen := make(map[[2]int]bool)
	addEdge := func(pb *ds.PaveBlock) {
		u, v := d.BlockVertices(pb)
		k := edgeKey(u, v)
		if u == v || seen[k] {
			return
		}
		seen[k] = true
		inEdge[u], inEdge[v] = true, true
		edges = append(edges, [2]int{u, v})
	}
	var points []int
	addPoint := func(v int) {
		if v >= 0 {
			points = append(points, d.Real(v))
		}
	}

	for in := range d.InterferencesOf(ds.FF) {
		if !cross(in) {
			continue
		}
		data := in.Payload.(ds.FFData)
		for _, c := range data.Curves {
			for _, pb := range d.PaveBlocks(c) {
				addEdge(pb)
			}
		}
		for _, v := range data.Points {
			addPoint(v)
		}
	}
	for in := range d.InterferencesOf(ds.EF) {
		if !cross(in) {
			continue
		}
		data := in.Payload.(ds.EFData)
		if data.Kind != intersect.Overlap {
			addPoint(data.Vertex)
			continue
		}
		tol := d.Shape(in.Index1).Tol + b.opts.Fuzzy
		for _, pb := range d.PaveBlocks(in.Index1) {
			for _, r := range data.Ranges {
				if pb.Within(r, tol) {
					addEdge(pb)
				}
			}
		}
	}
	for _, cb := range d.CommonBlocks() {
		var groups [2]bool
		for _, pb := range cb.PaveBlocks() {
			if r := d.Shape(pb.Edge).Rank; r >= 0 {
				groups[b.group(r)] = true
			}
		}
		if groups[0] && groups[1] {
			addEdge(cb.Real())
		}
	}
	for in := range d.InterferencesOf(ds.VV) {
		if cross(in) {
			addPoint(in.Payload.(ds.VVData).NewVertex)
		}
	}
	for _, k := range []ds.InterfKind{ds.VE, ds.VF} {
		for in := range d.InterferencesOf(k) {
			if cross(in) {
				addPoint(in.Index1)
			}
		}
	}
	for in := range d.InterferencesOf(ds.EE) {
		if cross(in) {
			addPoint(in.Payload.(ds.EEData).Vertex)
		}
	}

	refs := make([]topo.Ref, 0, len(edges))
	for _, e := range edges {
		refs = append(refs, b.out.edge(e[0], e[1]))
	}
	slices.Sort(points)
	for _, v := range slices.Compact(points) {
		if !inEdge[v] {
			refs = append(refs, topo.Ref{Index: b.out.vertex(v), Orientation: topo.Forward})
		}
	}
	return refs
}
