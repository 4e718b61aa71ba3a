package builder

import (
	"cmp"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/classify"
	"github.com/chazu/xylem/pkg/topo"
)

// shell is a connected set of facets. Closed shells use every edge once in
// each direction.
type shell struct {
	facets []facet
	volume float64
	closed bool
}

// solid is an outer shell with the cavities it encloses.
type solid struct {
	outer    shell
	cavities []shell
}

type edgeUse struct {
	facet    int
	from, to int
}

// assemble sews facets into shells. At an edge shared by more than two
// facets, a facet continues into the one reached first when turning about
// the edge from the facet into the material behind it.
func (b *Builder) assemble(facets []facet) []shell {
	uses := make(map[[2]int][]edgeUse)
	for i, f := range facets {
		for _, l := range f.loops() {
			for j, u := range l {
				v := l[(j+1)%len(l)]
				uses[edgeKey(u, v)] = append(uses[edgeKey(u, v)], edgeUse{i, u, v})
			}
		}
	}

	owner := make([]int, len(facets))
	for i := range owner {
		owner[i] = -1
	}
	var shells []shell
	for seed := range facets {
		if owner[seed] >= 0 {
			continue
		}
		id := len(shells)
		sh := shell{closed: true}
		owner[seed] = id
		queue := []int{seed}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			sh.facets = append(sh.facets, facets[i])
			for _, l := range facets[i].loops() {
				for j, u := range l {
					v := l[(j+1)%len(l)]
					k := b.turn(facets, i, u, v, uses[edgeKey(u, v)])
					switch {
					case k < 0:
						sh.closed = false
					case owner[k] < 0:
						owner[k] = id
						queue = append(queue, k)
					case owner[k] != id:
						sh.closed = false
					}
				}
			}
		}
		sh.volume = b.shellVolume(sh)
		shells = append(shells, sh)
	}
	return shells
}

// turn returns the facet continuing facet i across its edge u->v, or -1.
func (b *Builder) turn(facets []facet, i, u, v int, uses []edgeUse) int {
	d := b.d.Point(v).Sub(b.d.Point(u)).Normalize()
	nf := facets[i].normal()
	bf := nf.Cross(d)
	back := nf.MulScalar(-1)
	best, bestAngle := -1, math.Inf(1)
	for _, use := range uses {
		if use.facet == i || use.from != v || use.to != u {
			continue
		}
		bg := facets[use.facet].normal().Cross(d.MulScalar(-1))
		a := math.Atan2(bg.Dot(back), bg.Dot(bf))
		if a <= 1e-12 {
			a += 2 * math.Pi
		}
		if a < bestAngle {
			best, bestAngle = use.facet, a
		}
	}
	return best
}

func (b *Builder) shellVolume(sh shell) float64 {
	var vol float64
	for _, f := range sh.facets {
		for _, l := range f.loops() {
			vol += topo.LoopVolume(b.points(l))
		}
	}
	return vol
}

func (b *Builder) points(l []int) []v3.Vec {
	pts := make([]v3.Vec, len(l))
	for i, v := range l {
		pts[i] = b.d.Point(v)
	}
	return pts
}

// solidsOf sews facets into solids. Pieces used on both sides within one
// shell are fins and are dropped before sewing again.
func (b *Builder) solidsOf(facets []facet) []solid {
	var shells []shell
	for range 8 {
		shells = b.assemble(facets)
		fins := make(map[int]bool)
		for _, sh := range shells {
			side := make(map[int]bool)
			for _, f := range sh.facets {
				if rev, ok := side[f.p.id]; ok && rev != f.rev {
					fins[f.p.id] = true
				}
				side[f.p.id] = f.rev
			}
		}
		if len(fins) == 0 {
			break
		}
		facets = slices.DeleteFunc(slices.Clone(facets), func(f facet) bool { return fins[f.p.id] })
	}

	var outers, cavities []shell
	for _, sh := range shells {
		b.checkManifold(sh)
		if !sh.closed {
			b.report.AddKind(alert.ShellSplitterFailed, "open shell of %d faces, volume %.6g", len(sh.facets), sh.volume)
		}
		switch {
		case sh.volume > 0:
			outers = append(outers, sh)
		case sh.volume < 0:
			cavities = append(cavities, sh)
		}
	}
	slices.SortStableFunc(outers, func(x, y shell) int { return cmp.Compare(x.volume, y.volume) })

	solids := make([]solid, len(outers))
	containers := make([]*classify.Solid, len(outers))
	for i, sh := range outers {
		solids[i].outer = sh
		var loops [][]v3.Vec
		for _, f := range sh.facets {
			for _, l := range f.loops() {
				loops = append(loops, b.points(l))
			}
		}
		containers[i] = classify.FromLoops(loops)
	}
	for _, c := range cavities {
		inner := c.facets[0].p.point
		placed := false
		for i, sh := range outers {
			if -c.volume < sh.volume && containers[i].Contains(inner) {
				solids[i].cavities = append(solids[i].cavities, c)
				placed = true
				break
			}
		}
		if !placed {
			b.report.AddKind(alert.ShellSplitterFailed, "cavity of %d faces has no enclosing shell", len(c.facets))
		}
	}
	return solids
}

// checkManifold reports edges used more than twice inside one shell.
func (b *Builder) checkManifold(sh shell) {
	count := make(map[[2]int]int)
	for _, f := range sh.facets {
		for _, l := range f.loops() {
			for j, u := range l {
				count[edgeKey(u, l[(j+1)%len(l)])]++
			}
		}
	}
	for k, n := range count {
		if n > 2 {
			b.report.AddKind(alert.AcquiredSelfIntersection, "edge %d-%d is shared by %d faces of one shell", k[0], k[1], n)
			return
		}
	}
}
