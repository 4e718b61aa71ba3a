// Package unionfind partitions integer ids into disjoint sets, with path
// compression and union by rank.
package unionfind

// Sets is a disjoint-set forest. The zero value is not usable; call New.
type Sets struct {
	parent map[int]int
	rank   map[int]int
}

func New() *Sets {
	return &Sets{parent: make(map[int]int), rank: make(map[int]int)}
}

// Find returns the representative of x, adding x as a singleton when unseen.
func (s *Sets) Find(x int) int {
	p, ok := s.parent[x]
	if !ok {
		s.parent[x] = x
		return x
	}
	if p != x {
		s.parent[x] = s.Find(p)
	}
	return s.parent[x]
}

// Union merges the sets of x and y.
func (s *Sets) Union(x, y int) {
	rx, ry := s.Find(x), s.Find(y)
	if rx == ry {
		return
	}
	switch {
	case s.rank[rx] < s.rank[ry]:
		s.parent[rx] = ry
	case s.rank[rx] > s.rank[ry]:
		s.parent[ry] = rx
	default:
		s.parent[ry] = rx
		s.rank[rx]++
	}
}

// Groups returns the sets with more than one member, keyed by representative.
func (s *Sets) Groups() map[int][]int {
	out := make(map[int][]int)
	for x := range s.parent {
		r := s.Find(x)
		out[r] = append(out[r], x)
	}
	for r, m := range out {
		if len(m) < 2 {
			delete(out, r)
		}
	}
	return out
}
