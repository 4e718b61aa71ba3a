package unionfind

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroups(t *testing.T) {
	s := New()
	s.Union(1, 2)
	s.Union(3, 4)
	s.Union(2, 4)
	s.Find(9)

	assert.Equal(t, s.Find(1), s.Find(3))
	assert.NotEqual(t, s.Find(1), s.Find(9))

	groups := s.Groups()
	assert.Len(t, groups, 1)
	for _, m := range groups {
		slices.Sort(m)
		assert.Equal(t, []int{1, 2, 3, 4}, m)
	}
}
