package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneSet(t *testing.T) {
	s := NewZoneSet(4, 12, 88)

	assert.True(t, s.Contains(12))
	assert.False(t, s.Contains(99))
	assert.Equal(t, []int{4, 12, 88}, s.IDs())
}

func TestZoneSetIntersects(t *testing.T) {
	a := NewZoneSet(1, 2, 3)
	b := NewZoneSet(3, 4)
	c := NewZoneSet(5, 6)

	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(c))
	assert.False(t, NewZoneSet().Intersects(a))
}
