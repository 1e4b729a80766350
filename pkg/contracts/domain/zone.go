package domain

import "sort"

// ZoneLookup is one row of the TLC taxi-zone reference table.
type ZoneLookup struct {
	LocationID int    `json:"location_id" csv:"location_id"`
	Borough    string `json:"borough" csv:"borough"`
	Zone       string `json:"zone" csv:"zone"`
}

// ZoneSet is an unordered set of taxi-zone identifiers. It is built
// once per pipeline run and never mutated afterwards.
type ZoneSet map[int]struct{}

// NewZoneSet builds a set from the given IDs.
func NewZoneSet(ids ...int) ZoneSet {
	s := make(ZoneSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports membership of a zone ID.
func (s ZoneSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in ascending order. Set iteration order is
// random; persisted tables need a stable one.
func (s ZoneSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Intersects reports whether the two sets share any member.
func (s ZoneSet) Intersects(other ZoneSet) bool {
	for id := range s {
		if other.Contains(id) {
			return true
		}
	}
	return false
}
