package sequence

import (
	"math"
	"sort"
)

// FindIndex returns the position of the tick whose window contains t, or -1.
//
// Inner ticks own [Time, next.Time) and the last tick owns [Time, Time+Duration),
// so every time inside the grid maps to exactly one tick.
func (s *Sequence) FindIndex(t float64) int {
	n := len(s.Ticks)
	if n == 0 || math.IsNaN(t) || t < s.Ticks[0].Time || t >= s.End() {
		return -1
	}
	// first tick starting after t, minus one
	i := sort.Search(n, func(i int) bool { return s.Ticks[i].Time > t })
	return i - 1
}

// Find returns the tick whose window contains t
func (s *Sequence) Find(t float64) (*Tick, bool) {
	i := s.FindIndex(t)
	if i < 0 {
		return nil, false
	}
	return &s.Ticks[i], true
}
