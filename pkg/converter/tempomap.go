package converter

import (
	"math"
	"sort"

	"github.com/tickseq/tickseq/pkg/sequence"
)

// tempoPoint is a tempo change located both in SMF ticks and in seconds
type tempoPoint struct {
	tick    int64
	seconds float64
	bpm     float64
}

// tempoMap converts between absolute SMF ticks and seconds
type tempoMap struct {
	resolution float64
	points     []tempoPoint
}

// newTempoMap builds a map from tick-positioned tempo changes. A change at
// tick 0 at defaultBPM is assumed when the file starts without one.
func newTempoMap(resolution int, changes []tempoPoint, defaultBPM float64) *tempoMap {
	valid := changes[:0:0]
	for _, c := range changes {
		if c.bpm > 0 && !math.IsInf(c.bpm, 0) {
			valid = append(valid, c)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].tick < valid[j].tick })
	if len(valid) == 0 || valid[0].tick > 0 {
		valid = append([]tempoPoint{{tick: 0, bpm: defaultBPM}}, valid...)
	}

	tm := &tempoMap{resolution: float64(resolution)}
	for _, c := range valid {
		if n := len(tm.points); n > 0 {
			last := tm.points[n-1]
			if last.tick == c.tick {
				// later change at the same tick wins
				tm.points[n-1].bpm = c.bpm
				continue
			}
			c.seconds = last.seconds + float64(c.tick-last.tick)*60.0/(last.bpm*tm.resolution)
		}
		tm.points = append(tm.points, c)
	}
	return tm
}

// newTempoMapSeconds builds a map from second-positioned tempo changes
func newTempoMapSeconds(resolution int, changes []sequence.TempoChange, defaultBPM float64) *tempoMap {
	tm := &tempoMap{resolution: float64(resolution)}
	if len(changes) == 0 || changes[0].Time > 0 {
		changes = append([]sequence.TempoChange{{Time: 0, BPM: defaultBPM}}, changes...)
	}
	for _, c := range changes {
		if n := len(tm.points); n > 0 {
			last := tm.points[n-1]
			tick := last.tick + int64(math.Round((c.Time-last.seconds)*last.bpm*tm.resolution/60.0))
			if tick == last.tick {
				tm.points[n-1].bpm = c.BPM
				continue
			}
			tm.points = append(tm.points, tempoPoint{tick: tick, seconds: c.Time, bpm: c.BPM})
			continue
		}
		tm.points = append(tm.points, tempoPoint{tick: 0, seconds: 0, bpm: c.BPM})
	}
	return tm
}

// seconds converts an absolute tick to seconds
func (tm *tempoMap) seconds(tick int64) float64 {
	i := sort.Search(len(tm.points), func(i int) bool { return tm.points[i].tick > tick }) - 1
	if i < 0 {
		i = 0
	}
	p := tm.points[i]
	return p.seconds + float64(tick-p.tick)*60.0/(p.bpm*tm.resolution)
}

// ticks converts seconds to the nearest absolute tick
func (tm *tempoMap) ticks(seconds float64) int64 {
	i := sort.Search(len(tm.points), func(i int) bool { return tm.points[i].seconds > seconds }) - 1
	if i < 0 {
		i = 0
	}
	p := tm.points[i]
	return p.tick + int64(math.Round((seconds-p.seconds)*p.bpm*tm.resolution/60.0))
}

// changes returns the tempo changes in seconds
func (tm *tempoMap) changes() []sequence.TempoChange {
	out := make([]sequence.TempoChange, len(tm.points))
	for i, p := range tm.points {
		out[i] = sequence.TempoChange{Time: p.seconds, BPM: p.bpm}
	}
	return out
}
