package sequence

import (
	"errors"
	"fmt"
	"math"
)

// DefaultBPM is used when a file carries no tempo events
const DefaultBPM = 120.0

var (
	ErrInvalidTempo      = errors.New("invalid tempo")
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrInvalidDuration   = errors.New("invalid duration")
)

// TempoChange sets the tempo from Time (seconds) onward
type TempoChange struct {
	Time float64 `json:"time"`
	BPM  float64 `json:"bpm"`
}

// TickDuration returns the length in seconds of one tick at bpm and resolution
func TickDuration(bpm float64, resolution int) float64 {
	return 60.0 / (bpm * float64(resolution))
}

// Segment builds the tick grid for [0, total).
//
// Each tempo change opens a segment that runs until the next change, the last
// one until total. A segment of constant tempo contributes floor(length/tick)
// ticks and starts where the previous segment's ticks ended, so the grid has
// no holes; only the sub-tick remainder before total is dropped. An empty
// tempo list is one segment at defaultBPM.
func Segment(tempos []TempoChange, resolution int, total, defaultBPM float64) (*Sequence, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: %d ticks per quarter note", ErrInvalidResolution, resolution)
	}
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidDuration, total)
	}

	if len(tempos) == 0 {
		tempos = []TempoChange{{Time: 0, BPM: defaultBPM}}
	}
	for i, tc := range tempos {
		if !(tc.BPM > 0) || math.IsInf(tc.BPM, 0) {
			return nil, fmt.Errorf("%w: %g bpm at %gs", ErrInvalidTempo, tc.BPM, tc.Time)
		}
		if i > 0 && tc.Time < tempos[i-1].Time {
			return nil, fmt.Errorf("%w: tempo change at %gs precedes %gs", ErrInvalidTempo, tc.Time, tempos[i-1].Time)
		}
	}

	seq := &Sequence{Resolution: resolution}
	start := 0.0
	for i, tc := range tempos {
		end := total
		if i+1 < len(tempos) {
			end = math.Min(tempos[i+1].Time, total)
		}
		if end <= start {
			continue
		}

		d := TickDuration(tc.BPM, resolution)
		n := int(math.Floor((end - start) / d))
		for k := 0; k < n; k++ {
			seq.Ticks = append(seq.Ticks, Tick{
				Index:    len(seq.Ticks),
				Duration: d,
				Time:     start + float64(k)*d,
			})
		}
		start += float64(n) * d
	}
	return seq, nil
}
