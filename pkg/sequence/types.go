// Package sequence provides the quantized tick sequence, the tempo segmenter
// that builds its grid, and the index used to place events on it.
package sequence

import "github.com/tickseq/tickseq/pkg/mapping"

// NoteKind distinguishes the two halves of a note
type NoteKind string

const (
	NoteStart NoteKind = "note_start"
	NoteEnd   NoteKind = "note_end"
)

// NoteEvent is one half of a note, normalized to [0,1]
type NoteEvent struct {
	Kind     NoteKind `json:"type"`
	Pitch    float64  `json:"pitch"`
	Velocity float64  `json:"velocity"`
}

// PitchBendEvent carries a bend normalized to [-1,1]
type PitchBendEvent struct {
	Value float64 `json:"value"`
}

// ControlChangeEvent carries a controller value normalized through the mapping table
type ControlChangeEvent struct {
	Instrument int           `json:"instrument"`
	Number     int           `json:"number"`
	Value      mapping.Value `json:"value"`
}

// Tick is one fixed-duration slot of the grid and every event that falls inside it
type Tick struct {
	Index          int                  `json:"tick"`
	Duration       float64              `json:"tick_duration"`
	Time           float64              `json:"time"`
	Notes          []NoteEvent          `json:"note_events"`
	PitchBends     []PitchBendEvent     `json:"pitch_bend_events"`
	ControlChanges []ControlChangeEvent `json:"control_change_events"`
}

// End returns the nominal end of the tick's window
func (t *Tick) End() float64 {
	return t.Time + t.Duration
}

// Empty reports whether the tick holds no events
func (t *Tick) Empty() bool {
	return len(t.Notes) == 0 && len(t.PitchBends) == 0 && len(t.ControlChanges) == 0
}

// Sequence is an ordered run of ticks covering [0, End())
type Sequence struct {
	Resolution int    `json:"resolution"`
	Ticks      []Tick `json:"ticks"`
}

// Len returns the number of ticks
func (s *Sequence) Len() int {
	return len(s.Ticks)
}

// End returns the end of the last tick's window, or 0 for an empty sequence
func (s *Sequence) End() float64 {
	if len(s.Ticks) == 0 {
		return 0
	}
	return s.Ticks[len(s.Ticks)-1].End()
}

// Stats summarizes the events held by a sequence
type Stats struct {
	Ticks          int
	Duration       float64
	NoteStarts     int
	NoteEnds       int
	PitchBends     int
	ControlChanges int
}

// Stats counts events across all ticks
func (s *Sequence) Stats() Stats {
	st := Stats{Ticks: len(s.Ticks), Duration: s.End()}
	for i := range s.Ticks {
		tk := &s.Ticks[i]
		for _, n := range tk.Notes {
			if n.Kind == NoteStart {
				st.NoteStarts++
			} else {
				st.NoteEnds++
			}
		}
		st.PitchBends += len(tk.PitchBends)
		st.ControlChanges += len(tk.ControlChanges)
	}
	return st
}
