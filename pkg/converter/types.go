// Package converter provides conversion between MIDI files and quantized tick sequences
package converter

import (
	"math"

	"github.com/tickseq/tickseq/pkg/sequence"
)

// Note is a sounding note with absolute start and end times in seconds
type Note struct {
	Pitch    uint8   // MIDI note number (0-127)
	Velocity uint8   // Velocity (0-127)
	Start    float64 // seconds
	End      float64 // seconds
}

// PitchBend is a bend value in [-8192, 8191] at a time in seconds
type PitchBend struct {
	Value int16
	Time  float64
}

// ControlChange is a controller value at a time in seconds
type ControlChange struct {
	Number uint8
	Value  uint8
	Time   float64
}

// Instrument holds the events of one track/channel pair
type Instrument struct {
	Name           string
	Program        uint8
	Channel        uint8
	Notes          []Note
	PitchBends     []PitchBend
	ControlChanges []ControlChange
}

// Performance is the event-based form of a MIDI file
type Performance struct {
	Resolution  int // ticks per quarter note
	Tempos      []sequence.TempoChange
	Instruments []Instrument
}

// EndTime returns the time of the latest event in the performance
func (p *Performance) EndTime() float64 {
	end := 0.0
	for _, tc := range p.Tempos {
		end = math.Max(end, tc.Time)
	}
	for i := range p.Instruments {
		in := &p.Instruments[i]
		for _, n := range in.Notes {
			end = math.Max(end, n.End)
		}
		for _, b := range in.PitchBends {
			end = math.Max(end, b.Time)
		}
		for _, cc := range in.ControlChanges {
			end = math.Max(end, cc.Time)
		}
	}
	return end
}

// NoteCount returns the number of notes across all instruments
func (p *Performance) NoteCount() int {
	n := 0
	for i := range p.Instruments {
		n += len(p.Instruments[i].Notes)
	}
	return n
}
