// Package mapping holds the controller mapping table used by both conversion directions
package mapping

import (
	"errors"
	"fmt"
	"sort"
)

// Type is the semantic kind of a controller
type Type string

const (
	Continuous Type = "continuous"
	Boolean    Type = "boolean"
	Category   Type = "category"
)

// Option is one selectable value of a category controller
type Option struct {
	Label     string `yaml:"label" json:"label"`
	Value     int    `yaml:"value" json:"value"`           // normalized value used in tick sequences
	MIDIValue uint8  `yaml:"midi_value" json:"midi_value"` // raw controller value (0-127)
}

// Mapping describes how one (instrument, controller number) pair is normalized
type Mapping struct {
	Instrument int       `yaml:"instrument" json:"instrument"`
	Number     int       `yaml:"number" json:"number"`
	Name       string    `yaml:"name" json:"name"`
	Type       Type      `yaml:"type" json:"type"`
	Range      []float64 `yaml:"range,flow,omitempty" json:"range,omitempty"` // continuous only: [low, high]
	Options    []Option  `yaml:"options,omitempty" json:"options,omitempty"`  // category only

	byMIDI  map[uint8]int
	byValue map[int]int
}

// Low returns the lower bound of a continuous range
func (m *Mapping) Low() float64 {
	if len(m.Range) != 2 {
		return 0
	}
	return m.Range[0]
}

// High returns the upper bound of a continuous range
func (m *Mapping) High() float64 {
	if len(m.Range) != 2 {
		return 127
	}
	return m.Range[1]
}

// Bipolar reports whether the continuous range is zero-centered
func (m *Mapping) Bipolar() bool { return m.Low() < 0 }

// OptionByMIDI finds the category option registered for a raw controller value
func (m *Mapping) OptionByMIDI(raw uint8) (Option, bool) {
	i, ok := m.byMIDI[raw]
	if !ok {
		return Option{}, false
	}
	return m.Options[i], true
}

// OptionByValue finds the category option registered for a normalized value
func (m *Mapping) OptionByValue(value int) (Option, bool) {
	i, ok := m.byValue[value]
	if !ok {
		return Option{}, false
	}
	return m.Options[i], true
}

// OptionByLabel finds a category option by its label
func (m *Mapping) OptionByLabel(label string) (Option, bool) {
	for _, o := range m.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

func (m *Mapping) validate() error {
	if m.Instrument < 0 {
		return fmt.Errorf("mapping %q: negative instrument %d", m.Name, m.Instrument)
	}
	if m.Number < 0 || m.Number > 127 {
		return fmt.Errorf("mapping %q: controller number %d out of range 0-127", m.Name, m.Number)
	}

	switch m.Type {
	case Continuous:
		if len(m.Range) != 2 {
			return fmt.Errorf("mapping %q: continuous range needs exactly two bounds, got %d", m.Name, len(m.Range))
		}
		if m.Range[0] >= m.Range[1] {
			return fmt.Errorf("mapping %q: range [%g, %g] must have low < high", m.Name, m.Range[0], m.Range[1])
		}
	case Boolean:
	case Category:
		if len(m.Options) == 0 {
			return fmt.Errorf("mapping %q: category mapping without options", m.Name)
		}
		m.byMIDI = make(map[uint8]int, len(m.Options))
		m.byValue = make(map[int]int, len(m.Options))
		for i, o := range m.Options {
			if o.MIDIValue > 127 {
				return fmt.Errorf("mapping %q: option %q midi value %d out of range 0-127", m.Name, o.Label, o.MIDIValue)
			}
			if _, dup := m.byMIDI[o.MIDIValue]; dup {
				return fmt.Errorf("mapping %q: duplicate midi value %d", m.Name, o.MIDIValue)
			}
			if _, dup := m.byValue[o.Value]; dup {
				return fmt.Errorf("mapping %q: duplicate option value %d", m.Name, o.Value)
			}
			m.byMIDI[o.MIDIValue] = i
			m.byValue[o.Value] = i
		}
	default:
		return fmt.Errorf("mapping %q: unknown type %q", m.Name, m.Type)
	}
	return nil
}

// Key identifies a mapping in a Table
type Key struct {
	Instrument int
	Number     int
}

// ErrDuplicateMapping is returned when two mappings share an (instrument, number) key
var ErrDuplicateMapping = errors.New("duplicate controller mapping")

// Table is an immutable registry of controller mappings
type Table struct {
	mappings map[Key]*Mapping
}

// NewTable validates the mappings and builds a lookup table.
// The input slice is copied; later changes to it do not affect the table.
func NewTable(mappings []Mapping) (*Table, error) {
	t := &Table{mappings: make(map[Key]*Mapping, len(mappings))}
	for i := range mappings {
		m := mappings[i]
		m.Range = append([]float64(nil), m.Range...)
		m.Options = append([]Option(nil), m.Options...)
		if err := m.validate(); err != nil {
			return nil, err
		}
		key := Key{Instrument: m.Instrument, Number: m.Number}
		if _, dup := t.mappings[key]; dup {
			return nil, fmt.Errorf("%w: instrument %d number %d", ErrDuplicateMapping, m.Instrument, m.Number)
		}
		t.mappings[key] = &m
	}
	return t, nil
}

// Lookup returns the mapping for an (instrument, number) pair
func (t *Table) Lookup(instrument, number int) (*Mapping, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.mappings[Key{Instrument: instrument, Number: number}]
	return m, ok
}

// Len returns the number of mappings
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.mappings)
}

// Mappings returns the mappings ordered by instrument then controller number
func (t *Table) Mappings() []Mapping {
	if t == nil {
		return nil
	}
	out := make([]Mapping, 0, len(t.mappings))
	for _, m := range t.mappings {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].Number < out[j].Number
	})
	return out
}
