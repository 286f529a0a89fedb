package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	tests := []struct {
		number int
		name   string
		typ    Type
	}{
		{0, "EQ Band 1 Cutoff Frequency", Category},
		{1, "EQ On/Off", Boolean},
		{2, "EQ Output volume", Continuous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := table.Lookup(0, tt.number)
			if !ok {
				t.Fatalf("Lookup(0, %d) not found", tt.number)
			}
			if m.Name != tt.name {
				t.Errorf("Name = %q, want %q", m.Name, tt.name)
			}
			if m.Type != tt.typ {
				t.Errorf("Type = %q, want %q", m.Type, tt.typ)
			}
		})
	}

	if _, ok := table.Lookup(1, 0); ok {
		t.Error("Lookup(1, 0) should not find a mapping")
	}
	if _, ok := table.Lookup(0, 64); ok {
		t.Error("Lookup(0, 64) should not find a mapping")
	}
}

func TestCategoryOptionLookup(t *testing.T) {
	m, _ := Default().Lookup(0, 0)

	tests := []struct {
		raw   uint8
		label string
		found bool
	}{
		{0, "16kHz", true},
		{42, "12kHz", true},
		{84, "8kHz", true},
		{10, "", false},
	}

	for _, tt := range tests {
		o, ok := m.OptionByMIDI(tt.raw)
		if ok != tt.found {
			t.Errorf("OptionByMIDI(%d) found = %v, want %v", tt.raw, ok, tt.found)
			continue
		}
		if o.Label != tt.label {
			t.Errorf("OptionByMIDI(%d) label = %q, want %q", tt.raw, o.Label, tt.label)
		}
		if ok {
			back, ok := m.OptionByValue(o.Value)
			if !ok || back.MIDIValue != tt.raw {
				t.Errorf("OptionByValue(%d) = %+v, want midi value %d", o.Value, back, tt.raw)
			}
		}
	}

	if o, ok := m.OptionByLabel("8kHz"); !ok || o.MIDIValue != 84 {
		t.Errorf("OptionByLabel(8kHz) = %+v, %v", o, ok)
	}
}

func TestNewTableRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		mappings []Mapping
	}{
		{"duplicate key", []Mapping{
			{Number: 5, Name: "a", Type: Boolean},
			{Number: 5, Name: "b", Type: Boolean},
		}},
		{"inverted range", []Mapping{{Number: 1, Name: "r", Type: Continuous, Range: []float64{10, 0}}}},
		{"zero width range", []Mapping{{Number: 1, Name: "r", Type: Continuous, Range: []float64{3, 3}}}},
		{"missing range", []Mapping{{Number: 1, Name: "r", Type: Continuous}}},
		{"no options", []Mapping{{Number: 1, Name: "c", Type: Category}}},
		{"duplicate option midi value", []Mapping{{Number: 1, Name: "c", Type: Category, Options: []Option{
			{Label: "a", Value: 0, MIDIValue: 7},
			{Label: "b", Value: 1, MIDIValue: 7},
		}}}},
		{"duplicate option value", []Mapping{{Number: 1, Name: "c", Type: Category, Options: []Option{
			{Label: "a", Value: 0, MIDIValue: 7},
			{Label: "b", Value: 0, MIDIValue: 8},
		}}}},
		{"option out of range", []Mapping{{Number: 1, Name: "c", Type: Category, Options: []Option{
			{Label: "a", Value: 0, MIDIValue: 200},
		}}}},
		{"controller number out of range", []Mapping{{Number: 128, Name: "b", Type: Boolean}}},
		{"unknown type", []Mapping{{Number: 1, Name: "x", Type: "ternary"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(tt.mappings); err == nil {
				t.Error("NewTable() error = nil, want error")
			}
		})
	}

	_, err := NewTable([]Mapping{
		{Number: 5, Name: "a", Type: Boolean},
		{Number: 5, Name: "b", Type: Boolean},
	})
	if !errors.Is(err, ErrDuplicateMapping) {
		t.Errorf("NewTable() error = %v, want ErrDuplicateMapping", err)
	}
}

func TestNewTableCopiesInput(t *testing.T) {
	in := []Mapping{{Number: 2, Name: "vol", Type: Continuous, Range: []float64{0, 127}}}
	table, err := NewTable(in)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	in[0].Range[1] = 1
	m, _ := table.Lookup(0, 2)
	if m.High() != 127 {
		t.Errorf("High() = %g after mutating input, want 127", m.High())
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	table, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	m, _ := table.Lookup(0, 0)
	if o, ok := m.OptionByMIDI(42); !ok || o.Label != "12kHz" {
		t.Errorf("OptionByMIDI(42) = %+v, %v", o, ok)
	}
	vol, _ := table.Lookup(0, 2)
	if vol.Low() != 0 || vol.High() != 127 {
		t.Errorf("range = [%g, %g], want [0, 127]", vol.Low(), vol.High())
	}
}

func TestParseYAML(t *testing.T) {
	src := `
mappings:
  - instrument: 0
    number: 74
    name: Filter Cutoff
    type: continuous
    range: [-64, 63]
  - instrument: 1
    number: 64
    name: Sustain
    type: boolean
`
	table, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	m, ok := table.Lookup(0, 74)
	if !ok {
		t.Fatal("Lookup(0, 74) not found")
	}
	if !m.Bipolar() {
		t.Error("Bipolar() = false, want true")
	}
	if _, ok := table.Lookup(1, 64); !ok {
		t.Error("Lookup(1, 64) not found")
	}

	if _, err := Parse(strings.NewReader("mappings:\n  - bogus: 1\n")); err == nil {
		t.Error("Parse() with unknown field should fail")
	}
}

func TestValueJSON(t *testing.T) {
	values := []Value{ContinuousValue(0.25), BooleanValue(true), CategoryValue(2)}

	for _, v := range values {
		t.Run(string(v.Type), func(t *testing.T) {
			data, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got Value
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", data, err)
			}
			if got != v {
				t.Errorf("round trip = %+v, want %+v", got, v)
			}
		})
	}

	if got := BooleanValue(true).Number(); got != 1 {
		t.Errorf("BooleanValue(true).Number() = %g, want 1", got)
	}
}
