package mapping

// EQ Band 1 cutoff options
const (
	EQCutoff16kHz = 0
	EQCutoff12kHz = 1
	EQCutoff8kHz  = 2
)

// DefaultMappings returns the built-in controller mappings for instrument 0
func DefaultMappings() []Mapping {
	return []Mapping{
		{
			Instrument: 0,
			Number:     0,
			Name:       "EQ Band 1 Cutoff Frequency",
			Type:       Category,
			Options: []Option{
				{Label: "16kHz", Value: EQCutoff16kHz, MIDIValue: 0},
				{Label: "12kHz", Value: EQCutoff12kHz, MIDIValue: 42},
				{Label: "8kHz", Value: EQCutoff8kHz, MIDIValue: 84},
			},
		},
		{
			Instrument: 0,
			Number:     1,
			Name:       "EQ On/Off",
			Type:       Boolean,
		},
		{
			Instrument: 0,
			Number:     2,
			Name:       "EQ Output volume",
			Type:       Continuous,
			Range:      []float64{0, 127},
		},
	}
}

// Default builds a Table from DefaultMappings
func Default() *Table {
	t, err := NewTable(DefaultMappings())
	if err != nil {
		panic("mapping: invalid default table: " + err.Error())
	}
	return t
}
