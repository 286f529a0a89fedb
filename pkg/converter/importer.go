package converter

import (
	"errors"

	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/normalize"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// Importer turns performances into tick sequences
type Importer struct {
	table         *mapping.Table
	defaultBPM    float64
	perInstrument bool
	quantize      bool
}

// ImportOption configures an Importer
type ImportOption func(*Importer)

// WithDefaultBPM sets the tempo assumed when a file has no tempo events
func WithDefaultBPM(bpm float64) ImportOption {
	return func(im *Importer) { im.defaultBPM = bpm }
}

// WithPerInstrumentMappings looks controllers up under each instrument's position
// instead of collapsing every instrument onto instrument 0
func WithPerInstrumentMappings() ImportOption {
	return func(im *Importer) { im.perInstrument = true }
}

// WithQuantize runs the SMF quantizer over the raw file before it is parsed
func WithQuantize() ImportOption {
	return func(im *Importer) { im.quantize = true }
}

// NewImporter creates an Importer reading controller semantics from table
func NewImporter(table *mapping.Table, opts ...ImportOption) *Importer {
	im := &Importer{table: table, defaultBPM: sequence.DefaultBPM}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportMIDI parses SMF data and imports it
func (im *Importer) ImportMIDI(data []byte) (*sequence.Sequence, *Diagnostics, error) {
	if im.quantize {
		q, err := QuantizeMIDI(data)
		if err != nil {
			return nil, nil, err
		}
		data = q
	}
	perf, err := DecodeMIDI(data)
	if err != nil {
		return nil, nil, err
	}
	return im.Import(perf)
}

// Import quantizes a performance onto a tick grid built from its tempo map.
// Events that cannot be placed are skipped and recorded in the diagnostics.
func (im *Importer) Import(p *Performance) (*sequence.Sequence, *Diagnostics, error) {
	seq, err := sequence.Segment(p.Tempos, p.Resolution, p.EndTime(), im.defaultBPM)
	if err != nil {
		return nil, nil, err
	}

	diag := NewDiagnostics()
	for i := range p.Instruments {
		logical := 0
		if im.perInstrument {
			logical = i
		}
		in := &p.Instruments[i]
		im.importNotes(seq, diag, in.Notes)
		im.importPitchBends(seq, diag, in.PitchBends)
		im.importControlChanges(seq, diag, logical, in.ControlChanges)
	}
	return seq, diag, nil
}

func (im *Importer) importNotes(seq *sequence.Sequence, diag *Diagnostics, notes []Note) {
	for _, n := range notes {
		pitch, velocity := normalize.Note(n.Pitch), normalize.Note(n.Velocity)
		place(seq, diag, n.Start, func(tk *sequence.Tick) {
			tk.Notes = append(tk.Notes, sequence.NoteEvent{Kind: sequence.NoteStart, Pitch: pitch, Velocity: velocity})
		})
		place(seq, diag, n.End, func(tk *sequence.Tick) {
			tk.Notes = append(tk.Notes, sequence.NoteEvent{Kind: sequence.NoteEnd, Pitch: pitch, Velocity: velocity})
		})
	}
}

func (im *Importer) importPitchBends(seq *sequence.Sequence, diag *Diagnostics, bends []PitchBend) {
	for _, b := range bends {
		value := normalize.PitchBend(b.Value)
		place(seq, diag, b.Time, func(tk *sequence.Tick) {
			tk.PitchBends = append(tk.PitchBends, sequence.PitchBendEvent{Value: value})
		})
	}
}

func (im *Importer) importControlChanges(seq *sequence.Sequence, diag *Diagnostics, instrument int, changes []ControlChange) {
	for _, cc := range changes {
		m, ok := im.table.Lookup(instrument, int(cc.Number))
		if !ok {
			diag.Add(UnmappedController, cc.Time, "instrument %d cc %d", instrument, cc.Number)
			continue
		}

		res, err := normalize.ControlChange(m, cc.Value)
		if err != nil {
			if errors.Is(err, normalize.ErrUnknownOption) {
				diag.Add(UnknownCategoryValue, cc.Time, "%v", err)
			} else {
				diag.Add(TypeMismatch, cc.Time, "%v", err)
			}
			continue
		}
		if res.Clamped {
			diag.Add(ValueClamped, cc.Time, "%q raw %d clamped to %g", m.Name, cc.Value, res.Value.Float)
		}

		event := sequence.ControlChangeEvent{Instrument: instrument, Number: int(cc.Number), Value: res.Value}
		place(seq, diag, cc.Time, func(tk *sequence.Tick) {
			tk.ControlChanges = append(tk.ControlChanges, event)
		})
	}
}

// place hands the tick containing t to add, or records the event as off the grid
func place(seq *sequence.Sequence, diag *Diagnostics, t float64, add func(*sequence.Tick)) {
	tk, ok := seq.Find(t)
	if !ok {
		diag.Add(TickOutOfGrid, t, "event at %.6fs outside grid [0, %.6fs)", t, seq.End())
		return
	}
	add(tk)
}
