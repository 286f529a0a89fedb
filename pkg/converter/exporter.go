package converter

import (
	"errors"
	"fmt"

	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/normalize"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// DefaultExportResolution is used when neither the sequence nor the exporter names one
const DefaultExportResolution = 220

// ErrEmptySequence is returned when exporting a sequence without ticks
var ErrEmptySequence = errors.New("empty tick sequence")

// Exporter turns tick sequences back into performances
type Exporter struct {
	table      *mapping.Table
	resolution int
	program    uint8
	name       string
}

// ExportOption configures an Exporter
type ExportOption func(*Exporter)

// WithResolution overrides the ticks per quarter note of the written file
func WithResolution(resolution int) ExportOption {
	return func(ex *Exporter) { ex.resolution = resolution }
}

// WithProgram sets the General MIDI program of the exported instrument
func WithProgram(program uint8) ExportOption {
	return func(ex *Exporter) { ex.program = program & 0x7F }
}

// WithTrackName sets the name of the exported instrument track
func WithTrackName(name string) ExportOption {
	return func(ex *Exporter) { ex.name = name }
}

// NewExporter creates an Exporter reading controller semantics from table
func NewExporter(table *mapping.Table, opts ...ExportOption) *Exporter {
	ex := &Exporter{table: table, program: DefaultProgram, name: "tickseq"}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

// ExportMIDI exports a sequence and encodes it as SMF data
func (ex *Exporter) ExportMIDI(seq *sequence.Sequence) ([]byte, *Diagnostics, error) {
	perf, diag, err := ex.Export(seq)
	if err != nil {
		return nil, nil, err
	}
	data, err := EncodeMIDI(perf)
	if err != nil {
		return nil, diag, err
	}
	return data, diag, nil
}

// Export replays the ticks in order and rebuilds notes, bends and controller changes.
//
// The tempo is derived once from the first tick and applied to the whole file;
// tempo variation in the sequence is not reproduced.
func (ex *Exporter) Export(seq *sequence.Sequence) (*Performance, *Diagnostics, error) {
	if seq == nil || len(seq.Ticks) == 0 {
		return nil, nil, ErrEmptySequence
	}

	resolution := ex.resolution
	if resolution <= 0 {
		resolution = seq.Resolution
	}
	if resolution <= 0 {
		resolution = DefaultExportResolution
	}
	first := seq.Ticks[0].Duration
	if !(first > 0) {
		return nil, nil, fmt.Errorf("%w: first tick duration %g", sequence.ErrInvalidTempo, first)
	}
	bpm := 60.0 / (first * float64(resolution))

	diag := NewDiagnostics()
	matcher := NewNoteMatcher()
	in := Instrument{Name: ex.name, Program: ex.program}

	for i := range seq.Ticks {
		tk := &seq.Ticks[i]
		for _, ev := range tk.Notes {
			switch ev.Kind {
			case sequence.NoteStart:
				matcher.Start(ev, tk.Time)
			case sequence.NoteEnd:
				n, ok := matcher.End(ev, tk.Time)
				if !ok {
					diag.Add(OrphanNoteEnd, tk.Time, "pitch %.4f velocity %.4f at tick %d", ev.Pitch, ev.Velocity, tk.Index)
					continue
				}
				if n.End <= n.Start {
					// held for one tick so the note survives encoding
					diag.Add(ZeroLengthNote, tk.Time, "pitch %d started and ended at tick %d", n.Pitch, tk.Index)
					n.End = n.Start + tk.Duration
				}
				in.Notes = append(in.Notes, n)
			default:
				diag.Add(UnknownNoteKind, tk.Time, "note event type %q at tick %d", ev.Kind, tk.Index)
			}
		}

		for _, b := range tk.PitchBends {
			in.PitchBends = append(in.PitchBends, PitchBend{Value: normalize.DenormalizePitchBend(b.Value), Time: tk.Time})
		}

		for _, cc := range tk.ControlChanges {
			if raw, ok := ex.controlChange(diag, tk, cc); ok {
				in.ControlChanges = append(in.ControlChanges, ControlChange{Number: uint8(cc.Number), Value: raw, Time: tk.Time})
			}
		}
	}

	for _, n := range matcher.Finish() {
		diag.Add(OrphanNoteStart, n.Start, "pitch %.4f velocity %.4f never ended", n.Pitch, n.Velocity)
	}

	perf := &Performance{
		Resolution:  resolution,
		Tempos:      []sequence.TempoChange{{Time: 0, BPM: bpm}},
		Instruments: []Instrument{in},
	}
	return perf, diag, nil
}

func (ex *Exporter) controlChange(diag *Diagnostics, tk *sequence.Tick, cc sequence.ControlChangeEvent) (uint8, bool) {
	m, ok := ex.table.Lookup(cc.Instrument, cc.Number)
	if !ok || cc.Number < 0 || cc.Number > 127 {
		diag.Add(UnmappedController, tk.Time, "instrument %d cc %d", cc.Instrument, cc.Number)
		return 0, false
	}

	raw, err := normalize.DenormalizeControlChange(m, cc.Value)
	if err != nil {
		var notFound *normalize.CategoryOptionNotFoundError
		if errors.As(err, &notFound) {
			diag.Add(CategoryOptionAbsent, tk.Time, "%v", err)
		} else {
			diag.Add(TypeMismatch, tk.Time, "%v", err)
		}
		return 0, false
	}
	return raw, true
}
