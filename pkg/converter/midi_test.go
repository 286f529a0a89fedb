package converter

import (
	"bytes"
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// writeSMF builds a single-track file at 4 ticks per quarter note with no tempo event
func writeSMF(t *testing.T, build func(tr *smf.Track)) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(4)
	var tr smf.Track
	build(&tr)
	if err := s.Add(tr); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return buf.Bytes()
}

func TestExportNoteWithinOneTick(t *testing.T) {
	seq, err := sequence.Segment(nil, 4, 2.0, 60)
	if err != nil {
		t.Fatal(err)
	}
	seq.Ticks[1].Notes = []sequence.NoteEvent{
		{Kind: sequence.NoteStart, Pitch: 0.5, Velocity: 0.8},
		{Kind: sequence.NoteEnd, Pitch: 0.5, Velocity: 0.8},
	}

	data, diag, err := NewExporter(mapping.Default()).ExportMIDI(seq)
	if err != nil {
		t.Fatalf("ExportMIDI() error = %v", err)
	}
	if diag.Count(ZeroLengthNote) != 1 {
		t.Errorf("ZeroLengthNote = %d, want 1 (%s)", diag.Count(ZeroLengthNote), diag.Summary())
	}

	perf, err := DecodeMIDI(data)
	if err != nil {
		t.Fatalf("DecodeMIDI() error = %v", err)
	}
	if perf.NoteCount() != 1 {
		t.Fatalf("NoteCount() = %d, want 1", perf.NoteCount())
	}
	n := perf.Instruments[0].Notes[0]
	if math.Abs(n.Start-0.25) > timeTolerance || math.Abs(n.End-0.5) > timeTolerance {
		t.Errorf("note = [%v, %v), want [0.25, 0.5)", n.Start, n.End)
	}
}

func TestEncodeNoteWithinOneFileTick(t *testing.T) {
	// both ends round to file tick 480 at 120 bpm, 480 tpqn
	data, err := EncodeMIDI(&Performance{
		Resolution: 480,
		Tempos:     []sequence.TempoChange{{Time: 0, BPM: 120}},
		Instruments: []Instrument{{
			Notes: []Note{
				{Pitch: 38, Velocity: 110, Start: 0.5001, End: 0.5004},
				{Pitch: 38, Velocity: 90, Start: 0.75, End: 1.0},
			},
		}},
	})
	if err != nil {
		t.Fatalf("EncodeMIDI() error = %v", err)
	}

	perf, err := DecodeMIDI(data)
	if err != nil {
		t.Fatalf("DecodeMIDI() error = %v", err)
	}
	if perf.NoteCount() != 2 {
		t.Fatalf("NoteCount() = %d, want 2", perf.NoteCount())
	}
	n := perf.Instruments[0].Notes[0]
	if n.Velocity != 110 || !(n.End > n.Start) {
		t.Errorf("first note = %+v, want velocity 110 and a positive length", n)
	}
}

func TestImportTempoLessFileUsesDefaultBPM(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(8, midi.NoteOff(0, 60))
		tr.Close(0)
	})

	perf, err := DecodeMIDI(data)
	if err != nil {
		t.Fatalf("DecodeMIDI() error = %v", err)
	}
	if len(perf.Tempos) != 0 {
		t.Errorf("Tempos = %+v, want none", perf.Tempos)
	}
	// file ticks still run at 120 bpm
	if got := perf.EndTime(); math.Abs(got-1.0) > timeTolerance {
		t.Errorf("EndTime() = %v, want 1.0", got)
	}

	seq, _, err := NewImporter(mapping.Default(), WithDefaultBPM(60)).ImportMIDI(data)
	if err != nil {
		t.Fatalf("ImportMIDI() error = %v", err)
	}
	if seq.Len() != 4 {
		t.Errorf("Len() = %d, want 4", seq.Len())
	}
	if got := seq.Ticks[0].Duration; got != 0.25 {
		t.Errorf("tick duration = %v, want 0.25", got)
	}
}

func TestDecodeClosesNotesAtTrackEnd(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(2, midi.NoteOn(0, 64, 90))
		tr.Add(2, midi.NoteOff(0, 60))
		tr.Close(4)
	})

	perf, err := DecodeMIDI(data)
	if err != nil {
		t.Fatalf("DecodeMIDI() error = %v", err)
	}
	if perf.NoteCount() != 2 {
		t.Fatalf("NoteCount() = %d, want 2", perf.NoteCount())
	}
	held := perf.Instruments[0].Notes[1]
	if held.Pitch != 64 || math.Abs(held.Start-0.25) > timeTolerance || math.Abs(held.End-1.0) > timeTolerance {
		t.Errorf("held note = %+v, want pitch 64 over [0.25, 1.0)", held)
	}
}

func TestExportCountsUnknownNoteKind(t *testing.T) {
	seq, err := sequence.Segment(nil, 4, 1.0, 60)
	if err != nil {
		t.Fatal(err)
	}
	seq.Ticks[0].Notes = []sequence.NoteEvent{
		{Kind: sequence.NoteStart, Pitch: 0.5, Velocity: 0.5},
		{Kind: "note_hold", Pitch: 0.5, Velocity: 0.5},
	}
	seq.Ticks[2].Notes = []sequence.NoteEvent{{Kind: sequence.NoteEnd, Pitch: 0.5, Velocity: 0.5}}

	perf, diag, err := NewExporter(mapping.Default()).Export(seq)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if diag.Count(UnknownNoteKind) != 1 {
		t.Errorf("UnknownNoteKind = %d, want 1", diag.Count(UnknownNoteKind))
	}
	if perf.NoteCount() != 1 {
		t.Errorf("NoteCount() = %d, want 1", perf.NoteCount())
	}
}
