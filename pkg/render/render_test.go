package render

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/sequence"
)

func testSequence(t *testing.T) *sequence.Sequence {
	t.Helper()
	seq, err := sequence.Segment(nil, 4, 2.0, 120)
	if err != nil {
		t.Fatal(err)
	}
	note := sequence.NoteEvent{Pitch: 60.0 / 127.0, Velocity: 100.0 / 127.0}
	start, end := note, note
	start.Kind, end.Kind = sequence.NoteStart, sequence.NoteEnd

	seq.Ticks[1].Notes = []sequence.NoteEvent{start}
	seq.Ticks[4].Notes = []sequence.NoteEvent{end}
	seq.Ticks[6].Notes = []sequence.NoteEvent{start}
	seq.Ticks[2].ControlChanges = []sequence.ControlChangeEvent{
		{Number: 2, Value: mapping.ContinuousValue(0.5)},
		{Number: 0, Value: mapping.CategoryValue(mapping.EQCutoff8kHz)},
	}
	seq.Ticks[3].PitchBends = []sequence.PitchBendEvent{{Value: -0.5}}
	return seq
}

func TestRender(t *testing.T) {
	img, err := Render(testSequence(t), Options{Width: 320, Height: 200, Labels: true})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("Bounds() = %v, want 320x200", b)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, testSequence(t), DefaultOptions); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("WritePNG() did not produce a PNG")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.png")
	if err := SavePNG(path, testSequence(t), Options{Width: 200, Height: 120}); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
}

func TestRenderRejects(t *testing.T) {
	if _, err := Render(&sequence.Sequence{}, DefaultOptions); err == nil {
		t.Error("Render() of an empty sequence should fail")
	}
	if _, err := Render(testSequence(t), Options{Width: 50, Height: 50}); err == nil {
		t.Error("Render() with a tiny canvas should fail")
	}
	if _, err := Render(testSequence(t), Options{Width: MaxSide + 1, Height: 200}); err == nil {
		t.Error("Render() wider than MaxSide should fail")
	}
}
