package sequence

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/tickseq/tickseq/pkg/mapping"
)

func TestSegmentConstantTempo(t *testing.T) {
	seq, err := Segment([]TempoChange{{Time: 0, BPM: 120}}, 480, 4.0, DefaultBPM)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	wantDuration := 60.0 / (120.0 * 480.0)
	if got := TickDuration(120, 480); got != wantDuration {
		t.Errorf("TickDuration() = %v, want %v", got, wantDuration)
	}
	if math.Abs(wantDuration-0.0010417) > 1e-7 {
		t.Errorf("tick duration = %v, want ~0.0010417", wantDuration)
	}

	want := int(math.Floor(4.0 / wantDuration))
	if want != 3840 {
		t.Fatalf("floor(4/tick) = %d, want 3840", want)
	}
	if seq.Len() != want {
		t.Errorf("Len() = %d, want %d", seq.Len(), want)
	}
	if seq.Resolution != 480 {
		t.Errorf("Resolution = %d, want 480", seq.Resolution)
	}
	if err := seq.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSegmentEmptyTimelineUsesDefault(t *testing.T) {
	seq, err := Segment(nil, 10, 1.0, 60)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	// 60 bpm at 10 tpqn: 0.1s ticks
	if seq.Len() != int(math.Floor(1.0/TickDuration(60, 10))) {
		t.Errorf("Len() = %d, want %d", seq.Len(), int(math.Floor(1.0/TickDuration(60, 10))))
	}
}

func TestSegmentDropsTrailingRemainder(t *testing.T) {
	// 0.25s ticks over 1.1s: 4 ticks, 0.1s dropped
	seq, err := Segment([]TempoChange{{Time: 0, BPM: 60}}, 4, 1.1, DefaultBPM)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if seq.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", seq.Len())
	}
	if seq.End() != 1.0 {
		t.Errorf("End() = %v, want 1.0", seq.End())
	}
}

func TestSegmentVariableTempo(t *testing.T) {
	tempos := []TempoChange{
		{Time: 0, BPM: 60},  // 0.25s ticks
		{Time: 1, BPM: 120}, // 0.125s ticks
	}
	seq, err := Segment(tempos, 4, 2.0, DefaultBPM)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if seq.Len() != 12 {
		t.Fatalf("Len() = %d, want 12", seq.Len())
	}
	for i, tk := range seq.Ticks {
		if tk.Index != i {
			t.Errorf("Ticks[%d].Index = %d", i, tk.Index)
		}
		want := 0.25
		if i >= 4 {
			want = 0.125
		}
		if tk.Duration != want {
			t.Errorf("Ticks[%d].Duration = %v, want %v", i, tk.Duration, want)
		}
	}
	if seq.Ticks[4].Time != 1.0 {
		t.Errorf("Ticks[4].Time = %v, want 1.0", seq.Ticks[4].Time)
	}
	if err := seq.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSegmentUnalignedTempoBoundary(t *testing.T) {
	// 1.1s is not a multiple of 0.25s: the first segment stops at 1.0 and
	// the faster grid continues from there, so the grid stays gapless
	tempos := []TempoChange{
		{Time: 0, BPM: 60},
		{Time: 1.1, BPM: 120},
	}
	seq, err := Segment(tempos, 4, 3.0, DefaultBPM)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if seq.Len() != 20 {
		t.Fatalf("Len() = %d, want 20 (4 slow + 16 fast)", seq.Len())
	}
	if got := seq.Ticks[3]; got.Duration != 0.25 || got.Time != 0.75 {
		t.Errorf("Ticks[3] = %+v, want 0.25s tick at 0.75", got)
	}
	if got := seq.Ticks[4]; got.Duration != 0.125 || got.Time != 1.0 {
		t.Errorf("Ticks[4] = %+v, want 0.125s tick at 1.0", got)
	}
	if got := seq.End(); got != 3.0 {
		t.Errorf("End() = %v, want 3.0", got)
	}
	if err := seq.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSegmentRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		tempos []TempoChange
		res    int
		total  float64
		want   error
	}{
		{"zero bpm", []TempoChange{{Time: 0, BPM: 0}}, 480, 1, ErrInvalidTempo},
		{"negative bpm", []TempoChange{{Time: 0, BPM: -90}}, 480, 1, ErrInvalidTempo},
		{"unordered tempos", []TempoChange{{Time: 2, BPM: 90}, {Time: 1, BPM: 90}}, 480, 3, ErrInvalidTempo},
		{"zero resolution", nil, 0, 1, ErrInvalidResolution},
		{"negative duration", nil, 480, -1, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Segment(tt.tempos, tt.res, tt.total, DefaultBPM)
			if !errors.Is(err, tt.want) {
				t.Errorf("Segment() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Segment(nil, 480, 1, 0); !errors.Is(err, ErrInvalidTempo) {
		t.Errorf("Segment() with zero default bpm error = %v, want ErrInvalidTempo", err)
	}
}

func TestFind(t *testing.T) {
	seq, _ := Segment([]TempoChange{{Time: 0, BPM: 60}}, 4, 1.1, DefaultBPM)

	tests := []struct {
		time float64
		want int
	}{
		{-0.01, -1},
		{0, 0},
		{0.1, 0},
		{0.25, 1},
		{0.49, 1},
		{0.75, 3},
		{0.99, 3},
		{1.0, -1},  // end of last window
		{1.05, -1}, // dropped remainder
		{math.NaN(), -1},
	}

	for _, tt := range tests {
		if got := seq.FindIndex(tt.time); got != tt.want {
			t.Errorf("FindIndex(%v) = %d, want %d", tt.time, got, tt.want)
		}
	}

	tk, ok := seq.Find(0.3)
	if !ok || tk.Index != 1 {
		t.Errorf("Find(0.3) = %+v, %v, want tick 1", tk, ok)
	}

	empty := &Sequence{}
	if _, ok := empty.Find(0); ok {
		t.Error("Find() on empty sequence should not find a tick")
	}
}

func TestFindMonotonic(t *testing.T) {
	seq, _ := Segment([]TempoChange{{Time: 0, BPM: 97}, {Time: 1.3, BPM: 143}}, 96, 5.0, DefaultBPM)

	last := -1
	for q := 0.0; q < seq.End(); q += 0.0007 {
		i := seq.FindIndex(q)
		if i < 0 {
			t.Fatalf("FindIndex(%v) = -1 inside grid", q)
		}
		if i < last {
			t.Fatalf("FindIndex(%v) = %d after %d", q, i, last)
		}
		tk := &seq.Ticks[i]
		if q < tk.Time {
			t.Fatalf("FindIndex(%v) returned tick starting at %v", q, tk.Time)
		}
		last = i
	}
}

func TestCodecRoundTrip(t *testing.T) {
	seq, _ := Segment(nil, 4, 1.0, 60)
	seq.Ticks[0].Notes = append(seq.Ticks[0].Notes, NoteEvent{Kind: NoteStart, Pitch: 0.5, Velocity: 0.8})
	seq.Ticks[1].PitchBends = append(seq.Ticks[1].PitchBends, PitchBendEvent{Value: -0.5})
	seq.Ticks[2].ControlChanges = append(seq.Ticks[2].ControlChanges,
		ControlChangeEvent{Number: 0, Value: mapping.CategoryValue(1)},
		ControlChangeEvent{Number: 1, Value: mapping.BooleanValue(true)},
	)

	var buf bytes.Buffer
	if err := Write(&buf, seq); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Len() != seq.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), seq.Len())
	}
	if got.Ticks[0].Notes[0] != seq.Ticks[0].Notes[0] {
		t.Errorf("note = %+v, want %+v", got.Ticks[0].Notes[0], seq.Ticks[0].Notes[0])
	}
	if got.Ticks[2].ControlChanges[1].Value != mapping.BooleanValue(true) {
		t.Errorf("control change = %+v", got.Ticks[2].ControlChanges[1])
	}

	st := got.Stats()
	if st.NoteStarts != 1 || st.PitchBends != 1 || st.ControlChanges != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestValidateRejectsGaps(t *testing.T) {
	seq := &Sequence{Resolution: 4, Ticks: []Tick{
		{Index: 0, Duration: 0.25, Time: 0},
		{Index: 1, Duration: 0.25, Time: 0.5},
	}}
	if err := seq.Validate(); !errors.Is(err, ErrInvalidSequence) {
		t.Errorf("Validate() error = %v, want ErrInvalidSequence", err)
	}
}
