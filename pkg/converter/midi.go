package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"gitlab.com/gomidi/quantizer/lib/quantizer"

	"github.com/tickseq/tickseq/pkg/sequence"
)

// ErrMalformedInput wraps any failure to read a MIDI file
var ErrMalformedInput = errors.New("malformed MIDI input")

// DefaultProgram is the General MIDI program written on export (Drawbar Organ)
const DefaultProgram uint8 = 16

// ReadMIDIFile reads a MIDI file from disk into a Performance
func ReadMIDIFile(filename string) (*Performance, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return DecodeMIDI(data)
}

// DecodeMIDI parses SMF data into a Performance with times in seconds
func DecodeMIDI(data []byte) (*Performance, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported time format %v", ErrMalformedInput, s.TimeFormat)
	}
	resolution := int(mt.Resolution())
	if resolution == 0 {
		return nil, fmt.Errorf("%w: zero resolution", ErrMalformedInput)
	}

	// Tempo events may live on any track in format 1 files
	var changes []tempoPoint
	for _, track := range s.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				changes = append(changes, tempoPoint{tick: abs, bpm: bpm})
			}
		}
	}
	tm := newTempoMap(resolution, changes, sequence.DefaultBPM)

	// Tempos stay empty for a file without tempo events so the importer's default applies to the grid
	perf := &Performance{Resolution: resolution}
	if len(changes) > 0 {
		perf.Tempos = tm.changes()
	}
	for _, track := range s.Tracks {
		perf.Instruments = append(perf.Instruments, decodeTrack(track, tm)...)
	}
	return perf, nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

type openNote struct {
	velocity uint8
	start    float64
}

// decodeTrack splits one track into an instrument per channel used
func decodeTrack(track smf.Track, tm *tempoMap) []Instrument {
	var (
		name     string
		abs      int64
		order    []uint8
		channels = map[uint8]*Instrument{}
		open     = map[noteKey][]openNote{}
	)

	get := func(ch uint8) *Instrument {
		in, ok := channels[ch]
		if !ok {
			in = &Instrument{Channel: ch}
			channels[ch] = in
			order = append(order, ch)
		}
		return in
	}

	for _, ev := range track {
		abs += int64(ev.Delta)
		t := tm.seconds(abs)

		var text string
		if ev.Message.GetMetaTrackName(&text) {
			name = text
			continue
		}

		msg := midi.Message(ev.Message)
		var ch, key, vel, prog, cc, val uint8
		var rel int16
		var absBend uint16

		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			k := noteKey{ch, key}
			open[k] = append(open[k], openNote{velocity: vel, start: t})
			get(ch)
		case msg.GetNoteEnd(&ch, &key):
			k := noteKey{ch, key}
			pending := open[k]
			if len(pending) == 0 {
				continue
			}
			n := pending[0]
			open[k] = pending[1:]
			in := get(ch)
			in.Notes = append(in.Notes, Note{Pitch: key, Velocity: n.velocity, Start: n.start, End: t})
		case msg.GetPitchBend(&ch, &rel, &absBend):
			in := get(ch)
			in.PitchBends = append(in.PitchBends, PitchBend{Value: rel, Time: t})
		case msg.GetControlChange(&ch, &cc, &val):
			in := get(ch)
			in.ControlChanges = append(in.ControlChanges, ControlChange{Number: cc, Value: val, Time: t})
		case msg.GetProgramChange(&ch, &prog):
			get(ch).Program = prog
		}
	}

	// notes never switched off end with the track
	end := tm.seconds(abs)
	for _, ch := range order {
		in := channels[ch]
		for key := 0; key < 128; key++ {
			for _, n := range open[noteKey{ch, uint8(key)}] {
				in.Notes = append(in.Notes, Note{Pitch: uint8(key), Velocity: n.velocity, Start: n.start, End: end})
			}
		}
	}

	out := make([]Instrument, 0, len(order))
	for _, ch := range order {
		in := channels[ch]
		if len(in.Notes) == 0 && len(in.PitchBends) == 0 && len(in.ControlChanges) == 0 {
			continue
		}
		in.Name = name
		sort.SliceStable(in.Notes, func(i, j int) bool { return in.Notes[i].Start < in.Notes[j].Start })
		out = append(out, *in)
	}
	return out
}

type timedMessage struct {
	tick  int64
	order int // note-offs sort before everything else at the same tick
	msg   []byte
}

// EncodeMIDI writes a Performance as a format 1 SMF: a tempo track followed by one track per instrument
func EncodeMIDI(p *Performance) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil performance")
	}
	resolution := p.Resolution
	if resolution <= 0 || resolution > 0x7FFF {
		return nil, fmt.Errorf("%w: %d", sequence.ErrInvalidResolution, resolution)
	}
	tm := newTempoMapSeconds(resolution, p.Tempos, sequence.DefaultBPM)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(resolution)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaTrackSequenceName("tempo"))
	var last int64
	for _, pt := range tm.points {
		tempoTrack.Add(uint32(pt.tick-last), smf.MetaTempo(pt.bpm))
		last = pt.tick
	}
	tempoTrack.Close(0)
	if err := s.Add(tempoTrack); err != nil {
		return nil, fmt.Errorf("failed to add tempo track: %w", err)
	}

	for i := range p.Instruments {
		track := encodeInstrument(&p.Instruments[i], tm)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add track %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeInstrument(in *Instrument, tm *tempoMap) smf.Track {
	ch := in.Channel & 0x0F
	events := make([]timedMessage, 0, 2*len(in.Notes)+len(in.PitchBends)+len(in.ControlChanges)+1)
	events = append(events, timedMessage{tick: 0, order: 1, msg: midi.ProgramChange(ch, in.Program)})

	for _, n := range in.Notes {
		start, end := tm.ticks(n.Start), tm.ticks(n.End)
		// an off on the same tick would sort ahead of its own on
		if end <= start {
			end = start + 1
		}
		events = append(events,
			timedMessage{tick: start, order: 2, msg: midi.NoteOn(ch, n.Pitch, n.Velocity)},
			timedMessage{tick: end, order: 0, msg: midi.NoteOff(ch, n.Pitch)},
		)
	}
	for _, b := range in.PitchBends {
		events = append(events, timedMessage{tick: tm.ticks(b.Time), order: 1, msg: midi.Pitchbend(ch, b.Value)})
	}
	for _, cc := range in.ControlChanges {
		events = append(events, timedMessage{tick: tm.ticks(cc.Time), order: 1, msg: midi.ControlChange(ch, cc.Number, cc.Value)})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})

	var track smf.Track
	if in.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(in.Name))
	}
	var last int64
	for _, ev := range events {
		track.Add(uint32(ev.tick-last), ev.msg)
		last = ev.tick
	}
	track.Close(0)
	return track
}

// QuantizeMIDI snaps the SMF data onto the quantizer's grid before import
func QuantizeMIDI(data []byte) ([]byte, error) {
	in := bytes.NewBuffer(append([]byte(nil), data...))
	var out bytes.Buffer
	if err := quantizer.Quantize(in, &out); err != nil {
		return nil, fmt.Errorf("%w: quantize: %v", ErrMalformedInput, err)
	}
	return out.Bytes(), nil
}
