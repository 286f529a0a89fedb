// Package normalize converts raw MIDI values to and from the normalized form
// carried in tick sequences.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/tickseq/tickseq/pkg/mapping"
)

// Pitch bend domain (14-bit, zero-centered)
const (
	PitchBendMin = -8192
	PitchBendMax = 8191

	pitchBendOffset = 8192.0
	pitchBendScale  = 8191.5
)

var (
	// ErrUnmapped is returned for controllers without a mapping
	ErrUnmapped = errors.New("controller not mapped")
	// ErrUnknownOption is returned on import when a raw value matches no category option
	ErrUnknownOption = errors.New("raw value matches no category option")
	// ErrTypeMismatch is returned when a value's type differs from its mapping's type
	ErrTypeMismatch = errors.New("value type does not match mapping type")
)

// CategoryOptionNotFoundError reports a normalized category value with no registered option
type CategoryOptionNotFoundError struct {
	Mapping string
	Number  int
	Value   int
}

func (e *CategoryOptionNotFoundError) Error() string {
	return fmt.Sprintf("mapping %q (cc %d): no option with value %d", e.Mapping, e.Number, e.Value)
}

// Note normalizes a MIDI pitch or velocity to [0,1]
func Note(v uint8) float64 {
	return float64(v) / 127.0
}

// DenormalizeNote converts a normalized pitch or velocity back to 0-127
func DenormalizeNote(n float64) uint8 {
	return clampByte(math.Round(n * 127.0))
}

// PitchBend maps a raw bend in [-8192, 8191] onto [-1, 1]
func PitchBend(raw int16) float64 {
	return (float64(raw)+pitchBendOffset)/pitchBendScale - 1.0
}

// DenormalizePitchBend is the exact inverse of PitchBend, rounded and clamped to the 14-bit domain
func DenormalizePitchBend(n float64) int16 {
	v := math.Round((n+1.0)*pitchBendScale - pitchBendOffset)
	if v < PitchBendMin {
		v = PitchBendMin
	}
	if v > PitchBendMax {
		v = PitchBendMax
	}
	return int16(v)
}

// Result is the outcome of normalizing one controller value
type Result struct {
	Value   mapping.Value
	Clamped bool // the continuous value fell outside the output convention and was clamped
}

// ControlChange normalizes a raw controller value through its mapping
func ControlChange(m *mapping.Mapping, raw uint8) (Result, error) {
	if m == nil {
		return Result{}, ErrUnmapped
	}

	switch m.Type {
	case mapping.Continuous:
		n, clamped := continuous(m, float64(raw))
		return Result{Value: mapping.ContinuousValue(n), Clamped: clamped}, nil
	case mapping.Boolean:
		return Result{Value: mapping.BooleanValue(raw != 0)}, nil
	case mapping.Category:
		o, ok := m.OptionByMIDI(raw)
		if !ok {
			return Result{}, fmt.Errorf("%w: %q raw %d", ErrUnknownOption, m.Name, raw)
		}
		return Result{Value: mapping.CategoryValue(o.Value)}, nil
	default:
		return Result{}, fmt.Errorf("mapping %q: unknown type %q", m.Name, m.Type)
	}
}

// DenormalizeControlChange converts a normalized value back to a raw controller value
func DenormalizeControlChange(m *mapping.Mapping, v mapping.Value) (uint8, error) {
	if m == nil {
		return 0, ErrUnmapped
	}
	if v.Type != m.Type {
		return 0, fmt.Errorf("%w: %q is %s, got %s", ErrTypeMismatch, m.Name, m.Type, v.Type)
	}

	switch m.Type {
	case mapping.Continuous:
		return clampByte(math.Round(uncontinuous(m, v.Float))), nil
	case mapping.Boolean:
		if v.Bool {
			return 127, nil
		}
		return 0, nil
	case mapping.Category:
		o, ok := m.OptionByValue(v.Option)
		if !ok {
			return 0, &CategoryOptionNotFoundError{Mapping: m.Name, Number: m.Number, Value: v.Option}
		}
		return o.MIDIValue, nil
	default:
		return 0, fmt.Errorf("mapping %q: unknown type %q", m.Name, m.Type)
	}
}

// continuous maps raw onto [0,1] for unipolar ranges and onto [-1,1] for bipolar ones.
// Bipolar ranges shift raw by -low before scaling so raw 0 lands near the range's zero point.
func continuous(m *mapping.Mapping, raw float64) (float64, bool) {
	low, high := m.Low(), m.High()
	span := high - low
	if low >= 0 {
		return clampUnit((raw-low)/span, 0, 1)
	}
	zeroAdjust := -low
	return clampUnit((2.0*(raw+zeroAdjust))/span-1.0, -1, 1)
}

func uncontinuous(m *mapping.Mapping, n float64) float64 {
	low, high := m.Low(), m.High()
	span := high - low
	if low >= 0 {
		return n*span + low
	}
	zeroAdjust := -low
	return ((n+1.0)/2.0)*span - zeroAdjust
}

func clampUnit(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

func clampByte(v float64) uint8 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
