package sequence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// FileExt is the extension used for tick sequence files
const FileExt = ".ticks.json"

// ErrInvalidSequence is returned when decoded ticks break the grid invariants
var ErrInvalidSequence = errors.New("invalid tick sequence")

// gridTolerance bounds the drift allowed between Time[i]+Duration[i] and Time[i+1]
const gridTolerance = 1e-9

// Write encodes a sequence as JSON
func Write(w io.Writer, s *Sequence) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode tick sequence: %w", err)
	}
	return nil
}

// Read decodes and validates a JSON sequence
func Read(r io.Reader) (*Sequence, error) {
	var s Sequence
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode tick sequence: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteFile writes a sequence to disk
func WriteFile(filename string, s *Sequence) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := Write(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a sequence from disk
func ReadFile(filename string) (*Sequence, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Validate checks ordering and contiguity of the ticks
func (s *Sequence) Validate() error {
	for i := range s.Ticks {
		tk := &s.Ticks[i]
		if !(tk.Duration > 0) {
			return fmt.Errorf("%w: tick %d has duration %g", ErrInvalidSequence, tk.Index, tk.Duration)
		}
		if i == 0 {
			continue
		}
		prev := &s.Ticks[i-1]
		if tk.Index <= prev.Index {
			return fmt.Errorf("%w: tick index %d after %d", ErrInvalidSequence, tk.Index, prev.Index)
		}
		if math.Abs(prev.End()-tk.Time) > gridTolerance*math.Max(1, tk.Time) {
			return fmt.Errorf("%w: tick %d starts at %g, previous ends at %g", ErrInvalidSequence, tk.Index, tk.Time, prev.End())
		}
	}
	return nil
}
