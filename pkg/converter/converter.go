package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatTicks   Format = "ticks"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, sequence.FileExt) {
		return FormatTicks
	}
	switch filepath.Ext(lower) {
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	case ".json":
		return FormatTicks
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatTicks
	}
	return FormatUnknown
}

// Converter bundles an Importer and an Exporter sharing one mapping table
type Converter struct {
	table    *mapping.Table
	importer *Importer
	exporter *Exporter
}

// New creates a Converter. A nil table selects the built-in mappings.
func New(table *mapping.Table, importOpts []ImportOption, exportOpts []ExportOption) *Converter {
	if table == nil {
		table = mapping.Default()
	}
	return &Converter{
		table:    table,
		importer: NewImporter(table, importOpts...),
		exporter: NewExporter(table, exportOpts...),
	}
}

// Table returns the mapping table in use
func (c *Converter) Table() *mapping.Table {
	return c.table
}

// Importer returns the converter's importer
func (c *Converter) Importer() *Importer {
	return c.importer
}

// Exporter returns the converter's exporter
func (c *Converter) Exporter() *Exporter {
	return c.exporter
}

// MIDIToTicks converts MIDI data to an encoded tick sequence
func (c *Converter) MIDIToTicks(midiData []byte) ([]byte, *Diagnostics, error) {
	seq, diag, err := c.importer.ImportMIDI(midiData)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := sequence.Write(&buf, seq); err != nil {
		return nil, diag, err
	}
	return buf.Bytes(), diag, nil
}

// TicksToMIDI converts an encoded tick sequence to MIDI data
func (c *Converter) TicksToMIDI(ticksData []byte) ([]byte, *Diagnostics, error) {
	seq, err := sequence.Read(bytes.NewReader(ticksData))
	if err != nil {
		return nil, nil, err
	}
	return c.exporter.ExportMIDI(seq)
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) (*Diagnostics, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return nil, errors.New("cannot determine output format from filename")
	}

	var (
		outputData []byte
		diag       *Diagnostics
	)
	switch {
	case inputFormat == FormatMIDI && outputFormat == FormatTicks:
		outputData, diag, err = c.MIDIToTicks(data)
	case inputFormat == FormatTicks && outputFormat == FormatMIDI:
		outputData, diag, err = c.TicksToMIDI(data)
	default:
		return nil, fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
	if err != nil {
		return diag, fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return diag, fmt.Errorf("failed to write output file: %w", err)
	}
	return diag, nil
}

// OutputPath derives an output filename for input in the given format
func OutputPath(input string, to Format) string {
	base := input
	if strings.HasSuffix(strings.ToLower(base), sequence.FileExt) {
		base = base[:len(base)-len(sequence.FileExt)]
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if to == FormatTicks {
		return base + sequence.FileExt
	}
	return base + ".mid"
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> ticks",
		"ticks -> midi",
	}
}
