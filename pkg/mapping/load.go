package mapping

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a mapping table
type File struct {
	Mappings []Mapping `yaml:"mappings"`
}

// Parse reads a YAML mapping table
func Parse(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return NewTable(nil)
		}
		return nil, fmt.Errorf("failed to parse mapping table: %w", err)
	}
	return NewTable(f.Mappings)
}

// LoadFile reads a YAML mapping table from disk
func LoadFile(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping table: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Encode writes the table as YAML
func (t *Table) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Mappings: t.Mappings()}); err != nil {
		return fmt.Errorf("failed to encode mapping table: %w", err)
	}
	return enc.Close()
}
