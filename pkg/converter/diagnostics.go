package converter

import (
	"fmt"
	"strings"
)

// AnomalyKind classifies a per-event problem found during conversion
type AnomalyKind string

const (
	UnmappedController   AnomalyKind = "unmapped_controller"
	TickOutOfGrid        AnomalyKind = "tick_out_of_grid"
	UnknownCategoryValue AnomalyKind = "unknown_category_value"
	CategoryOptionAbsent AnomalyKind = "category_option_not_found"
	ValueClamped         AnomalyKind = "value_clamped"
	TypeMismatch         AnomalyKind = "type_mismatch"
	OrphanNoteStart      AnomalyKind = "orphan_note_start"
	OrphanNoteEnd        AnomalyKind = "orphan_note_end"
	ZeroLengthNote       AnomalyKind = "zero_length_note"
	UnknownNoteKind      AnomalyKind = "unknown_note_kind"
)

// maxAnomalies bounds the detail list; counts keep growing past it
const maxAnomalies = 256

// Anomaly is one recorded problem
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Time    float64     `json:"time"`
	Message string      `json:"message"`
}

// Diagnostics accumulates per-event anomalies for one conversion.
// None of them abort the conversion.
type Diagnostics struct {
	Counts    map[AnomalyKind]int `json:"counts"`
	Anomalies []Anomaly           `json:"anomalies,omitempty"`
	Truncated bool                `json:"truncated,omitempty"`
}

// NewDiagnostics returns an empty report
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Counts: map[AnomalyKind]int{}}
}

// Add records an anomaly
func (d *Diagnostics) Add(kind AnomalyKind, time float64, format string, args ...any) {
	d.Counts[kind]++
	if len(d.Anomalies) >= maxAnomalies {
		d.Truncated = true
		return
	}
	d.Anomalies = append(d.Anomalies, Anomaly{Kind: kind, Time: time, Message: fmt.Sprintf(format, args...)})
}

// Count returns how many anomalies of a kind were recorded
func (d *Diagnostics) Count(kind AnomalyKind) int {
	return d.Counts[kind]
}

// Total returns the number of anomalies recorded
func (d *Diagnostics) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// HasAnomalies reports whether anything was recorded
func (d *Diagnostics) HasAnomalies() bool {
	return d.Total() > 0
}

// Summary renders the counts as "kind=n" pairs in a stable order
func (d *Diagnostics) Summary() string {
	kinds := []AnomalyKind{
		UnmappedController, TickOutOfGrid, UnknownCategoryValue, CategoryOptionAbsent,
		ValueClamped, TypeMismatch, OrphanNoteStart, OrphanNoteEnd,
		ZeroLengthNote, UnknownNoteKind,
	}
	var parts []string
	for _, k := range kinds {
		if c := d.Counts[k]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, c))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
