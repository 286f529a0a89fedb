package converter

import (
	"sort"

	"github.com/tickseq/tickseq/pkg/normalize"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// IncompleteNote is a note start still waiting for its end
type IncompleteNote struct {
	Pitch    float64
	Velocity float64
	Start    float64

	seq int
}

type noteIdentity struct {
	pitch    uint8
	velocity uint8
}

func identify(pitch, velocity float64) noteIdentity {
	return noteIdentity{normalize.DenormalizeNote(pitch), normalize.DenormalizeNote(velocity)}
}

// NoteMatcher pairs note starts with note ends while a sequence is replayed.
//
// An end closes the earliest pending start with the same pitch and velocity.
// Starts are queued per (pitch, velocity) so that lookup stays constant time.
type NoteMatcher struct {
	pending map[noteIdentity][]IncompleteNote
	count   int
	next    int
}

// NewNoteMatcher returns a matcher with nothing pending
func NewNoteMatcher() *NoteMatcher {
	return &NoteMatcher{pending: map[noteIdentity][]IncompleteNote{}}
}

// Start registers a note start at time t
func (m *NoteMatcher) Start(ev sequence.NoteEvent, t float64) {
	id := identify(ev.Pitch, ev.Velocity)
	m.pending[id] = append(m.pending[id], IncompleteNote{
		Pitch:    ev.Pitch,
		Velocity: ev.Velocity,
		Start:    t,
		seq:      m.next,
	})
	m.next++
	m.count++
}

// End closes the earliest matching start. ok is false for an orphan end.
func (m *NoteMatcher) End(ev sequence.NoteEvent, t float64) (Note, bool) {
	id := identify(ev.Pitch, ev.Velocity)
	queue := m.pending[id]
	if len(queue) == 0 {
		return Note{}, false
	}

	first := queue[0]
	if len(queue) == 1 {
		delete(m.pending, id)
	} else {
		m.pending[id] = queue[1:]
	}
	m.count--

	return Note{
		Pitch:    id.pitch,
		Velocity: id.velocity,
		Start:    first.Start,
		End:      t,
	}, true
}

// Pending returns the number of unmatched starts
func (m *NoteMatcher) Pending() int {
	return m.count
}

// Finish returns the starts that never found an end, in insertion order, and resets the matcher
func (m *NoteMatcher) Finish() []IncompleteNote {
	var out []IncompleteNote
	for _, q := range m.pending {
		out = append(out, q...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	m.pending = map[noteIdentity][]IncompleteNote{}
	m.count = 0
	return out
}
