package transcription

import (
	"fmt"
	"sync"
)

// SpeakerMap assigns stable sequential labels to the opaque speaker IDs
// emitted by the recognition engine, in first-seen order. It is owned by
// a single session; recognition callbacks may hit it concurrently with
// the session's own control flow, so all access is mutex-guarded.
type SpeakerMap struct {
	mu     sync.Mutex
	labels map[string]string
	order  int
}

// NewSpeakerMap creates an empty speaker map.
func NewSpeakerMap() *SpeakerMap {
	return &SpeakerMap{labels: make(map[string]string)}
}

// LabelFor returns the label for the given speaker ID, allocating the
// next sequential "Speaker N" label on first observation. Once assigned,
// a label never changes for the duration of the session.
func (m *SpeakerMap) LabelFor(speakerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if label, ok := m.labels[speakerID]; ok {
		return label
	}
	m.order++
	label := fmt.Sprintf("Speaker %d", m.order)
	m.labels[speakerID] = label
	return label
}

// Count returns the number of distinct speaker IDs observed so far.
// It never decreases within a session.
func (m *SpeakerMap) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order
}
