package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tuurlijk/knyst/ktime"
)

func TestMusicalTimeMapConstantTempo(t *testing.T) {
	m := NewMusicalTimeMap(60) // 1 beat/sec
	beats := m.SecondsToBeats(ktime.NewSuperseconds(2, 0))
	assert.InDelta(t, 2.0, beats.ToFloat(), 1e-6)

	secs := m.BeatsToSeconds(ktime.SuperbeatsFromFloat(2))
	assert.InDelta(t, 2.0, secs.ToFloat(), 1e-6)
}

func TestMusicalTimeMapTempoChange(t *testing.T) {
	m := NewMusicalTimeMap(60)
	m.SetTempoAt(ktime.SuperbeatsFromFloat(4), ktime.NewSuperseconds(4, 0), 120) // 2 beats/sec after beat 4

	beats := m.SecondsToBeats(ktime.NewSuperseconds(5, 0))
	assert.InDelta(t, 6.0, beats.ToFloat(), 1e-6)
}

func TestKindClassifiesGraphErrors(t *testing.T) {
	connErr := &ConnectionError{Kind: ReferenceNotYetPushed}
	assert.NotEqual(t, 0, int(Kind(connErr)))

	structErr := &StructureError{Err: errors.New("cycle")}
	assert.Equal(t, "graph_structure_violation", Kind(structErr).String())
}
