package graph

import (
	"sort"

	"github.com/Tuurlijk/knyst/ktime"
)

// tempoPoint marks a tempo change effective from a given beat onward.
type tempoPoint struct {
	atBeat         ktime.Superbeats
	atSeconds      ktime.Superseconds
	beatsPerSecond float64
}

// MusicalTimeMap maps between sample/wall time and musical beat time
// through a piecewise-constant tempo curve. A Graph owns one and
// mutates it only through Commands.ChangeMusicalTimeMap, so in-flight
// beat-callback math never observes a half-updated map.
type MusicalTimeMap struct {
	points []tempoPoint
}

// NewMusicalTimeMap builds a map with a single constant tempo starting
// at time zero.
func NewMusicalTimeMap(beatsPerMinute float64) *MusicalTimeMap {
	return &MusicalTimeMap{
		points: []tempoPoint{{beatsPerSecond: beatsPerMinute / 60}},
	}
}

// SetTempoAt adds (or overwrites, if one already exists at that beat) a
// tempo change effective from atBeat onward. beatsPerMinute must be
// positive.
func (m *MusicalTimeMap) SetTempoAt(atBeat ktime.Superbeats, atSeconds ktime.Superseconds, beatsPerMinute float64) {
	if beatsPerMinute <= 0 {
		return
	}
	for i, p := range m.points {
		if p.atBeat.Equal(atBeat) {
			m.points[i].beatsPerSecond = beatsPerMinute / 60
			return
		}
	}
	m.points = append(m.points, tempoPoint{atBeat: atBeat, atSeconds: atSeconds, beatsPerSecond: beatsPerMinute / 60})
	sort.Slice(m.points, func(i, j int) bool { return m.points[i].atBeat.Less(m.points[j].atBeat) })
}

func (m *MusicalTimeMap) segmentFor(beat ktime.Superbeats) tempoPoint {
	seg := m.points[0]
	for _, p := range m.points {
		if p.atBeat.LessOrEqual(beat) {
			seg = p
		}
	}
	return seg
}

// SecondsToBeats converts a wall-clock Superseconds position to its
// musical beat position under the current tempo curve.
func (m *MusicalTimeMap) SecondsToBeats(s ktime.Superseconds) ktime.Superbeats {
	if len(m.points) == 0 {
		return ktime.ZeroSuperbeats
	}
	var seg tempoPoint
	for _, p := range m.points {
		if p.atSeconds.LessOrEqual(s) {
			seg = p
		}
	}
	elapsed := s.Sub(seg.atSeconds).ToFloat()
	return seg.atBeat.Add(ktime.SuperbeatsFromFloat(elapsed * seg.beatsPerSecond))
}

// BeatsToSeconds converts a musical beat position to wall-clock
// Superseconds under the current tempo curve.
func (m *MusicalTimeMap) BeatsToSeconds(b ktime.Superbeats) ktime.Superseconds {
	if len(m.points) == 0 {
		return ktime.Superseconds{}
	}
	seg := m.segmentFor(b)
	elapsedBeats := b.Sub(seg.atBeat).ToFloat()
	elapsedSeconds := elapsedBeats / seg.beatsPerSecond
	return seg.atSeconds.Add(ktime.NewSuperseconds(0, 0)).Add(secondsFromFloat(elapsedSeconds))
}

func secondsFromFloat(v float64) ktime.Superseconds {
	whole := int64(v)
	frac := v - float64(whole)
	return ktime.NewSuperseconds(whole, uint32(frac*4294967296.0))
}
