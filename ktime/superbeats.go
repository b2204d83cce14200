package ktime

import "math"

// Superbeats is a fixed-point musical time, precise to 1/2^32 of a
// beat. The Controller's beat-callback engine compares and advances
// these directly; conversion to/from sample time is a MusicalTimeMap
// concern owned by the Graph collaborator.
type Superbeats struct{ v fixed64 }

// NewSuperbeats builds a Superbeats from a whole-beat count and a
// fractional numerator over 2^32.
func NewSuperbeats(whole int64, frac uint32) Superbeats {
	return Superbeats{v: fixed64{whole: whole, frac: frac}}
}

// SuperbeatsFromFloat converts a floating-point beat count, rounding
// down to the nearest representable fraction.
func SuperbeatsFromFloat(beats float64) Superbeats {
	return Superbeats{v: fixed64FromFloat(beats)}
}

// ZeroSuperbeats is the Superbeats additive identity.
var ZeroSuperbeats = Superbeats{}

func (s Superbeats) Whole() int64  { return s.v.whole }
func (s Superbeats) Frac() uint32  { return s.v.frac }
func (s Superbeats) ToFloat() float64 { return s.v.toFloat() }

// Add returns s + d.
func (s Superbeats) Add(d Superbeats) Superbeats { return Superbeats{v: s.v.add(d.v)} }

// Sub returns s - d.
func (s Superbeats) Sub(d Superbeats) Superbeats { return Superbeats{v: s.v.sub(d.v)} }

// Less reports whether s < o.
func (s Superbeats) Less(o Superbeats) bool { return s.v.less(o.v) }

// LessOrEqual reports whether s <= o.
func (s Superbeats) LessOrEqual(o Superbeats) bool { return s.v.lessOrEqual(o.v) }

// Equal reports whether s and o hold the same value.
func (s Superbeats) Equal(o Superbeats) bool { return s.v == o.v }

// CeilMultiple returns the smallest value of the form k*m (k an
// integer) that is >= s, used to resolve a beat-callback's
// Multiple(m) start relative to the current musical time. m must be
// positive; CeilMultiple(0) returns s unchanged.
func (s Superbeats) CeilMultiple(m Superbeats) Superbeats {
	if m.v.toFloat() <= 0 {
		return s
	}
	ratio := s.v.toFloat() / m.v.toFloat()
	k := math.Ceil(ratio)
	return SuperbeatsFromFloat(k * m.v.toFloat())
}

func (s Superbeats) String() string {
	return Time{kind: KindSuperbeats, value: s.v}.String()
}
