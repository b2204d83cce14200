// Package ktime implements the scheduling-time vocabulary: a closed
// Time tagged union (Immediately, Seconds, Superseconds, Superbeats)
// plus the fixed-point Superbeats arithmetic the Controller's
// beat-callback engine runs on directly.
//
// Time is deliberately a value type with an unexported discriminant
// rather than an interface: every caller that schedules something
// needs to compare, log, and occasionally convert Times, and a closed
// set of four variants is cheap to carry by value.
package ktime

import "fmt"

// Kind discriminates the Time union.
type Kind int

const (
	KindImmediately Kind = iota
	KindSeconds
	KindSuperseconds
	KindSuperbeats
)

func (k Kind) String() string {
	switch k {
	case KindImmediately:
		return "immediately"
	case KindSeconds:
		return "seconds"
	case KindSuperseconds:
		return "superseconds"
	case KindSuperbeats:
		return "superbeats"
	default:
		return "unknown"
	}
}

// Time is the scheduling time attached to a SimultaneousChanges batch
// or a Push's start_time. The zero value is Immediately.
type Time struct {
	kind  Kind
	value fixed64
}

// Immediately returns a Time that takes effect at the first opportunity
// the receiving side processes it — the default for unscheduled pushes
// and changes.
func Immediately() Time { return Time{kind: KindImmediately} }

// SecondsAt builds an absolute wall-sample Time: wholeSample identifies
// a sample index, frac a sub-sample offset (numerator over 2^32).
func SecondsAt(wholeSample int64, frac uint32) Time {
	return Time{kind: KindSeconds, value: fixed64{whole: wholeSample, frac: frac}}
}

// FromSuperseconds wraps a Superseconds value as a Time.
func FromSuperseconds(s Superseconds) Time {
	return Time{kind: KindSuperseconds, value: s.v}
}

// FromSuperbeats wraps a Superbeats value as a Time.
func FromSuperbeats(b Superbeats) Time {
	return Time{kind: KindSuperbeats, value: b.v}
}

// Kind reports which variant t holds.
func (t Time) Kind() Kind { return t.kind }

// IsImmediately reports whether t is the Immediately variant.
func (t Time) IsImmediately() bool { return t.kind == KindImmediately }

// AsSeconds extracts the wall-sample position, if t holds KindSeconds.
func (t Time) AsSeconds() (wholeSample int64, frac uint32, ok bool) {
	if t.kind != KindSeconds {
		return 0, 0, false
	}
	return t.value.whole, t.value.frac, true
}

// AsSuperseconds extracts the Superseconds value, if t holds it.
func (t Time) AsSuperseconds() (Superseconds, bool) {
	if t.kind != KindSuperseconds {
		return Superseconds{}, false
	}
	return Superseconds{v: t.value}, true
}

// AsSuperbeats extracts the Superbeats value, if t holds it.
func (t Time) AsSuperbeats() (Superbeats, bool) {
	if t.kind != KindSuperbeats {
		return Superbeats{}, false
	}
	return Superbeats{v: t.value}, true
}

func (t Time) String() string {
	switch t.kind {
	case KindImmediately:
		return "immediately"
	case KindSeconds:
		return fmt.Sprintf("%d+%d/2^32 samples", t.value.whole, t.value.frac)
	case KindSuperseconds:
		return fmt.Sprintf("%fs", t.value.toFloat())
	case KindSuperbeats:
		return fmt.Sprintf("%fbeats", t.value.toFloat())
	default:
		return "invalid-time"
	}
}
