package ktime

// Superseconds is a fixed-point wall-clock time in seconds, precise to
// 1/2^32 of a second. Scenarios schedule against sample time by round
// tripping through a sample rate with FromSamples/ToSamples rather than
// carrying a raw sample count, since Superseconds is rate-independent
// and a Graph may resample.
type Superseconds struct{ v fixed64 }

// NewSuperseconds builds a Superseconds from whole seconds and a
// fractional numerator over 2^32.
func NewSuperseconds(whole int64, frac uint32) Superseconds {
	return Superseconds{v: fixed64{whole: whole, frac: frac}}
}

// SupersecondsFromSamples converts an absolute sample index at the
// given sample rate into Superseconds. The fraction is rounded up, so
// ToSamples at the same rate gives back sampleIndex.
func SupersecondsFromSamples(sampleIndex int64, sampleRate uint32) Superseconds {
	if sampleRate == 0 {
		return Superseconds{}
	}
	whole := sampleIndex / int64(sampleRate)
	remainder := sampleIndex % int64(sampleRate)
	num := uint64(remainder) << 32
	frac := num / uint64(sampleRate)
	if num%uint64(sampleRate) != 0 {
		frac++
	}
	return Superseconds{v: fixed64{whole: whole, frac: uint32(frac)}}
}

// ToSamples converts s back to an absolute sample index at the given
// sample rate, rounding down to the nearest whole sample.
func (s Superseconds) ToSamples(sampleRate uint32) int64 {
	wholeSamples := s.v.whole * int64(sampleRate)
	fracSamples := int64((uint64(s.v.frac) * uint64(sampleRate)) >> 32)
	return wholeSamples + fracSamples
}

func (s Superseconds) Whole() int64     { return s.v.whole }
func (s Superseconds) Frac() uint32     { return s.v.frac }
func (s Superseconds) ToFloat() float64 { return s.v.toFloat() }

func (s Superseconds) Add(d Superseconds) Superseconds { return Superseconds{v: s.v.add(d.v)} }
func (s Superseconds) Sub(d Superseconds) Superseconds { return Superseconds{v: s.v.sub(d.v)} }
func (s Superseconds) Less(o Superseconds) bool        { return s.v.less(o.v) }
func (s Superseconds) LessOrEqual(o Superseconds) bool { return s.v.lessOrEqual(o.v) }

func (s Superseconds) String() string {
	return Time{kind: KindSuperseconds, value: s.v}.String()
}
