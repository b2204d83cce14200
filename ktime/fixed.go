package ktime

import "math"

const fracScale = 1 << 32

// fixed64 is a fixed-point value split into a whole part and a
// fractional part expressed as a numerator over 2^32, giving a
// resolution of 1/2^32 of whatever unit it represents (a sample, a
// second, or a musical beat). Superseconds and Superbeats both embed
// one of these; Time's Seconds variant uses one directly as a
// sample-and-sub-sample position.
type fixed64 struct {
	whole int64
	frac  uint32
}

func (f fixed64) add(o fixed64) fixed64 {
	sum := uint64(f.frac) + uint64(o.frac)
	whole := f.whole + o.whole
	if sum >= fracScale {
		sum -= fracScale
		whole++
	}
	return fixed64{whole: whole, frac: uint32(sum)}
}

func (f fixed64) sub(o fixed64) fixed64 {
	frac := int64(f.frac) - int64(o.frac)
	whole := f.whole - o.whole
	if frac < 0 {
		frac += fracScale
		whole--
	}
	return fixed64{whole: whole, frac: uint32(frac)}
}

func (f fixed64) less(o fixed64) bool {
	if f.whole != o.whole {
		return f.whole < o.whole
	}
	return f.frac < o.frac
}

func (f fixed64) lessOrEqual(o fixed64) bool {
	return f.less(o) || f == o
}

func (f fixed64) toFloat() float64 {
	return float64(f.whole) + float64(f.frac)/fracScale
}

func fixed64FromFloat(v float64) fixed64 {
	whole := math.Floor(v)
	frac := (v - whole) * fracScale
	return fixed64{whole: int64(whole), frac: uint32(frac)}
}
