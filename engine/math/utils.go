package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// DivCeil returns n/d rounded up. d must not be zero.
func DivCeil[T constraints.Unsigned](n, d T) T {
	return (n + d - 1) / d
}
