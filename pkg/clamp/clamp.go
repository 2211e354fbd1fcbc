package clamp

import "golang.org/x/exp/constraints"

// Clamp bounds v to the [min, max] range.
func Clamp[T constraints.Ordered](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
