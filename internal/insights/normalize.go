package insights

import "errors"

var ErrInvertedRange = errors.New("normalization range is inverted")

// Normalize min-max scales value into [0, 1] against the given range.
// A degenerate range (min == max) maps to 1.0: there is nothing to
// compare against, so the value trivially tops its comparison set.
func Normalize(value, min, max float64) (float64, error) {
	if max < min {
		return 0, ErrInvertedRange
	}
	if min == max {
		return 1.0, nil
	}
	return (value - min) / (max - min), nil
}
