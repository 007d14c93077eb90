package rating

import "math"

// Band is the inclusive item-difficulty range served below an upper rating
// bound.
type Band struct {
	Upper float64 `json:"-"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
}

// bands are ascending and contiguous. The last band is unbounded.
var bands = []Band{
	{Upper: 850, Min: 1, Max: 2},
	{Upper: 950, Min: 2, Max: 3},
	{Upper: 1050, Min: 3, Max: 4},
	{Upper: 1150, Min: 4, Max: 5},
	{Upper: math.Inf(1), Min: 5, Max: 5},
}

// SelectBand returns the first band whose upper bound is strictly greater
// than rating, so a rating equal to a bound falls into the next band. NaN
// maps to the last band.
func SelectBand(rating float64) Band {
	for _, b := range bands {
		if rating < b.Upper {
			return b
		}
	}
	return bands[len(bands)-1]
}

// Bands returns a copy of the band table.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// Contains reports whether difficulty falls inside the band.
func (b Band) Contains(difficulty int) bool {
	return difficulty >= b.Min && difficulty <= b.Max
}

// Full is the widened band covering every difficulty.
var Full = Band{Upper: math.Inf(1), Min: 1, Max: 5}
