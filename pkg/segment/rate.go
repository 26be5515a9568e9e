package segment

import (
	"fmt"
	"math"
	"sort"
)

// EstimateRate infers the sampling frequency in Hz from a time column.
// It uses the median of successive time deltas, which tolerates occasional
// dropped or duplicated samples better than the mean. Returns
// ErrInsufficientData when fewer than two samples exist or the median delta
// is not a positive finite number.
func EstimateRate(time []float64) (float64, error) {
	if len(time) < 2 {
		return 0, fmt.Errorf("%w: %d samples, need at least 2 to estimate rate", ErrInsufficientData, len(time))
	}

	deltas := make([]float64, 0, len(time)-1)
	for i := 1; i < len(time); i++ {
		d := time[i] - time[i-1]
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 0, fmt.Errorf("%w: time column has no finite deltas", ErrInsufficientData)
	}

	sort.Float64s(deltas)
	median := deltas[len(deltas)/2]
	if len(deltas)%2 == 0 {
		median = (deltas[len(deltas)/2-1] + deltas[len(deltas)/2]) / 2
	}

	if median <= 0 {
		return 0, fmt.Errorf("%w: non-increasing time column (median delta %g)", ErrInsufficientData, median)
	}
	return 1 / median, nil
}

// secondsToSamples converts a duration in seconds to a sample count at the
// given rate, rounding to nearest and never returning less than zero.
func secondsToSamples(seconds, rate float64) int {
	if seconds <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Round(seconds * rate))
}
