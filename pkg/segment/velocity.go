package segment

import "math"

// MaxSmoothedVelocity combines a set of joint velocity channels into one
// signal: each channel is smoothed with a centered moving average of the
// given window (in samples), then the sample-wise maximum absolute value is
// taken across channels. Smoothing precedes the max; the reverse order would
// let per-channel noise dominate the cross-channel envelope.
//
// At sequence boundaries the window shrinks instead of padding with zeros,
// so velocity near trial start/end is not artificially suppressed. NaN
// samples are excluded from window averages.
//
// All channels must have length n; the result has length n.
func MaxSmoothedVelocity(channels [][]float64, window int) []float64 {
	if len(channels) == 0 {
		return nil
	}

	n := len(channels[0])
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	for _, ch := range channels {
		smoothed := movingAverage(ch, window)
		for i, v := range smoothed {
			if math.IsNaN(v) {
				continue
			}
			a := math.Abs(v)
			if math.IsNaN(out[i]) || a > out[i] {
				out[i] = a
			}
		}
	}
	return out
}

// movingAverage applies a centered moving average of the given window size.
// Windows shrink at the edges; NaN samples are skipped. A window of 1 or
// less returns a copy of the input.
func movingAverage(s []float64, window int) []float64 {
	out := make([]float64, len(s))
	if window <= 1 {
		copy(out, s)
		return out
	}

	half := window / 2
	for i := range s {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(s) {
			hi = len(s) - 1
		}

		var sum float64
		var count int
		for j := lo; j <= hi; j++ {
			if math.IsNaN(s[j]) {
				continue
			}
			sum += s[j]
			count++
		}
		if count == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}
