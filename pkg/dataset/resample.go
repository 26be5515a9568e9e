package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/gaitflow/gaitflow/internal/model"
)

// Cycle is one segmented movement cycle resampled onto a fixed number of
// points, so cycles of different durations can be averaged and compared.
type Cycle struct {
	Subject string
	Task    string
	Side    string
	Type    model.SegmentType

	// Percent is the cycle phase axis, 0 to 100, one entry per point.
	Percent []float64

	// Channels holds each signal resampled onto the phase axis.
	Channels map[string][]float64
}

// ResampleSegment cuts the boundary's window out of the trial and linearly
// resamples every channel onto points equally spaced phase samples. Channels
// with fewer than two finite samples inside the window come out all NaN.
func ResampleSegment(trial *model.Trial, b model.SegmentBoundary, points int) (*Cycle, error) {
	if points < 2 {
		return nil, fmt.Errorf("dataset: resample needs at least 2 points, got %d", points)
	}
	if b.StartIndex < 0 || b.EndIndex >= trial.Len() || b.StartIndex >= b.EndIndex {
		return nil, fmt.Errorf("dataset: boundary [%d, %d] outside trial of %d samples",
			b.StartIndex, b.EndIndex, trial.Len())
	}

	t0, t1 := trial.Time[b.StartIndex], trial.Time[b.EndIndex]
	if t1 <= t0 {
		return nil, fmt.Errorf("dataset: boundary time span [%g, %g] is not increasing", t0, t1)
	}

	cycle := &Cycle{
		Subject:  trial.Subject,
		Task:     trial.Task,
		Side:     trial.Side,
		Type:     b.Type,
		Percent:  make([]float64, points),
		Channels: make(map[string][]float64, len(trial.Channels)),
	}
	for i := range cycle.Percent {
		cycle.Percent[i] = 100 * float64(i) / float64(points-1)
	}

	window := trial.Time[b.StartIndex : b.EndIndex+1]
	for name, signal := range trial.Channels {
		cycle.Channels[name] = resampleChannel(window, signal[b.StartIndex:b.EndIndex+1], t0, t1, points)
	}
	return cycle, nil
}

// resampleChannel fits a piecewise-linear interpolant through the finite
// samples and evaluates it at points positions across [t0, t1].
func resampleChannel(time, signal []float64, t0, t1 float64, points int) []float64 {
	xs := make([]float64, 0, len(signal))
	ys := make([]float64, 0, len(signal))
	for i, v := range signal {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		// Duplicate timestamps would break the interpolant fit.
		if len(xs) > 0 && time[i] <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, time[i])
		ys = append(ys, v)
	}

	out := make([]float64, points)
	if len(xs) < 2 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	span := t1 - t0
	for i := range out {
		t := t0 + span*float64(i)/float64(points-1)
		// Clamp to the finite-sample hull; Predict outside it is undefined.
		if t < xs[0] {
			t = xs[0]
		} else if t > xs[len(xs)-1] {
			t = xs[len(xs)-1]
		}
		out[i] = pl.Predict(t)
	}
	return out
}
