package segment

import (
	"math"
	"testing"
)

func TestMovingAverage_CenteredWindow(t *testing.T) {
	in := []float64{0, 0, 10, 0, 0}
	got := movingAverage(in, 3)

	want := []float64{0, 10.0 / 3, 10.0 / 3, 10.0 / 3, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestMovingAverage_ShrinksAtEdges(t *testing.T) {
	// The first sample averages only the samples that exist; zero
	// padding would drag it toward zero.
	in := []float64{6, 6, 6, 6}
	got := movingAverage(in, 5)

	for i, v := range got {
		if math.Abs(v-6) > 1e-12 {
			t.Errorf("sample %d = %g, want 6 (edge window must shrink, not pad)", i, v)
		}
	}
}

func TestMovingAverage_WindowOne(t *testing.T) {
	in := []float64{1, 2, 3}
	got := movingAverage(in, 1)
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d = %g, want %g", i, got[i], in[i])
		}
	}
}

func TestMaxSmoothedVelocity_SmoothsBeforeMax(t *testing.T) {
	// A one-sample spike in channel a and a steady channel b. Smoothing
	// each channel first damps the spike below b; taking the max first
	// would keep the full spike.
	a := []float64{0, 0, 9, 0, 0}
	b := []float64{4, 4, 4, 4, 4}

	got := MaxSmoothedVelocity([][]float64{a, b}, 3)
	if math.Abs(got[2]-4) > 1e-12 {
		t.Errorf("center sample = %g, want 4 (spike must be smoothed before the max)", got[2])
	}
}

func TestMaxSmoothedVelocity_AbsoluteValue(t *testing.T) {
	a := []float64{-5, -5, -5}
	b := []float64{2, 2, 2}

	got := MaxSmoothedVelocity([][]float64{a, b}, 1)
	for i, v := range got {
		if math.Abs(v-5) > 1e-12 {
			t.Errorf("sample %d = %g, want 5", i, v)
		}
	}
}

func TestMaxSmoothedVelocity_NaNGaps(t *testing.T) {
	a := []float64{1, math.NaN(), 3}
	got := MaxSmoothedVelocity([][]float64{a}, 1)

	if got[0] != 1 || got[2] != 3 {
		t.Errorf("finite samples = %g, %g, want 1, 3", got[0], got[2])
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("gap sample = %g, want NaN", got[1])
	}
}
