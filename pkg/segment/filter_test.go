package segment

import (
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func boundariesWithDurations(durations ...float64) []model.SegmentBoundary {
	out := make([]model.SegmentBoundary, len(durations))
	for i, d := range durations {
		out[i] = model.SegmentBoundary{
			StartIndex: i * 100,
			EndIndex:   i*100 + 50,
			Duration:   d,
			Type:       model.SegmentStride,
		}
	}
	return out
}

func TestFilterDurationOutliers(t *testing.T) {
	in := boundariesWithDurations(1, 1, 1, 1, 1, 1, 1, 10)

	kept, removed, bounds := FilterDurationOutliers(in, 1.5)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(kept) != 7 {
		t.Fatalf("kept = %d, want 7", len(kept))
	}
	for _, b := range kept {
		if b.Duration != 1 {
			t.Errorf("kept boundary with duration %g", b.Duration)
		}
	}
	if bounds.Lower > 1 || bounds.Upper < 1 {
		t.Errorf("bounds [%g, %g] exclude the surviving durations", bounds.Lower, bounds.Upper)
	}
}

func TestFilterDurationOutliers_TooFew(t *testing.T) {
	in := boundariesWithDurations(1, 1, 10)

	kept, removed, _ := FilterDurationOutliers(in, 1.5)
	if removed != 0 || len(kept) != 3 {
		t.Errorf("kept %d, removed %d; want 3 unchanged below the quartile minimum", len(kept), removed)
	}
}

func TestFilterDurationOutliers_ConstantDurations(t *testing.T) {
	in := boundariesWithDurations(1.4, 1.4, 1.4, 1.4, 1.4)

	kept, removed, _ := FilterDurationOutliers(in, 1.5)
	if removed != 0 || len(kept) != 5 {
		t.Errorf("kept %d, removed %d; constant durations must all survive", len(kept), removed)
	}
}

func TestFilterDurationOutliers_DoesNotMutateInput(t *testing.T) {
	in := boundariesWithDurations(1, 1, 1, 1, 10)
	FilterDurationOutliers(in, 1.5)

	if in[4].Duration != 10 {
		t.Error("input slice was mutated")
	}
	if len(in) != 5 {
		t.Errorf("input length changed to %d", len(in))
	}
}

func TestTrimTransitions(t *testing.T) {
	tests := []struct {
		name               string
		n                  int
		skipFirst, skipLast int
		want               int
	}{
		{"no trimming", 5, 0, 0, 5},
		{"first only", 5, 1, 0, 4},
		{"both ends", 5, 1, 2, 2},
		{"exact consumption", 3, 2, 1, 0},
		{"over-trim", 3, 5, 5, 0},
		{"negative clamps", 4, -1, -1, 4},
		{"empty input", 0, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := boundariesWithDurations(make([]float64, tt.n)...)
			got := TrimTransitions(in, tt.skipFirst, tt.skipLast)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTrimTransitions_KeepsMiddle(t *testing.T) {
	in := boundariesWithDurations(1, 2, 3, 4, 5)
	got := TrimTransitions(in, 1, 1)

	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, b := range got {
		if b.Duration != want[i] {
			t.Errorf("boundary %d duration = %g, want %g", i, b.Duration, want[i])
		}
	}
}
