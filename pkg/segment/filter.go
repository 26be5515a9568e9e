package segment

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gaitflow/gaitflow/internal/model"
)

// DurationBounds reports the acceptance interval computed by the duration
// outlier filter, for diagnostics and threshold tuning.
type DurationBounds struct {
	Lower float64
	Upper float64
}

// FilterDurationOutliers removes boundaries whose duration is an IQR-based
// outlier: with Q1/Q3 the quartiles of all durations, anything outside
// [Q1 - mult*IQR, Q3 + mult*IQR] is dropped. It is independent of the
// segmentation archetype that produced the boundaries.
//
// Fewer than 4 boundaries do not support a quartile estimate; the input is
// returned unchanged with zero removed. The input slice is never mutated.
func FilterDurationOutliers(boundaries []model.SegmentBoundary, mult float64) ([]model.SegmentBoundary, int, DurationBounds) {
	if len(boundaries) < 4 {
		return boundaries, 0, DurationBounds{}
	}

	durations := make([]float64, len(boundaries))
	for i, b := range boundaries {
		durations[i] = b.Duration
	}
	sort.Float64s(durations)

	q1 := stat.Quantile(0.25, stat.Empirical, durations, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, durations, nil)
	iqr := q3 - q1
	bounds := DurationBounds{
		Lower: q1 - mult*iqr,
		Upper: q3 + mult*iqr,
	}

	kept := make([]model.SegmentBoundary, 0, len(boundaries))
	for _, b := range boundaries {
		if b.Duration >= bounds.Lower && b.Duration <= bounds.Upper {
			kept = append(kept, b)
		}
	}
	return kept, len(boundaries) - len(kept), bounds
}

// TrimTransitions removes skipFirst boundaries from the start and skipLast
// from the end of the sequence, discarding first/last-cycle artifacts at
// trial edges. Over-trimming yields an empty sequence.
func TrimTransitions(boundaries []model.SegmentBoundary, skipFirst, skipLast int) []model.SegmentBoundary {
	if skipFirst < 0 {
		skipFirst = 0
	}
	if skipLast < 0 {
		skipLast = 0
	}
	if skipFirst+skipLast >= len(boundaries) {
		return []model.SegmentBoundary{}
	}

	out := make([]model.SegmentBoundary, len(boundaries)-skipFirst-skipLast)
	copy(out, boundaries[skipFirst:len(boundaries)-skipLast])
	return out
}
