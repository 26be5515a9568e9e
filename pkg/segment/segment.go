// Package segment implements the GaitFlow cycle segmentation engine:
// threshold-based gait event detection on vertical GRF and joint velocity
// signals, the three segmentation archetypes (gait, standing action,
// sit-stand transfer), and the statistical duration filters applied to
// their output.
//
// The engine is pure, synchronous computation over an in-memory trial. It
// performs no I/O, never logs, and keeps no state across invocations, so
// trials may be segmented in parallel by the caller without coordination.
package segment

import (
	"fmt"
	"math"

	"github.com/gaitflow/gaitflow/internal/model"
)

// Result holds the outcome of one segmenter invocation.
type Result struct {
	// Boundaries is the ordered sequence of detected cycles. Every entry
	// satisfies StartIndex < EndIndex and Duration > 0.
	Boundaries []model.SegmentBoundary

	// Diagnostics carries per-trial notes (empty trial, filtered counts,
	// discarded candidates) for the batch layer to aggregate. A trial
	// contributing zero cycles is reported here, never as an error.
	Diagnostics []string
}

func (r *Result) note(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Segmenter is the common contract of the three archetypes.
type Segmenter interface {
	// Segment produces cycle boundaries for one trial. Configuration
	// problems surface as *ConfigurationError; data problems produce an
	// empty result with diagnostics.
	Segment(trial *model.Trial) (*Result, error)
}

// newBoundary builds a boundary over [start, end] with derived times.
// Returns false when the segment would violate the core invariant.
func newBoundary(trial *model.Trial, start, end int, typ model.SegmentType) (model.SegmentBoundary, bool) {
	if start < 0 || end >= trial.Len() || start >= end {
		return model.SegmentBoundary{}, false
	}
	st, et := trial.Time[start], trial.Time[end]
	d := et - st
	if !(d > 0) {
		return model.SegmentBoundary{}, false
	}
	return model.SegmentBoundary{
		StartIndex: start,
		EndIndex:   end,
		StartTime:  st,
		EndTime:    et,
		Duration:   d,
		Type:       typ,
	}, true
}

// combinedGRF sums the ipsilateral and (optional) contralateral vertical
// GRF channels. A NaN on either side makes the combined sample NaN, which
// downstream state machines treat as "no valid state".
func combinedGRF(trial *model.Trial, ipsiChannel, contraChannel string) ([]float64, error) {
	ipsi := trial.Channel(ipsiChannel)
	if ipsi == nil {
		return nil, configErr(ErrMissingChannel, ipsiChannel, "channel not present in trial")
	}
	if contraChannel == "" {
		out := make([]float64, len(ipsi))
		copy(out, ipsi)
		return out, nil
	}
	contra := trial.Channel(contraChannel)
	if contra == nil {
		return nil, configErr(ErrMissingChannel, contraChannel, "channel not present in trial")
	}

	out := make([]float64, len(ipsi))
	for i := range ipsi {
		out[i] = ipsi[i] + contra[i]
	}
	return out, nil
}

// velocityEnvelope fetches the configured velocity channels and returns
// their smoothed cross-channel max.
func velocityEnvelope(trial *model.Trial, channels []string, smoothingWindow, rate float64) ([]float64, error) {
	series := make([][]float64, 0, len(channels))
	for _, name := range channels {
		ch := trial.Channel(name)
		if ch == nil {
			return nil, configErr(ErrMissingChannel, name, "channel not present in trial")
		}
		series = append(series, ch)
	}
	window := secondsToSamples(smoothingWindow, rate)
	return MaxSmoothedVelocity(series, window), nil
}

// applyFilters runs the duration outlier filter and transition trimmer over
// a raw boundary list, noting what was removed.
func applyFilters(res *Result, opts FilterOptions) {
	if opts.IQRMultiplier > 0 {
		filtered, removed, bounds := FilterDurationOutliers(res.Boundaries, opts.IQRMultiplier)
		if removed > 0 {
			res.note("duration outlier filter removed %d of %d cycles (bounds %.3fs..%.3fs)",
				removed, len(res.Boundaries), bounds.Lower, bounds.Upper)
		}
		res.Boundaries = filtered
	}
	if opts.SkipFirst > 0 || opts.SkipLast > 0 {
		before := len(res.Boundaries)
		res.Boundaries = TrimTransitions(res.Boundaries, opts.SkipFirst, opts.SkipLast)
		if trimmed := before - len(res.Boundaries); trimmed > 0 {
			res.note("trimmed %d transition cycles at trial edges", trimmed)
		}
	}
}

// isFinite reports whether v is a usable sample value.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
