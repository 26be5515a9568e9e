package segment

import (
	"github.com/gaitflow/gaitflow/internal/model"
)

// GaitSegmenter produces heel-strike-to-heel-strike stride boundaries.
// The stance/swing state tracking lives in the event detector; the
// segmenter's job is boundary construction and filtering.
type GaitSegmenter struct {
	cfg GaitConfig
}

// NewGaitSegmenter validates the configuration and builds the segmenter.
func NewGaitSegmenter(cfg GaitConfig) (*GaitSegmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GaitSegmenter{cfg: cfg}, nil
}

// Segment implements Segmenter.
func (s *GaitSegmenter) Segment(trial *model.Trial) (*Result, error) {
	res := &Result{}

	grf := trial.Channel(s.cfg.GRFChannel)
	if grf == nil {
		return nil, configErr(ErrMissingChannel, s.cfg.GRFChannel, "channel not present in trial")
	}

	rate, err := EstimateRate(trial.Time)
	if err != nil {
		res.note("skipping trial: %v", err)
		return res, nil
	}

	events := DetectEvents(grf, s.cfg.ContactThreshold, s.cfg.MinContactInterval, rate)
	if len(events.HeelStrikes) < 2 {
		res.note("found %d heel strikes, need at least 2 for a stride", len(events.HeelStrikes))
		return res, nil
	}

	for i := 0; i+1 < len(events.HeelStrikes); i++ {
		start, end := events.HeelStrikes[i], events.HeelStrikes[i+1]
		b, ok := newBoundary(trial, start, end, model.SegmentStride)
		if !ok {
			continue
		}
		if s.cfg.MinStrideDuration > 0 && b.Duration < s.cfg.MinStrideDuration {
			continue
		}
		if s.cfg.MaxStrideDuration > 0 && b.Duration > s.cfg.MaxStrideDuration {
			continue
		}
		if to, ok := toeOffWithin(events.ToeOffs, start, end); ok {
			b.Events = map[string]int{"toe_off": to}
		}
		res.Boundaries = append(res.Boundaries, b)
	}

	if len(res.Boundaries) == 0 {
		res.note("all %d candidate strides outside duration bounds [%gs, %gs]",
			len(events.HeelStrikes)-1, s.cfg.MinStrideDuration, s.cfg.MaxStrideDuration)
		return res, nil
	}

	applyFilters(res, s.cfg.Filter)
	return res, nil
}

// toeOffWithin returns the first toe-off index inside (start, end).
// Toe-off indices are strictly increasing, so the first hit is the stance
// end for the stride starting at start.
func toeOffWithin(toeOffs []int, start, end int) (int, bool) {
	for _, to := range toeOffs {
		if to > start && to < end {
			return to, true
		}
		if to >= end {
			break
		}
	}
	return 0, false
}
