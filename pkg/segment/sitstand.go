package segment

import (
	"github.com/gaitflow/gaitflow/internal/model"
)

// SitStandSegmenter detects sit-to-stand and stand-to-sit transfers from
// combined ipsi+contra GRF. The signal is classified into three states,
// sitting below the sitting threshold, standing above the standing
// threshold, and a transition band between the two. The band acts as a
// hysteresis gap: samples inside it never commit a state change, so GRF
// flutter between the thresholds cannot register as a transfer.
type SitStandSegmenter struct {
	cfg SitStandConfig
}

// NewSitStandSegmenter validates the configuration and builds the
// segmenter.
func NewSitStandSegmenter(cfg SitStandConfig) (*SitStandSegmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SitStandSegmenter{cfg: cfg}, nil
}

type grfState uint8

const (
	grfUnknown grfState = iota
	grfSitting
	grfTransition
	grfStanding
)

// Segment implements Segmenter.
func (s *SitStandSegmenter) Segment(trial *model.Trial) (*Result, error) {
	res := &Result{}

	grf, err := combinedGRF(trial, s.cfg.GRFIpsiChannel, s.cfg.GRFContraChannel)
	if err != nil {
		return nil, err
	}

	rate, err := EstimateRate(trial.Time)
	if err != nil {
		res.note("skipping trial: %v", err)
		return res, nil
	}

	velocity, err := velocityEnvelope(trial, s.cfg.VelocityChannels, s.cfg.SmoothingWindow, rate)
	if err != nil {
		return nil, err
	}

	grfScale := maxAbs(grf)
	sitting := s.cfg.SittingThreshold.Resolve(grfScale)
	standing := s.cfg.StandingThreshold.Resolve(grfScale)

	marginBefore := secondsToSamples(s.cfg.MarginBefore, rate)
	marginAfter := secondsToSamples(s.cfg.MarginAfter, rate)

	// Committed state machine: only sitting and standing commit; the
	// transition band and NaN samples leave the committed state alone.
	committed := grfUnknown
	lastCommitted := -1
	transfers := 0

	for i, g := range grf {
		if !isFinite(g) {
			continue
		}

		var st grfState
		switch {
		case g < sitting:
			st = grfSitting
		case g > standing:
			st = grfStanding
		default:
			st = grfTransition
		}
		if st == grfTransition {
			continue
		}

		switch {
		case committed == grfUnknown:
			// First committed sample establishes the state.
		case committed == grfSitting && st == grfStanding && s.cfg.TransferType == model.SegmentSitToStand,
			committed == grfStanding && st == grfSitting && s.cfg.TransferType == model.SegmentStandToSit:
			transfers++
			if b, ok := s.transferBoundary(trial, velocity, lastCommitted, i, marginBefore, marginAfter); ok {
				res.Boundaries = append(res.Boundaries, b)
			}
		}
		committed = st
		lastCommitted = i
	}

	if transfers == 0 {
		res.note("no %s transfer detected", s.cfg.TransferType)
		return res, nil
	}

	applyFilters(res, s.cfg.Filter)
	return res, nil
}

// transferBoundary builds the boundary for one GRF transfer whose
// transition window spans (a, b): a is the last sample committed to the old
// state, b the first sample committed to the new one. The velocity-threshold
// crossings inside the window, not the raw GRF boundaries, define the core
// motion window, which is then expanded by the configured margins and
// clipped to the trial range.
func (s *SitStandSegmenter) transferBoundary(trial *model.Trial, velocity []float64, a, b, marginBefore, marginAfter int) (model.SegmentBoundary, bool) {
	onset, offset := a, b
	for i := a; i <= b; i++ {
		if isFinite(velocity[i]) && velocity[i] > s.cfg.VelocityThreshold {
			onset = i
			break
		}
	}
	for i := b; i >= a; i-- {
		if isFinite(velocity[i]) && velocity[i] > s.cfg.VelocityThreshold {
			offset = i
			break
		}
	}
	if onset > offset {
		onset, offset = a, b
	}

	start := onset - marginBefore
	if start < 0 {
		start = 0
	}
	end := offset + marginAfter
	if end >= trial.Len() {
		end = trial.Len() - 1
	}

	boundary, ok := newBoundary(trial, start, end, s.cfg.TransferType)
	if !ok {
		return model.SegmentBoundary{}, false
	}
	boundary.Events = map[string]int{
		"motion_onset":  onset,
		"motion_offset": offset,
	}
	boundary.Metadata = map[string]float64{
		"grf_transition_duration": trial.Time[b] - trial.Time[a],
	}
	return boundary, true
}
