package segment

import (
	"github.com/gaitflow/gaitflow/internal/model"
)

// StandingActionSegmenter bounds a discrete action (jump, squat, lunge)
// between two stable standing periods. It runs a four-state machine per
// trial: searching for stable standing, stable standing, in action, and
// stable standing re-established, driven by summed ipsi+contra GRF and the
// smoothed joint velocity envelope.
type StandingActionSegmenter struct {
	cfg StandingActionConfig
}

// NewStandingActionSegmenter validates the configuration and builds the
// segmenter.
func NewStandingActionSegmenter(cfg StandingActionConfig) (*StandingActionSegmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StandingActionSegmenter{cfg: cfg}, nil
}

type actionState uint8

const (
	actionSearching actionState = iota
	actionStable
	actionInProgress
)

// Segment implements Segmenter.
func (s *StandingActionSegmenter) Segment(trial *model.Trial) (*Result, error) {
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

	// Thresholds resolve once per trial from the combined signal scale.
	grfScale := maxAbs(grf)
	standing := s.cfg.StandingThreshold.Resolve(grfScale)
	flight := s.cfg.FlightThreshold.Resolve(grfScale)

	stableSamples := secondsToSamples(s.cfg.MinStableDuration, rate)
	if stableSamples < 1 {
		stableSamples = 1
	}
	minFlightSamples := secondsToSamples(s.cfg.MinFlightDuration, rate)
	if minFlightSamples < 1 {
		minFlightSamples = 1
	}
	if trial.Len() < stableSamples {
		res.note("skipping trial: %d samples, stability window needs %d", trial.Len(), stableSamples)
		return res, nil
	}

	state := actionSearching
	stableRun := 0
	actionStart := -1
	noFlight := 0

	// Flight and peak tracking for the open action candidate.
	var (
		flightRun                int
		bestFlightStart, bestLen int
		peakVelocity             float64
	)
	resetCandidate := func() {
		flightRun, bestFlightStart, bestLen = 0, -1, 0
		peakVelocity = 0
	}
	resetCandidate()

	for i := 0; i < len(grf); i++ {
		g, v := grf[i], velocity[i]
		if !isFinite(g) || !isFinite(v) {
			// No valid state: excluded from transition detection.
			continue
		}

		standingNow := g > standing && v < s.cfg.VelocityThreshold

		switch state {
		case actionSearching:
			if standingNow {
				stableRun++
				if stableRun >= stableSamples {
					state = actionStable
				}
			} else {
				stableRun = 0
			}

		case actionStable:
			if v > s.cfg.VelocityThreshold {
				state = actionInProgress
				actionStart = i
				resetCandidate()
				peakVelocity = v
			}

		case actionInProgress:
			if v > peakVelocity {
				peakVelocity = v
			}
			if g < flight {
				if flightRun == 0 {
					flightRun = 1
				} else {
					flightRun++
				}
				if flightRun >= minFlightSamples && flightRun > bestLen {
					bestLen = flightRun
					bestFlightStart = i - flightRun + 1
				}
			} else {
				flightRun = 0
			}

			if standingNow {
				stableRun++
				if stableRun >= stableSamples {
					// The motion window ends where the stability run
					// began, the point velocity first settled.
					end := i - stableRun + 1
					if s.cfg.RequireFlightPhase && bestLen == 0 {
						noFlight++
					} else if b, ok := s.finishCandidate(trial, actionStart, end, bestFlightStart, bestLen, peakVelocity, rate); ok {
						res.Boundaries = append(res.Boundaries, b)
					}
					state = actionStable
					stableRun = 0
					actionStart = -1
				}
			} else {
				stableRun = 0
			}
		}
	}

	if state == actionInProgress {
		// Stable standing never re-established before trial end.
		res.note("discarded trailing incomplete %s candidate", s.cfg.ActionType)
	}
	if noFlight > 0 {
		res.note("discarded %d candidates without a qualifying flight phase", noFlight)
	}
	if len(res.Boundaries) == 0 {
		res.note("no complete %s actions detected", s.cfg.ActionType)
		return res, nil
	}

	applyFilters(res, s.cfg.Filter)
	return res, nil
}

// finishCandidate builds the boundary for a completed action window.
func (s *StandingActionSegmenter) finishCandidate(trial *model.Trial, start, end, flightStart, flightLen int, peakVelocity, rate float64) (model.SegmentBoundary, bool) {
	b, ok := newBoundary(trial, start, end, s.cfg.ActionType)
	if !ok {
		return model.SegmentBoundary{}, false
	}

	b.Metadata = map[string]float64{"peak_velocity": peakVelocity}
	if flightLen > 0 {
		b.Events = map[string]int{
			"flight_start": flightStart,
			"flight_end":   flightStart + flightLen - 1,
		}
		b.Metadata["flight_duration"] = float64(flightLen) / rate
	}
	return b, true
}
