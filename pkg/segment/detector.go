package segment

import (
	"math"

	"github.com/gaitflow/gaitflow/internal/model"
)

// phase is the detector's two-state stance/swing classification.
type phase int8

const (
	phaseUnknown phase = iota - 1
	phaseSwing
	phaseContact
)

// DetectEvents scans a vertical GRF signal for threshold-crossing gait
// events. A swing-to-contact transition is a heel strike, a
// contact-to-swing transition a toe-off. Events of the same kind closer
// together than minContactInterval seconds are discarded as noise-induced
// double-crossings near the threshold.
//
// The threshold unit is auto-detected once from max(|grf|) over the whole
// trial, so every window of the same trial is classified consistently.
// NaN samples carry no valid state and are excluded from transition
// detection. A signal with no crossings yields empty event sequences,
// not an error.
func DetectEvents(grf []float64, threshold Threshold, minContactInterval, rate float64) model.GaitEvents {
	events := model.GaitEvents{}
	if len(grf) == 0 {
		return events
	}

	limit := threshold.Resolve(maxAbs(grf))
	debounce := secondsToSamples(minContactInterval, rate)

	state := phaseUnknown
	lastHeelStrike := -1
	lastToeOff := -1

	for i, v := range grf {
		if math.IsNaN(v) {
			continue
		}

		next := phaseSwing
		if v >= limit {
			next = phaseContact
		}

		switch {
		case state == phaseUnknown:
			// First valid sample establishes the phase without emitting.
		case state == phaseSwing && next == phaseContact:
			if lastHeelStrike < 0 || i-lastHeelStrike >= debounce {
				events.HeelStrikes = append(events.HeelStrikes, i)
				lastHeelStrike = i
			}
		case state == phaseContact && next == phaseSwing:
			if lastToeOff < 0 || i-lastToeOff >= debounce {
				events.ToeOffs = append(events.ToeOffs, i)
				lastToeOff = i
			}
		}
		state = next
	}

	return events
}

// maxAbs returns the maximum absolute value over the finite samples of s,
// or 0 when none exist.
func maxAbs(s []float64) float64 {
	var m float64
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
