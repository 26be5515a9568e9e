package segment

import (
	"math"
	"strings"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func squatConfig() StandingActionConfig {
	cfg := DefaultStandingActionConfig(model.SegmentSquat, "grf_vertical_ipsi", "", []string{"knee_velocity_ipsi"})
	cfg.SmoothingWindow = 0
	return cfg
}

// actionTrial builds a 100 Hz trial with constant-segment GRF and velocity.
func actionTrial(task string, grf, velocity []float64) *model.Trial {
	return synthTrial(task, 100, map[string][]float64{
		"grf_vertical_ipsi":  grf,
		"knee_velocity_ipsi": velocity,
	})
}

func TestStandingActionSegmenter_Squat(t *testing.T) {
	// Stable standing 0-99, motion 100-199, stable again from 200.
	grf := repeat([2]float64{800, 300})
	vel := repeat([2]float64{0, 100}, [2]float64{1.0, 100}, [2]float64{0, 100})

	seg, err := NewStandingActionSegmenter(squatConfig())
	if err != nil {
		t.Fatalf("NewStandingActionSegmenter: %v", err)
	}
	res, err := seg.Segment(actionTrial("squat", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	if len(res.Boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1 (diagnostics: %v)", len(res.Boundaries), res.Diagnostics)
	}
	b := res.Boundaries[0]
	if b.StartIndex != 100 || b.EndIndex != 200 {
		t.Errorf("boundary = [%d, %d], want [100, 200]", b.StartIndex, b.EndIndex)
	}
	if b.Type != model.SegmentSquat {
		t.Errorf("type = %v, want squat", b.Type)
	}
	if pv := b.Metadata["peak_velocity"]; math.Abs(pv-1.0) > 1e-12 {
		t.Errorf("peak_velocity = %g, want 1.0", pv)
	}
	if _, ok := b.Events["flight_start"]; ok {
		t.Error("squat without flight must not carry flight events")
	}
}

func TestStandingActionSegmenter_JumpFlightPhase(t *testing.T) {
	// Motion 100-199 with unloading 140-159 (0.2 s of flight).
	grf := repeat([2]float64{800, 140}, [2]float64{0, 20}, [2]float64{800, 140})
	vel := repeat([2]float64{0, 100}, [2]float64{1.5, 100}, [2]float64{0, 100})

	cfg := squatConfig()
	cfg.ActionType = model.SegmentJump
	cfg.RequireFlightPhase = true

	seg, err := NewStandingActionSegmenter(cfg)
	if err != nil {
		t.Fatalf("NewStandingActionSegmenter: %v", err)
	}
	res, err := seg.Segment(actionTrial("jump", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	if len(res.Boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1 (diagnostics: %v)", len(res.Boundaries), res.Diagnostics)
	}
	b := res.Boundaries[0]
	if b.Events["flight_start"] != 140 || b.Events["flight_end"] != 159 {
		t.Errorf("flight = [%d, %d], want [140, 159]", b.Events["flight_start"], b.Events["flight_end"])
	}
	if fd := b.Metadata["flight_duration"]; math.Abs(fd-0.2) > 1e-9 {
		t.Errorf("flight_duration = %g, want 0.2", fd)
	}
}

func TestStandingActionSegmenter_RejectsJumpWithoutFlight(t *testing.T) {
	// Same motion profile but fully loaded throughout: an aborted jump.
	grf := repeat([2]float64{800, 300})
	vel := repeat([2]float64{0, 100}, [2]float64{1.5, 100}, [2]float64{0, 100})

	cfg := squatConfig()
	cfg.ActionType = model.SegmentJump
	cfg.RequireFlightPhase = true

	seg, _ := NewStandingActionSegmenter(cfg)
	res, err := seg.Segment(actionTrial("jump", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	if len(res.Boundaries) != 0 {
		t.Fatalf("got %d boundaries, want 0", len(res.Boundaries))
	}
	found := false
	for _, d := range res.Diagnostics {
		if strings.Contains(d, "flight") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics %v do not explain the flight-phase rejection", res.Diagnostics)
	}
}

func TestStandingActionSegmenter_TrailingIncomplete(t *testing.T) {
	// Motion keeps going until the trial ends: the candidate is dropped.
	grf := repeat([2]float64{800, 200})
	vel := repeat([2]float64{0, 100}, [2]float64{1.0, 100})

	seg, _ := NewStandingActionSegmenter(squatConfig())
	res, err := seg.Segment(actionTrial("squat", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 0 {
		t.Fatalf("got %d boundaries, want 0", len(res.Boundaries))
	}
	if len(res.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the incomplete trailing candidate")
	}
}
