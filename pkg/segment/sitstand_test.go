package segment

import (
	"math"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func sitStandTrial(task string, grf, velocity []float64) *model.Trial {
	return synthTrial(task, 100, map[string][]float64{
		"grf_vertical_ipsi":  grf,
		"knee_velocity_ipsi": velocity,
	})
}

func sitToStandConfig() SitStandConfig {
	cfg := DefaultSitStandConfig(model.SegmentSitToStand, "grf_vertical_ipsi", "", []string{"knee_velocity_ipsi"})
	cfg.SmoothingWindow = 0
	return cfg
}

func TestSitStandSegmenter_SitToStand(t *testing.T) {
	// Sitting 0-99, transition band 100-149, standing from 150. Motion
	// velocity exceeds the threshold over 110-139.
	grf := repeat([2]float64{300, 100}, [2]float64{500, 50}, [2]float64{700, 150})
	vel := repeat([2]float64{0, 110}, [2]float64{1.0, 30}, [2]float64{0, 160})

	seg, err := NewSitStandSegmenter(sitToStandConfig())
	if err != nil {
		t.Fatalf("NewSitStandSegmenter: %v", err)
	}
	res, err := seg.Segment(sitStandTrial("sit_to_stand", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	if len(res.Boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1 (diagnostics: %v)", len(res.Boundaries), res.Diagnostics)
	}
	b := res.Boundaries[0]
	if b.Type != model.SegmentSitToStand {
		t.Errorf("type = %v, want sit_to_stand", b.Type)
	}
	// Velocity crossings at 110 and 139, expanded by 0.5 s margins.
	if b.StartIndex != 60 || b.EndIndex != 189 {
		t.Errorf("boundary = [%d, %d], want [60, 189]", b.StartIndex, b.EndIndex)
	}
	if b.Events["motion_onset"] != 110 || b.Events["motion_offset"] != 139 {
		t.Errorf("motion window = [%d, %d], want [110, 139]",
			b.Events["motion_onset"], b.Events["motion_offset"])
	}
	if d := b.Metadata["grf_transition_duration"]; math.Abs(d-0.51) > 1e-9 {
		t.Errorf("grf_transition_duration = %g, want 0.51", d)
	}
}

func TestSitStandSegmenter_HysteresisBand(t *testing.T) {
	// GRF flutters between 450 and 550, entirely inside the transition
	// band: no state ever commits and no transfer fires.
	var runs [][2]float64
	for i := 0; i < 50; i++ {
		runs = append(runs, [2]float64{450, 5}, [2]float64{550, 5})
	}
	grf := repeat(runs...)
	vel := repeat([2]float64{1.0, 500})

	seg, _ := NewSitStandSegmenter(sitToStandConfig())
	res, err := seg.Segment(sitStandTrial("sit_to_stand", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 0 {
		t.Fatalf("got %d boundaries, want 0 for in-band flutter", len(res.Boundaries))
	}
	if len(res.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the transferless trial")
	}
}

func TestSitStandSegmenter_DirectionSelective(t *testing.T) {
	// A stand-to-sit trace must not register under a sit-to-stand config.
	grf := repeat([2]float64{700, 100}, [2]float64{500, 50}, [2]float64{300, 150})
	vel := repeat([2]float64{0, 110}, [2]float64{1.0, 30}, [2]float64{0, 160})

	seg, _ := NewSitStandSegmenter(sitToStandConfig())
	res, err := seg.Segment(sitStandTrial("sit_to_stand", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 0 {
		t.Fatalf("got %d boundaries, want 0 for the opposite direction", len(res.Boundaries))
	}

	cfg := sitToStandConfig()
	cfg.TransferType = model.SegmentStandToSit
	seg, _ = NewSitStandSegmenter(cfg)
	res, err = seg.Segment(sitStandTrial("stand_to_sit", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1 stand_to_sit", len(res.Boundaries))
	}
	if res.Boundaries[0].Type != model.SegmentStandToSit {
		t.Errorf("type = %v, want stand_to_sit", res.Boundaries[0].Type)
	}
}

func TestSitStandSegmenter_NoVelocityCrossing(t *testing.T) {
	// Velocity never exceeds the threshold: the GRF window itself, plus
	// margins, bounds the transfer.
	grf := repeat([2]float64{300, 100}, [2]float64{500, 50}, [2]float64{700, 150})
	vel := repeat([2]float64{0, 300})

	seg, _ := NewSitStandSegmenter(sitToStandConfig())
	res, err := seg.Segment(sitStandTrial("sit_to_stand", grf, vel))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1", len(res.Boundaries))
	}
	b := res.Boundaries[0]
	if b.StartIndex != 49 || b.EndIndex != 200 {
		t.Errorf("boundary = [%d, %d], want [49, 200]", b.StartIndex, b.EndIndex)
	}
}
