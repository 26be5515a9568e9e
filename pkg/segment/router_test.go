package segment

import (
	"errors"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func testRouter() *Router {
	return NewRouter(
		DefaultTaskMap(),
		DefaultGaitConfig("grf_vertical_ipsi"),
		DefaultStandingActionConfig(model.SegmentSquat, "grf_vertical_ipsi", "", []string{"knee_velocity_ipsi"}),
		DefaultSitStandConfig(model.SegmentSitToStand, "grf_vertical_ipsi", "", []string{"knee_velocity_ipsi"}),
	)
}

func TestRouter_Resolve(t *testing.T) {
	tests := []struct {
		task string
		want Archetype
	}{
		{"level_walking", ArchetypeGait},
		{"incline_walking", ArchetypeGait},
		{"decline_walking", ArchetypeGait},
		{"stair_ascent", ArchetypeGait},
		{"stair_descent", ArchetypeGait},
		{"run", ArchetypeGait},
		{"jump", ArchetypeStandingAction},
		{"squat", ArchetypeStandingAction},
		{"lunge", ArchetypeStandingAction},
		{"sit_to_stand", ArchetypeSitStandTransfer},
		{"stand_to_sit", ArchetypeSitStandTransfer},
	}
	r := testRouter()
	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			got, seg, err := r.Resolve(tt.task)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.task, err)
			}
			if got != tt.want {
				t.Errorf("archetype = %v, want %v", got, tt.want)
			}
			if seg == nil {
				t.Error("nil segmenter for known task")
			}
		})
	}
}

func TestRouter_UnknownTask(t *testing.T) {
	r := testRouter()

	_, _, err := r.Resolve("moonwalk")
	if err == nil {
		t.Fatal("expected an error for an unmapped task")
	}
	if !errors.Is(err, ErrUnknownTask) {
		t.Errorf("error %v does not wrap ErrUnknownTask", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

func TestRouter_SpecializesActionType(t *testing.T) {
	r := testRouter()

	_, seg, err := r.Resolve("jump")
	if err != nil {
		t.Fatalf("Resolve(jump): %v", err)
	}
	action, ok := seg.(*StandingActionSegmenter)
	if !ok {
		t.Fatalf("segmenter is %T, want *StandingActionSegmenter", seg)
	}
	if action.cfg.ActionType != model.SegmentJump {
		t.Errorf("action type = %v, want jump", action.cfg.ActionType)
	}
	if !action.cfg.RequireFlightPhase {
		t.Error("jump must require a flight phase")
	}

	_, seg, err = r.Resolve("lunge")
	if err != nil {
		t.Fatalf("Resolve(lunge): %v", err)
	}
	action = seg.(*StandingActionSegmenter)
	if action.cfg.ActionType != model.SegmentLunge {
		t.Errorf("action type = %v, want lunge", action.cfg.ActionType)
	}
	if action.cfg.RequireFlightPhase {
		t.Error("lunge must not require a flight phase")
	}
}

func TestRouter_SpecializesTransferType(t *testing.T) {
	r := testRouter()

	_, seg, err := r.Resolve("stand_to_sit")
	if err != nil {
		t.Fatalf("Resolve(stand_to_sit): %v", err)
	}
	transfer, ok := seg.(*SitStandSegmenter)
	if !ok {
		t.Fatalf("segmenter is %T, want *SitStandSegmenter", seg)
	}
	if transfer.cfg.TransferType != model.SegmentStandToSit {
		t.Errorf("transfer type = %v, want stand_to_sit", transfer.cfg.TransferType)
	}
}

func TestRouter_SegmentDispatchesOnTrialTask(t *testing.T) {
	r := testRouter()
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_ipsi": walkingGRF(),
	})

	res, err := r.Segment(trial)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 4 {
		t.Errorf("got %d boundaries, want 4", len(res.Boundaries))
	}

	trial.Task = "moonwalk"
	if _, err := r.Segment(trial); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("error %v does not wrap ErrUnknownTask", err)
	}
}
