package segment

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

// walkingGRF is 100 Hz square-wave walking: 0.4s swing, 1.0s contact,
// five cycles.
func walkingGRF() []float64 {
	var runs [][2]float64
	for i := 0; i < 5; i++ {
		runs = append(runs, [2]float64{0, 40}, [2]float64{800, 100})
	}
	return repeat(runs...)
}

func TestGaitSegmenter_SquareWaveStrides(t *testing.T) {
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_ipsi": walkingGRF(),
	})

	seg, err := NewGaitSegmenter(DefaultGaitConfig("grf_vertical_ipsi"))
	if err != nil {
		t.Fatalf("NewGaitSegmenter: %v", err)
	}
	res, err := seg.Segment(trial)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	if len(res.Boundaries) != 4 {
		t.Fatalf("got %d boundaries, want 4", len(res.Boundaries))
	}
	for i, b := range res.Boundaries {
		if b.Type != model.SegmentStride {
			t.Errorf("boundary %d type = %v, want stride", i, b.Type)
		}
		if math.Abs(b.Duration-1.4) > 1e-9 {
			t.Errorf("boundary %d duration = %g, want 1.4", i, b.Duration)
		}
		if !b.Valid() {
			t.Errorf("boundary %d violates invariant: %+v", i, b)
		}
		if to, ok := b.Events["toe_off"]; !ok {
			t.Errorf("boundary %d missing toe_off event", i)
		} else if to <= b.StartIndex || to >= b.EndIndex {
			t.Errorf("boundary %d toe_off %d outside (%d, %d)", i, to, b.StartIndex, b.EndIndex)
		}
	}
}

func TestGaitSegmenter_Idempotent(t *testing.T) {
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_ipsi": walkingGRF(),
	})
	seg, err := NewGaitSegmenter(DefaultGaitConfig("grf_vertical_ipsi"))
	if err != nil {
		t.Fatalf("NewGaitSegmenter: %v", err)
	}

	first, err := seg.Segment(trial)
	if err != nil {
		t.Fatalf("first Segment: %v", err)
	}
	second, err := seg.Segment(trial)
	if err != nil {
		t.Fatalf("second Segment: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated segmentation of the same trial differs")
	}
}

func TestGaitSegmenter_FewHeelStrikes(t *testing.T) {
	// A single stance produces one heel strike at most: empty output,
	// no error.
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_ipsi": repeat([2]float64{0, 40}, [2]float64{800, 100}),
	})
	seg, _ := NewGaitSegmenter(DefaultGaitConfig("grf_vertical_ipsi"))

	res, err := seg.Segment(trial)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 0 {
		t.Errorf("got %d boundaries, want 0", len(res.Boundaries))
	}
	if len(res.Diagnostics) == 0 {
		t.Error("expected a diagnostic note for the empty trial")
	}
}

func TestGaitSegmenter_DurationBounds(t *testing.T) {
	// One 0.2s stride: below the minimum duration, filtered out.
	cfg := DefaultGaitConfig("grf_vertical_ipsi")
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_ipsi": repeat(
			[2]float64{0, 10}, [2]float64{800, 20},
			[2]float64{0, 10}, [2]float64{800, 20},
		),
	})
	cfg.MinContactInterval = 0.01

	seg, _ := NewGaitSegmenter(cfg)
	res, err := seg.Segment(trial)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Boundaries) != 0 {
		t.Errorf("got %d boundaries, want 0 after duration filtering", len(res.Boundaries))
	}
}

func TestGaitSegmenter_MissingChannel(t *testing.T) {
	trial := synthTrial("level_walking", 100, map[string][]float64{
		"grf_vertical_contra": walkingGRF(),
	})
	seg, _ := NewGaitSegmenter(DefaultGaitConfig("grf_vertical_ipsi"))

	_, err := seg.Segment(trial)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
