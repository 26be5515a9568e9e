package validation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func TestCheckTrial(t *testing.T) {
	trial := &model.Trial{
		Subject: "S01",
		Task:    "level_walking",
		Channels: map[string][]float64{
			"grf_vertical_ipsi": {0, 700, 9000}, // one sample above 5000
			"knee_angle_ipsi":   {10, 40, 70},
			"unranged":          {1e9},
		},
	}

	findings := CheckTrial(trial, DefaultRanges())
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	f := findings[0]
	if f.Channel != "grf_vertical_ipsi" || f.Severity != SeverityError || f.OutOfRange != 1 {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestCheckTrial_NaNTolerance(t *testing.T) {
	nan := math.NaN()
	trial := &model.Trial{
		Subject: "S01",
		Task:    "squat",
		Channels: map[string][]float64{
			"knee_angle_ipsi": {10, nan, nan, nan, 40}, // 60% NaN
		},
	}

	findings := CheckTrial(trial, DefaultRanges())
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Severity != SeverityWarning || findings[0].NaNCount != 3 {
		t.Errorf("unexpected finding: %+v", findings[0])
	}
}

func TestLoadRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.yaml")
	content := `
grf_vertical_ipsi:
  min: -50
  max: 4000
knee_angle_ipsi:
  min: -10
  max: 150
  max_nan_fraction: 0.25
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ranges, err := LoadRanges(path)
	if err != nil {
		t.Fatalf("LoadRanges: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if r := ranges["knee_angle_ipsi"]; r.Max != 150 || r.MaxNaNFraction != 0.25 {
		t.Errorf("unexpected range: %+v", r)
	}
}

func TestLoadRanges_RejectsInverted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.yaml")
	if err := os.WriteFile(path, []byte("bad:\n  min: 10\n  max: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRanges(path); err == nil {
		t.Error("expected an error for min >= max")
	}
}
