package dataset

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/gaitflow/gaitflow/internal/model"
)

func TestWriterReaderRoundtrip(t *testing.T) {
	first := &model.Trial{
		Subject: "S01",
		Task:    "level_walking",
		Side:    "left",
		Time:    []float64{0, 0.01, 0.02},
		Channels: map[string][]float64{
			"grf_vertical_ipsi": {0, 700, math.NaN()},
		},
	}
	second := &model.Trial{
		Subject: "S01",
		Task:    "squat",
		Side:    "left",
		Time:    []float64{0, 0.01},
		Channels: map[string][]float64{
			"grf_vertical_ipsi": {800, 810},
		},
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterConfig{
		Channels:    []string{"grf_vertical_ipsi"},
		Compression: "snappy",
		BatchSize:   2, // force a mid-trial flush
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	ctx := context.Background()
	for _, trial := range []*model.Trial{first, second} {
		if err := w.WriteTrial(ctx, trial); err != nil {
			t.Fatalf("WriteTrial: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.RowsWritten() != 5 {
		t.Errorf("RowsWritten = %d, want 5", w.RowsWritten())
	}

	trials, err := ReadTrials(ctx, bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("ReadTrials: %v", err)
	}
	if len(trials) != 2 {
		t.Fatalf("got %d trials, want 2", len(trials))
	}

	got := trials[0]
	if got.Subject != "S01" || got.Task != "level_walking" || got.Side != "left" {
		t.Errorf("trial identity = %s/%s/%s", got.Subject, got.Task, got.Side)
	}
	if got.Len() != 3 {
		t.Fatalf("trial length = %d, want 3", got.Len())
	}
	grf := got.Channels["grf_vertical_ipsi"]
	if grf[1] != 700 {
		t.Errorf("sample 1 = %g, want 700", grf[1])
	}
	// NaN is stored as a null cell and must come back as NaN.
	if !math.IsNaN(grf[2]) {
		t.Errorf("sample 2 = %g, want NaN", grf[2])
	}

	if trials[1].Task != "squat" || trials[1].Len() != 2 {
		t.Errorf("second trial = %s with %d samples", trials[1].Task, trials[1].Len())
	}
}

func TestNewWriter_RequiresChannels(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf, WriterConfig{}); err == nil {
		t.Error("expected an error for an empty channel set")
	}
}
