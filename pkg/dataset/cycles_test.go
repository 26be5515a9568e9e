package dataset

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/gaitflow/gaitflow/internal/model"
)

func TestCycleWriter(t *testing.T) {
	cycle := &Cycle{
		Subject: "S01",
		Task:    "level_walking",
		Side:    "left",
		Type:    model.SegmentStride,
		Percent: []float64{0, 50, 100},
		Channels: map[string][]float64{
			"knee_angle_ipsi": {10, 40, math.NaN()},
		},
	}

	var buf bytes.Buffer
	w, err := NewCycleWriter(&buf, WriterConfig{
		Channels:    []string{"knee_angle_ipsi"},
		Compression: "snappy",
		BatchSize:   2, // force a mid-cycle flush
	})
	if err != nil {
		t.Fatalf("NewCycleWriter: %v", err)
	}

	ctx := context.Background()
	if err := w.WriteCycle(ctx, cycle); err != nil {
		t.Fatalf("WriteCycle: %v", err)
	}
	if err := w.WriteCycle(ctx, cycle); err != nil {
		t.Fatalf("WriteCycle: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if w.RowsWritten() != 6 {
		t.Errorf("RowsWritten = %d, want 6", w.RowsWritten())
	}
	if w.CyclesWritten() != 2 {
		t.Errorf("CyclesWritten = %d, want 2", w.CyclesWritten())
	}

	rdr, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParquetReader: %v", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		t.Fatalf("NewFileReader: %v", err)
	}
	table, err := fr.ReadTable(ctx)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	defer table.Release()

	if table.NumRows() != 6 {
		t.Fatalf("table rows = %d, want 6", table.NumRows())
	}

	schema := table.Schema()
	for _, name := range []string{"subject", "task", "side", "segment_type", "cycle_id", "phase_percent", "knee_angle_ipsi"} {
		if indices := schema.FieldIndices(name); len(indices) != 1 {
			t.Errorf("missing column %q", name)
		}
	}
}

func TestNewCycleWriter_RequiresChannels(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewCycleWriter(&buf, WriterConfig{}); err == nil {
		t.Error("expected an error for an empty channel set")
	}
}
