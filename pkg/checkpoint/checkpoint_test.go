package checkpoint

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestFileStoreRoundtrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	cp := New("run-1", "in.parquet", "out.parquet", 3)
	cp.MarkDone(TrialKey("S01", "level_walking", "left"))
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IsDone(TrialKey("S01", "level_walking", "left")) {
		t.Error("done trial lost in roundtrip")
	}
	if loaded.IsDone(TrialKey("S02", "squat", "left")) {
		t.Error("unexpected done trial")
	}
	if loaded.Phase != PhaseRunning || loaded.TrialTotal != 3 {
		t.Errorf("phase=%q total=%d after roundtrip", loaded.Phase, loaded.TrialTotal)
	}
}

func TestFileStoreFindIncomplete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	done := New("run-done", "in.parquet", "out.parquet", 1)
	done.Complete()
	if err := store.Save(ctx, done); err != nil {
		t.Fatal(err)
	}

	open := New("run-open", "in.parquet", "out.parquet", 2)
	if err := store.Save(ctx, open); err != nil {
		t.Fatal(err)
	}

	found, err := store.FindIncomplete(ctx, "in.parquet")
	if err != nil {
		t.Fatalf("FindIncomplete: %v", err)
	}
	if found.RunID != "run-open" {
		t.Errorf("found %q, want run-open", found.RunID)
	}

	if _, err := store.FindIncomplete(ctx, "other.parquet"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestCheckpointProgress(t *testing.T) {
	cp := New("run-1", "in.parquet", "out.parquet", 4)
	if cp.Progress() != 0 {
		t.Errorf("progress = %g, want 0", cp.Progress())
	}
	cp.MarkDone("a")
	cp.MarkDone("b")
	if cp.Progress() != 50 {
		t.Errorf("progress = %g, want 50", cp.Progress())
	}
}
