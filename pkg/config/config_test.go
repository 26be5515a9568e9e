package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Dataset.Compression != "snappy" {
		t.Errorf("compression = %q, want snappy", cfg.Dataset.Compression)
	}
	if cfg.Dataset.PointsPerCycle != 150 {
		t.Errorf("points per cycle = %d, want 150", cfg.Dataset.PointsPerCycle)
	}
	if cfg.Segmentation.GRFIpsiChannel != "grf_vertical_ipsi" {
		t.Errorf("GRF channel = %q", cfg.Segmentation.GRFIpsiChannel)
	}
	if cfg.Checkpoint.Backend != "file" {
		t.Errorf("checkpoint backend = %q, want file", cfg.Checkpoint.Backend)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled by default")
	}
}

func TestMergeOverridesNonZeroOnly(t *testing.T) {
	m := NewManager()

	m.merge(&Config{
		Dataset: DatasetConfig{Compression: "zstd"},
		Segmentation: SegmentationConfig{
			Gait:  GaitTuning{MinStrideDuration: 0.3, MaxStrideDuration: 3.0},
			Tasks: map[string]string{"hop": "standing_action"},
		},
		Runner: RunnerConfig{Workers: 4},
	})

	cfg := m.Get()
	if cfg.Dataset.Compression != "zstd" {
		t.Errorf("compression = %q, want zstd", cfg.Dataset.Compression)
	}
	// Untouched fields keep their defaults.
	if cfg.Dataset.BatchSize != 8192 {
		t.Errorf("batch size = %d, want default 8192", cfg.Dataset.BatchSize)
	}
	if cfg.Segmentation.Gait.MaxStrideDuration != 3.0 {
		t.Errorf("max stride = %g, want 3.0", cfg.Segmentation.Gait.MaxStrideDuration)
	}
	if cfg.Segmentation.Tasks["hop"] != "standing_action" {
		t.Errorf("task map entry missing: %v", cfg.Segmentation.Tasks)
	}
	if cfg.Runner.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Runner.Workers)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
dataset:
  compression: gzip
  points_per_cycle: 101
storage:
  bucket: lab-gait-data
  region: eu-west-1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err != nil {
		t.Fatalf("loadFile: %v", err)
	}

	cfg := m.Get()
	if cfg.Dataset.Compression != "gzip" {
		t.Errorf("compression = %q, want gzip", cfg.Dataset.Compression)
	}
	if cfg.Dataset.PointsPerCycle != 101 {
		t.Errorf("points per cycle = %d, want 101", cfg.Dataset.PointsPerCycle)
	}
	if cfg.Storage.Bucket != "lab-gait-data" {
		t.Errorf("bucket = %q", cfg.Storage.Bucket)
	}
}

func TestLoadFile_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("dataset: ["), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("GAITFLOW_COMPRESSION", "zstd")
	t.Setenv("GAITFLOW_WORKERS", "6")
	t.Setenv("GAITFLOW_REDIS_ADDR", "redis.lab:6379")

	m := NewManager()
	m.loadEnv()

	cfg := m.Get()
	if cfg.Dataset.Compression != "zstd" {
		t.Errorf("compression = %q, want zstd", cfg.Dataset.Compression)
	}
	if cfg.Runner.Workers != 6 {
		t.Errorf("workers = %d, want 6", cfg.Runner.Workers)
	}
	// A Redis address implies the Redis backend.
	if cfg.Checkpoint.Backend != "redis" {
		t.Errorf("backend = %q, want redis", cfg.Checkpoint.Backend)
	}
	if cfg.Checkpoint.RedisAddr != "redis.lab:6379" {
		t.Errorf("redis addr = %q", cfg.Checkpoint.RedisAddr)
	}
}
