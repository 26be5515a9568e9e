// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all GaitFlow configuration.
type Config struct {
	Version int `yaml:"version"`

	Dataset      DatasetConfig      `yaml:"dataset"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Runner       RunnerConfig       `yaml:"runner"`
	Validation   ValidationConfig   `yaml:"validation"`
	Checkpoint   CheckpointConfig   `yaml:"checkpoint"`
	Watch        WatchConfig        `yaml:"watch"`
	Storage      StorageConfig      `yaml:"storage"`
	Report       ReportConfig       `yaml:"report"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// DatasetConfig controls parquet reading and writing.
type DatasetConfig struct {
	Compression   string `yaml:"compression"` // snappy | zstd | gzip | none
	BatchSize     int    `yaml:"batch_size"`
	PointsPerCycle int   `yaml:"points_per_cycle"` // resampled samples per segment
	CacheDir      string `yaml:"cache_dir"`
}

// SegmentationConfig holds the per-archetype tuning knobs. Zero values
// fall back to the built-in archetype defaults.
type SegmentationConfig struct {
	GRFIpsiChannel   string   `yaml:"grf_ipsi_channel"`
	GRFContraChannel string   `yaml:"grf_contra_channel"`
	VelocityChannels []string `yaml:"velocity_channels"`

	Gait     GaitTuning     `yaml:"gait"`
	Action   ActionTuning   `yaml:"action"`
	SitStand SitStandTuning `yaml:"sit_stand"`

	// Tasks overrides or extends the default task-to-archetype map.
	Tasks map[string]string `yaml:"tasks"`
}

// GaitTuning overrides gait segmentation defaults.
type GaitTuning struct {
	ContactThresholdN  float64 `yaml:"contact_threshold_n"`
	ContactThresholdBW float64 `yaml:"contact_threshold_bw"`
	MinContactInterval float64 `yaml:"min_contact_interval"`
	MinStrideDuration  float64 `yaml:"min_stride_duration"`
	MaxStrideDuration  float64 `yaml:"max_stride_duration"`
	IQRMultiplier      float64 `yaml:"iqr_multiplier"`
	SkipFirst          int     `yaml:"skip_first"`
	SkipLast           int     `yaml:"skip_last"`
}

// ActionTuning overrides standing-action segmentation defaults.
type ActionTuning struct {
	StandingThresholdN  float64 `yaml:"standing_threshold_n"`
	StandingThresholdBW float64 `yaml:"standing_threshold_bw"`
	VelocityThreshold   float64 `yaml:"velocity_threshold"`
	MinStableDuration   float64 `yaml:"min_stable_duration"`
	SmoothingWindow     float64 `yaml:"smoothing_window"`
	MinFlightDuration   float64 `yaml:"min_flight_duration"`
}

// SitStandTuning overrides transfer segmentation defaults.
type SitStandTuning struct {
	SittingThresholdN   float64 `yaml:"sitting_threshold_n"`
	SittingThresholdBW  float64 `yaml:"sitting_threshold_bw"`
	StandingThresholdN  float64 `yaml:"standing_threshold_n"`
	StandingThresholdBW float64 `yaml:"standing_threshold_bw"`
	VelocityThreshold   float64 `yaml:"velocity_threshold"`
	MarginBefore        float64 `yaml:"margin_before"`
	MarginAfter         float64 `yaml:"margin_after"`
}

// RunnerConfig controls parallel trial processing.
type RunnerConfig struct {
	Workers  int  `yaml:"workers"` // 0 = NumCPU
	Progress bool `yaml:"progress"`
}

// ValidationConfig for output range checking.
type ValidationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RangesFile string `yaml:"ranges_file"`
	UseDuckDB  bool   `yaml:"use_duckdb"`
}

// CheckpointConfig for resumable batch runs.
type CheckpointConfig struct {
	Backend   string        `yaml:"backend"` // file | redis
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisTTL  time.Duration `yaml:"redis_ttl"`
}

// WatchConfig for the directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Patterns []string      `yaml:"patterns"`
}

// StorageConfig for remote dataset storage.
type StorageConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // for S3-compatible stores
	Prefix   string `yaml:"prefix"`
}

// ReportConfig for run reporting.
type ReportConfig struct {
	Format    string `yaml:"format"` // table | xlsx
	OutputDir string `yaml:"output_dir"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	gaitflowDir := filepath.Join(homeDir, ".gaitflow")

	return &Config{
		Version: 1,
		Dataset: DatasetConfig{
			Compression:    "snappy",
			BatchSize:      8192,
			PointsPerCycle: 150,
			CacheDir:       filepath.Join(gaitflowDir, "cache"),
		},
		Segmentation: SegmentationConfig{
			GRFIpsiChannel:   "grf_vertical_ipsi",
			GRFContraChannel: "grf_vertical_contra",
			VelocityChannels: []string{"knee_velocity_ipsi", "hip_velocity_ipsi"},
		},
		Runner: RunnerConfig{
			Workers:  0, // auto
			Progress: true,
		},
		Validation: ValidationConfig{
			Enabled: true,
		},
		Checkpoint: CheckpointConfig{
			Backend:  "file",
			Path:     filepath.Join(gaitflowDir, "checkpoints"),
			RedisTTL: 24 * time.Hour,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Patterns: []string{"*.parquet", "*.csv"},
		},
		Report: ReportConfig{
			Format:    "table",
			OutputDir: ".",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, but surface errors for existing files
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/gaitflow/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".gaitflow", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".gaitflow.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Dataset
	if src.Dataset.Compression != "" {
		m.config.Dataset.Compression = src.Dataset.Compression
	}
	if src.Dataset.BatchSize != 0 {
		m.config.Dataset.BatchSize = src.Dataset.BatchSize
	}
	if src.Dataset.PointsPerCycle != 0 {
		m.config.Dataset.PointsPerCycle = src.Dataset.PointsPerCycle
	}
	if src.Dataset.CacheDir != "" {
		m.config.Dataset.CacheDir = src.Dataset.CacheDir
	}

	// Segmentation
	if src.Segmentation.GRFIpsiChannel != "" {
		m.config.Segmentation.GRFIpsiChannel = src.Segmentation.GRFIpsiChannel
	}
	if src.Segmentation.GRFContraChannel != "" {
		m.config.Segmentation.GRFContraChannel = src.Segmentation.GRFContraChannel
	}
	if len(src.Segmentation.VelocityChannels) > 0 {
		m.config.Segmentation.VelocityChannels = src.Segmentation.VelocityChannels
	}
	if src.Segmentation.Gait != (GaitTuning{}) {
		m.config.Segmentation.Gait = src.Segmentation.Gait
	}
	if src.Segmentation.Action != (ActionTuning{}) {
		m.config.Segmentation.Action = src.Segmentation.Action
	}
	if src.Segmentation.SitStand != (SitStandTuning{}) {
		m.config.Segmentation.SitStand = src.Segmentation.SitStand
	}
	if len(src.Segmentation.Tasks) > 0 {
		if m.config.Segmentation.Tasks == nil {
			m.config.Segmentation.Tasks = map[string]string{}
		}
		for task, archetype := range src.Segmentation.Tasks {
			m.config.Segmentation.Tasks[task] = archetype
		}
	}

	// Runner
	if src.Runner.Workers != 0 {
		m.config.Runner.Workers = src.Runner.Workers
	}

	// Validation
	if src.Validation.RangesFile != "" {
		m.config.Validation.RangesFile = src.Validation.RangesFile
	}
	if src.Validation.UseDuckDB {
		m.config.Validation.UseDuckDB = true
	}

	// Checkpoint
	if src.Checkpoint.Backend != "" {
		m.config.Checkpoint.Backend = src.Checkpoint.Backend
	}
	if src.Checkpoint.Path != "" {
		m.config.Checkpoint.Path = src.Checkpoint.Path
	}
	if src.Checkpoint.RedisAddr != "" {
		m.config.Checkpoint.RedisAddr = src.Checkpoint.RedisAddr
	}
	if src.Checkpoint.RedisTTL != 0 {
		m.config.Checkpoint.RedisTTL = src.Checkpoint.RedisTTL
	}

	// Watch
	if src.Watch.Debounce != 0 {
		m.config.Watch.Debounce = src.Watch.Debounce
	}
	if len(src.Watch.Patterns) > 0 {
		m.config.Watch.Patterns = src.Watch.Patterns
	}

	// Storage
	if src.Storage.Bucket != "" {
		m.config.Storage.Bucket = src.Storage.Bucket
	}
	if src.Storage.Region != "" {
		m.config.Storage.Region = src.Storage.Region
	}
	if src.Storage.Endpoint != "" {
		m.config.Storage.Endpoint = src.Storage.Endpoint
	}
	if src.Storage.Prefix != "" {
		m.config.Storage.Prefix = src.Storage.Prefix
	}

	// Report
	if src.Report.Format != "" {
		m.config.Report.Format = src.Report.Format
	}
	if src.Report.OutputDir != "" {
		m.config.Report.OutputDir = src.Report.OutputDir
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("GAITFLOW_COMPRESSION"); v != "" {
		m.config.Dataset.Compression = v
	}

	if v := os.Getenv("GAITFLOW_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			m.config.Runner.Workers = workers
		}
	}

	if v := os.Getenv("GAITFLOW_BUCKET"); v != "" {
		m.config.Storage.Bucket = v
	}

	if v := os.Getenv("GAITFLOW_REDIS_ADDR"); v != "" {
		m.config.Checkpoint.RedisAddr = v
		m.config.Checkpoint.Backend = "redis"
	}

	if v := os.Getenv("GAITFLOW_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".gaitflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
