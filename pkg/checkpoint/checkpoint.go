// Package checkpoint provides resume capability for interrupted batch
// segmentation runs.
package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Checkpoint tracks which trials of a batch run have been segmented, so an
// interrupted run can resume without redoing finished trials.
type Checkpoint struct {
	// Identification
	RunID      string `json:"run_id"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`

	// Done maps trial keys (see TrialKey) to completion.
	Done map[string]bool `json:"done"`

	// State
	Phase       string     `json:"phase"` // running, complete
	TrialTotal  int        `json:"trial_total"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	mu sync.Mutex
}

// PhaseRunning and PhaseComplete are the two checkpoint phases.
const (
	PhaseRunning  = "running"
	PhaseComplete = "complete"
)

// New creates a checkpoint for a fresh run.
func New(runID, inputPath, outputPath string, trialTotal int) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		RunID:      runID,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Done:       make(map[string]bool),
		Phase:      PhaseRunning,
		TrialTotal: trialTotal,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// TrialKey builds the stable key identifying one trial within a run.
func TrialKey(subject, task, side string) string {
	return fmt.Sprintf("%s/%s/%s", subject, task, side)
}

// MarkDone records a trial as segmented.
func (c *Checkpoint) MarkDone(trialKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Done[trialKey] = true
	c.UpdatedAt = time.Now()
}

// IsDone reports whether a trial was already segmented.
func (c *Checkpoint) IsDone(trialKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Done[trialKey]
}

// Complete marks the run finished.
func (c *Checkpoint) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Phase = PhaseComplete
	now := time.Now()
	c.CompletedAt = &now
	c.UpdatedAt = now
}

// Progress returns completion as a percentage.
func (c *Checkpoint) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.TrialTotal == 0 {
		return 0
	}
	return float64(len(c.Done)) * 100 / float64(c.TrialTotal)
}

// Duration returns how long the run has been going.
func (c *Checkpoint) Duration() time.Duration {
	if c.CompletedAt != nil {
		return c.CompletedAt.Sub(c.StartedAt)
	}
	return time.Since(c.StartedAt)
}

// Store persists checkpoints. Implementations: FileStore, RedisStore.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, runID string) (*Checkpoint, error)
	Delete(ctx context.Context, runID string) error

	// FindIncomplete returns the most recent unfinished checkpoint for an
	// input path, or os.ErrNotExist.
	FindIncomplete(ctx context.Context, inputPath string) (*Checkpoint, error)
}
