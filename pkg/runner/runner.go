// Package runner executes segmentation over batches of trials with a
// bounded worker pool, optional resume via checkpoints and per-trial
// diagnostics collection.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/gaitflow/gaitflow/internal/model"
	"github.com/gaitflow/gaitflow/pkg/checkpoint"
	"github.com/gaitflow/gaitflow/pkg/dataset"
	"github.com/gaitflow/gaitflow/pkg/segment"
	"github.com/gaitflow/gaitflow/pkg/validation"
)

// Options configures a batch run.
type Options struct {
	// Workers bounds concurrent trials; 0 means NumCPU.
	Workers int

	// PointsPerCycle enables cycle resampling when > 0.
	PointsPerCycle int

	// Ranges enables plausibility checking when non-nil.
	Ranges validation.Ranges

	// Store and RunID enable checkpointed, resumable runs.
	Store     checkpoint.Store
	RunID     string
	InputPath string

	// Progress renders a terminal progress bar.
	Progress bool
}

// TrialResult is the outcome of segmenting one trial.
type TrialResult struct {
	Subject string
	Task    string
	Side    string

	Archetype   segment.Archetype
	Boundaries  []model.SegmentBoundary
	Cycles      []*dataset.Cycle
	Diagnostics []string
	Findings    []validation.Finding

	// Err is set when the trial failed outright (configuration errors);
	// soft skips land in Diagnostics instead.
	Err error
}

// Key returns the checkpoint key of the trial.
func (r *TrialResult) Key() string {
	return checkpoint.TrialKey(r.Subject, r.Task, r.Side)
}

// Report aggregates a whole run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	Trials   int
	Skipped  int // already done per checkpoint
	Failed   int
	Segments int

	Results []TrialResult
}

// Runner segments batches of trials through an archetype router.
type Runner struct {
	router *segment.Router
	opts   Options
}

// New builds a runner. A nil router is rejected at run time, not here, so
// construction stays infallible for embedding.
func New(router *segment.Router, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Runner{router: router, opts: opts}
}

// Run segments every trial, fanning out across the worker pool. Trial
// order in the report matches input order regardless of completion order.
func (r *Runner) Run(ctx context.Context, trials []*model.Trial) (*Report, error) {
	if r.router == nil {
		return nil, fmt.Errorf("runner: no router configured")
	}

	report := &Report{
		RunID:   r.opts.RunID,
		Started: time.Now(),
		Trials:  len(trials),
		Results: make([]TrialResult, len(trials)),
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	cp, err := r.resumeOrCreate(ctx, report.RunID, len(trials))
	if err != nil {
		return nil, err
	}
	if cp != nil {
		// A resumed run keeps its original ID.
		report.RunID = cp.RunID
	}

	var bar *progressbar.ProgressBar
	if r.opts.Progress {
		bar = progressbar.NewOptions(len(trials),
			progressbar.OptionSetDescription("segmenting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, trial := range trials {
		i, trial := i, trial

		key := checkpoint.TrialKey(trial.Subject, trial.Task, trial.Side)
		if cp != nil && cp.IsDone(key) {
			mu.Lock()
			report.Results[i] = TrialResult{
				Subject: trial.Subject, Task: trial.Task, Side: trial.Side,
				Diagnostics: []string{"skipped: already segmented in this run"},
			}
			report.Skipped++
			mu.Unlock()
			if bar != nil {
				bar.Add(1)
			}
			continue
		}

		g.Go(func() error {
			result := r.segmentTrial(trial)

			mu.Lock()
			report.Results[i] = result
			if result.Err != nil {
				report.Failed++
			}
			report.Segments += len(result.Boundaries)
			mu.Unlock()

			if cp != nil && result.Err == nil {
				cp.MarkDone(key)
				if err := r.opts.Store.Save(ctx, cp); err != nil {
					return fmt.Errorf("runner: save checkpoint: %w", err)
				}
			}
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	if cp != nil {
		cp.Complete()
		if err := r.opts.Store.Save(ctx, cp); err != nil {
			return report, fmt.Errorf("runner: finalize checkpoint: %w", err)
		}
	}

	report.Duration = time.Since(report.Started)
	return report, nil
}

// segmentTrial runs one trial end to end: route, segment, resample,
// validate.
func (r *Runner) segmentTrial(trial *model.Trial) TrialResult {
	result := TrialResult{
		Subject: trial.Subject,
		Task:    trial.Task,
		Side:    trial.Side,
	}

	archetype, seg, err := r.router.Resolve(trial.Task)
	if err != nil {
		result.Err = err
		return result
	}
	result.Archetype = archetype

	res, err := seg.Segment(trial)
	if err != nil {
		result.Err = err
		return result
	}
	result.Boundaries = res.Boundaries
	result.Diagnostics = res.Diagnostics

	if r.opts.PointsPerCycle > 0 {
		for _, b := range res.Boundaries {
			cycle, err := dataset.ResampleSegment(trial, b, r.opts.PointsPerCycle)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics,
					fmt.Sprintf("resample [%d, %d]: %v", b.StartIndex, b.EndIndex, err))
				continue
			}
			result.Cycles = append(result.Cycles, cycle)
		}
	}

	if r.opts.Ranges != nil {
		result.Findings = validation.CheckTrial(trial, r.opts.Ranges)
	}
	return result
}

// resumeOrCreate loads the unfinished checkpoint for the input, if any,
// else creates a fresh one. Without a store it returns nil.
func (r *Runner) resumeOrCreate(ctx context.Context, runID string, trialTotal int) (*checkpoint.Checkpoint, error) {
	if r.opts.Store == nil {
		return nil, nil
	}

	if r.opts.InputPath != "" {
		cp, err := r.opts.Store.FindIncomplete(ctx, r.opts.InputPath)
		if err == nil {
			return cp, nil
		}
	}

	cp := checkpoint.New(runID, r.opts.InputPath, "", trialTotal)
	if err := r.opts.Store.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("runner: create checkpoint: %w", err)
	}
	return cp, nil
}
