// GaitFlow - Biomechanical gait cycle segmentation
// Segments locomotion trials into movement cycles and exports
// phase-normalized cycle tables in Apache Parquet format.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaitflow/gaitflow/internal/model"
	"github.com/gaitflow/gaitflow/pkg/checkpoint"
	"github.com/gaitflow/gaitflow/pkg/config"
	"github.com/gaitflow/gaitflow/pkg/dataset"
	"github.com/gaitflow/gaitflow/pkg/report"
	"github.com/gaitflow/gaitflow/pkg/runner"
	"github.com/gaitflow/gaitflow/pkg/segment"
	"github.com/gaitflow/gaitflow/pkg/telemetry"
	"github.com/gaitflow/gaitflow/pkg/validation"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile       string
	outputFile      string
	compressionFlag string
	workersFlag     int
	pointsFlag      int
	verbose         bool

	rangesFile   string
	skipValidate bool

	resumeFlag     bool
	checkpointFlag string

	xlsxFile string

	watchDir string
	outDir   string

	remoteName string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gaitflow",
	Short: "GaitFlow - Segment locomotion trials into movement cycles",
	Long: `GaitFlow segments biomechanical trials (walking, running, stairs,
jumps, squats, sit-stand transfers) into individual movement cycles and
exports phase-normalized cycle tables as Apache Parquet.

Trials are read from long-format Parquet tables with subject/task/side
identity columns, a time_s axis and one float64 column per signal.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var segmentCmd = &cobra.Command{
	Use:     "segment",
	Aliases: []string{"convert"},
	Short:   "Segment a trial table into movement cycles",
	Long: `Segment every trial in a Parquet trial table and write the resampled
cycles as a phase-indexed Parquet table.

The segmentation archetype is chosen per trial from its task name:
walking, running and stair tasks segment heel-strike to heel-strike;
jumps, squats and lunges segment between stable standing periods;
sit-stand transfers segment around the seat-off/seat-on force transition.

Examples:
  gaitflow segment -i trials.parquet -o cycles.parquet
  gaitflow segment -i trials.parquet -o cycles.parquet --workers 8 --points 150
  gaitflow segment -i trials.parquet -o cycles.parquet --resume
  gaitflow segment -i trials.parquet -o cycles.parquet --xlsx run_report.xlsx`,
	RunE: runSegment,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	segmentCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input Parquet trial table (required)")
	segmentCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output Parquet cycle table")
	segmentCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (none, snappy, gzip, zstd, lz4)")
	segmentCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent trials (0 = number of CPUs)")
	segmentCmd.Flags().IntVar(&pointsFlag, "points", 0, "Phase points per cycle (0 = config default)")
	segmentCmd.Flags().StringVar(&rangesFile, "ranges", "", "YAML plausibility ranges file")
	segmentCmd.Flags().BoolVar(&skipValidate, "no-validate", false, "Skip plausibility range checks")
	segmentCmd.Flags().BoolVar(&resumeFlag, "resume", false, "Resume the last incomplete run over this input")
	segmentCmd.Flags().StringVar(&checkpointFlag, "checkpoint", "", "Checkpoint backend (file, redis, none)")
	segmentCmd.Flags().StringVar(&xlsxFile, "xlsx", "", "Export the run report to an XLSX workbook")
	segmentCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdown, err := initTelemetry(cfg)
	if err != nil {
		return err
	}
	if shutdown != nil {
		defer shutdown(context.Background())
	}
	ctx, span := telemetry.StartSpan(ctx, "gaitflow.segment")
	defer span.End()

	trials, err := dataset.ReadTrialsFile(ctx, inputFile, cfg.Dataset.BatchSize)
	if err != nil {
		return fmt.Errorf("read trials: %w", err)
	}
	if verbose {
		fmt.Printf("Input:   %s (%d trials)\n", inputFile, len(trials))
		fmt.Printf("Workers: %d\n", workersOrAuto(cfg))
	}

	ranges, err := resolveRanges(cfg)
	if err != nil {
		return err
	}

	store, err := newCheckpointStore(cfg)
	if err != nil {
		return err
	}

	points := pointsFlag
	if points <= 0 {
		points = cfg.Dataset.PointsPerCycle
	}

	opts := runner.Options{
		Workers:        workersOrAuto(cfg),
		PointsPerCycle: points,
		Ranges:         ranges,
		Store:          store,
		InputPath:      inputFile,
		Progress:       cfg.Runner.Progress && !verbose,
	}
	if resumeFlag && store == nil {
		return fmt.Errorf("--resume requires a checkpoint backend")
	}

	r := runner.New(buildRouter(cfg), opts)
	rep, err := r.Run(ctx, trials)
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	if outputFile != "" {
		if err := writeCycles(ctx, cfg, rep, outputFile); err != nil {
			return err
		}
	}

	fmt.Print(report.Render(rep))

	if xlsxFile != "" {
		if err := report.ExportXLSX(rep, xlsxFile); err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if verbose {
			fmt.Printf("Report: %s\n", xlsxFile)
		}
	}

	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d trials failed", rep.Failed, rep.Trials)
	}
	return nil
}

// writeCycles writes every resampled cycle of the run to the output table.
func writeCycles(ctx context.Context, cfg *config.Config, rep *runner.Report, outPath string) error {
	channels := cycleChannels(rep)
	if len(channels) == 0 {
		return fmt.Errorf("no cycles to write")
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}

	compression := cfg.Dataset.Compression
	if compressionFlag != "" {
		compression = compressionFlag
	}

	w, err := dataset.NewCycleWriter(f, dataset.WriterConfig{
		Channels:    channels,
		Compression: compression,
		BatchSize:   cfg.Dataset.BatchSize,
	})
	if err != nil {
		f.Close()
		return err
	}

	for i := range rep.Results {
		for _, cycle := range rep.Results[i].Cycles {
			if err := w.WriteCycle(ctx, cycle); err != nil {
				w.Close()
				f.Close()
				return err
			}
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if verbose {
		fmt.Printf("Output:  %s (%d cycles, %d rows)\n", outPath, w.CyclesWritten(), w.RowsWritten())
	}
	return nil
}

// cycleChannels returns the sorted union of channel names across all cycles.
func cycleChannels(rep *runner.Report) []string {
	set := make(map[string]struct{})
	for i := range rep.Results {
		for _, cycle := range rep.Results[i].Cycles {
			for name := range cycle.Channels {
				set[name] = struct{}{}
			}
		}
	}
	channels := make([]string, 0, len(set))
	for name := range set {
		channels = append(channels, name)
	}
	sort.Strings(channels)
	return channels
}

// loadConfig loads the merged configuration hierarchy.
func loadConfig() (*config.Config, error) {
	mgr := config.Global()
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg := mgr.Get()
	if verbose {
		for _, p := range mgr.GetPaths() {
			fmt.Printf("Config:  %s\n", p)
		}
	}
	return cfg, nil
}

func workersOrAuto(cfg *config.Config) int {
	if workersFlag > 0 {
		return workersFlag
	}
	return cfg.Runner.Workers
}

// resolveRanges picks the plausibility ranges for this run: flag file,
// configured file, or built-in defaults. Nil disables range checking.
func resolveRanges(cfg *config.Config) (validation.Ranges, error) {
	if skipValidate || !cfg.Validation.Enabled {
		return nil, nil
	}
	path := rangesFile
	if path == "" {
		path = cfg.Validation.RangesFile
	}
	if path == "" {
		return validation.DefaultRanges(), nil
	}
	ranges, err := validation.LoadRanges(path)
	if err != nil {
		return nil, fmt.Errorf("load ranges: %w", err)
	}
	return ranges, nil
}

// newCheckpointStore builds the configured checkpoint backend. The
// "none" backend disables checkpointing.
func newCheckpointStore(cfg *config.Config) (checkpoint.Store, error) {
	backend := cfg.Checkpoint.Backend
	if checkpointFlag != "" {
		backend = checkpointFlag
	}

	switch backend {
	case "", "none":
		return nil, nil
	case "file":
		return checkpoint.NewFileStore(cfg.Checkpoint.Path)
	case "redis":
		rcfg := checkpoint.DefaultRedisConfig(cfg.Checkpoint.RedisAddr)
		if cfg.Checkpoint.RedisTTL > 0 {
			rcfg.TTL = cfg.Checkpoint.RedisTTL
		}
		return checkpoint.NewRedisStore(rcfg)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}

// buildRouter assembles the archetype router from configured channels,
// tuning overrides and task map extensions.
func buildRouter(cfg *config.Config) *segment.Router {
	seg := cfg.Segmentation

	gait := segment.DefaultGaitConfig(seg.GRFIpsiChannel)
	if t := seg.Gait; t != (config.GaitTuning{}) {
		if t.ContactThresholdN > 0 {
			gait.ContactThreshold.Newtons = t.ContactThresholdN
		}
		if t.ContactThresholdBW > 0 {
			gait.ContactThreshold.BodyWeight = t.ContactThresholdBW
		}
		if t.MinContactInterval > 0 {
			gait.MinContactInterval = t.MinContactInterval
		}
		if t.MinStrideDuration > 0 {
			gait.MinStrideDuration = t.MinStrideDuration
		}
		if t.MaxStrideDuration > 0 {
			gait.MaxStrideDuration = t.MaxStrideDuration
		}
		if t.IQRMultiplier > 0 {
			gait.Filter.IQRMultiplier = t.IQRMultiplier
		}
		gait.Filter.SkipFirst = t.SkipFirst
		gait.Filter.SkipLast = t.SkipLast
	}

	action := segment.DefaultStandingActionConfig(
		model.SegmentUnknown, seg.GRFIpsiChannel, seg.GRFContraChannel, seg.VelocityChannels)
	if t := seg.Action; t != (config.ActionTuning{}) {
		if t.StandingThresholdN > 0 {
			action.StandingThreshold.Newtons = t.StandingThresholdN
		}
		if t.StandingThresholdBW > 0 {
			action.StandingThreshold.BodyWeight = t.StandingThresholdBW
		}
		if t.VelocityThreshold > 0 {
			action.VelocityThreshold = t.VelocityThreshold
		}
		if t.MinStableDuration > 0 {
			action.MinStableDuration = t.MinStableDuration
		}
		if t.SmoothingWindow > 0 {
			action.SmoothingWindow = t.SmoothingWindow
		}
		if t.MinFlightDuration > 0 {
			action.MinFlightDuration = t.MinFlightDuration
		}
	}

	sitStand := segment.DefaultSitStandConfig(
		model.SegmentUnknown, seg.GRFIpsiChannel, seg.GRFContraChannel, seg.VelocityChannels)
	if t := seg.SitStand; t != (config.SitStandTuning{}) {
		if t.SittingThresholdN > 0 {
			sitStand.SittingThreshold.Newtons = t.SittingThresholdN
		}
		if t.SittingThresholdBW > 0 {
			sitStand.SittingThreshold.BodyWeight = t.SittingThresholdBW
		}
		if t.StandingThresholdN > 0 {
			sitStand.StandingThreshold.Newtons = t.StandingThresholdN
		}
		if t.StandingThresholdBW > 0 {
			sitStand.StandingThreshold.BodyWeight = t.StandingThresholdBW
		}
		if t.VelocityThreshold > 0 {
			sitStand.VelocityThreshold = t.VelocityThreshold
		}
		if t.MarginBefore > 0 {
			sitStand.MarginBefore = t.MarginBefore
		}
		if t.MarginAfter > 0 {
			sitStand.MarginAfter = t.MarginAfter
		}
	}

	tasks := segment.DefaultTaskMap()
	for task, name := range seg.Tasks {
		tasks[task] = segment.ParseArchetype(name)
	}

	return segment.NewRouter(tasks, gait, action, sitStand)
}

// initTelemetry starts the OTLP exporter when tracing is enabled.
func initTelemetry(cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.Telemetry.Enabled {
		return nil, nil
	}
	tcfg := telemetry.DefaultOTLPConfig("gaitflow")
	tcfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		tcfg.Endpoint = cfg.Telemetry.Endpoint
	}
	shutdown, err := telemetry.InitOTLP(tcfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return shutdown, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()
	return ctx, cancel
}

// outputPathFor derives a cycle table path from a trial table path.
func outputPathFor(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+".cycles.parquet")
}
