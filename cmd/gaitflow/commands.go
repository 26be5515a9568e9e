package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaitflow/gaitflow/pkg/config"
	"github.com/gaitflow/gaitflow/pkg/dataset"
	"github.com/gaitflow/gaitflow/pkg/report"
	"github.com/gaitflow/gaitflow/pkg/runner"
	"github.com/gaitflow/gaitflow/pkg/storage/s3"
	"github.com/gaitflow/gaitflow/pkg/validation"
	"github.com/gaitflow/gaitflow/pkg/watch"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a Parquet trial or cycle table",
	Long: `Scan a written Parquet table with DuckDB and check row counts,
null fractions, per-channel extents against plausibility ranges, and
time-axis monotonicity.

Examples:
  gaitflow validate -i trials.parquet
  gaitflow validate -i cycles.parquet --ranges lab_ranges.yaml`,
	RunE: runValidate,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and segment trial tables as they appear",
	Long: `Monitor a drop directory for new or changed trial tables and
segment each one into a cycle table in the output directory.

Examples:
  gaitflow watch -d ./incoming -o ./cycles`,
	RunE: runWatch,
}

var pushCmd = &cobra.Command{
	Use:   "push [local-file]",
	Short: "Upload a dataset file to the configured bucket",
	RunE:  runPush,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [remote-name]",
	Short: "Download a dataset file from the configured bucket",
	RunE:  runFetch,
}

var lsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List dataset files in the configured bucket",
	RunE:  runLs,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the user config file",
	RunE:  runConfigInit,
}

func init() {
	validateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Parquet table to validate (required)")
	validateCmd.Flags().StringVar(&rangesFile, "ranges", "", "YAML plausibility ranges file")
	validateCmd.MarkFlagRequired("input")

	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "Directory to watch (required)")
	watchCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for cycle tables")
	watchCmd.MarkFlagRequired("dir")

	pushCmd.Flags().StringVar(&remoteName, "name", "", "Remote name (defaults to the file's base name)")
	fetchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Local path (defaults to the remote name)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(configCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ranges := validation.DefaultRanges()
	path := rangesFile
	if path == "" {
		path = cfg.Validation.RangesFile
	}
	if path != "" {
		ranges, err = validation.LoadRanges(path)
		if err != nil {
			return fmt.Errorf("load ranges: %w", err)
		}
	}

	checker, err := validation.NewChecker()
	if err != nil {
		return fmt.Errorf("open checker: %w", err)
	}
	defer checker.Close()

	ctx, cancel := signalContext()
	defer cancel()

	tr, err := checker.CheckTable(ctx, inputFile, ranges)
	if err != nil {
		return fmt.Errorf("check table: %w", err)
	}

	fmt.Print(report.RenderTable(tr))

	for _, f := range tr.Findings {
		if f.Severity == validation.SeverityError {
			return fmt.Errorf("validation failed with %d findings", len(tr.Findings))
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	w, err := watch.NewWatcher(cfg.Watch.Patterns, cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	router := buildRouter(cfg)
	ranges, err := resolveRanges(cfg)
	if err != nil {
		return err
	}

	w.OnChange = func(path string) error {
		trials, err := dataset.ReadTrialsFile(ctx, path, cfg.Dataset.BatchSize)
		if err != nil {
			return err
		}

		r := runner.New(router, runner.Options{
			Workers:        workersOrAuto(cfg),
			PointsPerCycle: cfg.Dataset.PointsPerCycle,
			Ranges:         ranges,
		})
		rep, err := r.Run(ctx, trials)
		if err != nil {
			return err
		}

		out := outputPathFor(outDir, path)
		if err := writeCycles(ctx, cfg, rep, out); err != nil {
			return err
		}

		fmt.Printf("%s -> %s (%d segments)\n", path, out, rep.Segments)
		return nil
	}
	w.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "watch %s: %v\n", path, err)
	}

	if err := w.WatchDir(watchDir); err != nil {
		return err
	}

	fmt.Printf("Watching %s (patterns %v)\n", watchDir, cfg.Watch.Patterns)
	return w.Run(ctx)
}

func runPush(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("local file required")
	}
	localPath := args[0]
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", localPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return err
	}

	name := remoteName
	if name == "" {
		name = baseName(localPath)
	}

	info, err := client.Push(ctx, localPath, name)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %s -> s3://%s/%s (%s)\n", localPath, cfg.Storage.Bucket, info.Key, humanSize(info.Size))
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("remote name required")
	}
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return err
	}

	localPath := outputFile
	if localPath == "" {
		localPath = baseName(name)
	}

	if err := client.Fetch(ctx, name, localPath); err != nil {
		return err
	}
	fmt.Printf("Fetched s3://%s/%s -> %s\n", cfg.Storage.Bucket, client.Key(name), localPath)
	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return err
	}

	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}

	infos, err := client.List(ctx, pattern)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No objects found.")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-60s %10s  %s\n", info.Key, humanSize(info.Size),
			info.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	mgr := config.Global()
	if err := mgr.Save(); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	fmt.Println("Wrote default configuration to ~/.gaitflow/config.yaml")
	return nil
}

func newStorageClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("no storage bucket configured (set storage.bucket or GAITFLOW_BUCKET)")
	}
	scfg := s3.DefaultConfig(cfg.Storage.Bucket, cfg.Storage.Region)
	scfg.Prefix = cfg.Storage.Prefix
	if cfg.Storage.Endpoint != "" {
		scfg.Endpoint = cfg.Storage.Endpoint
		scfg.UsePathStyle = true
	}
	return s3.NewClient(ctx, scfg)
}

// baseName returns the final path element of a local or remote path.
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == os.PathSeparator {
			return path[i+1:]
		}
	}
	return path
}

// humanSize formats a byte size in human-readable form.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
