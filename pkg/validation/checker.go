package validation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/gaitflow/gaitflow/pkg/dataset"
)

// ColumnStats holds per-channel statistics of a written trial table.
type ColumnStats struct {
	Name      string
	RowCount  int64
	NullCount int64
	Min       float64
	Max       float64
	NullPct   float64
}

// TableReport summarizes a trial table on disk.
type TableReport struct {
	Path        string
	RowCount    int64
	TrialCount  int64
	Columns     []ColumnStats
	Findings    []Finding
	ComputeTime time.Duration
}

// Checker verifies written Parquet trial tables with DuckDB, which scans
// them without loading the table through Arrow a second time.
type Checker struct {
	db *sql.DB
}

// NewChecker opens an in-memory DuckDB instance.
func NewChecker() (*Checker, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	db.Exec("SET threads = 4")
	return &Checker{db: db}, nil
}

// Close releases the DuckDB instance.
func (c *Checker) Close() error {
	return c.db.Close()
}

// CheckTable analyzes a Parquet trial table and flags channels whose
// observed extent leaves the configured range.
func (c *Checker) CheckTable(ctx context.Context, path string, ranges Ranges) (*TableReport, error) {
	start := time.Now()
	report := &TableReport{Path: path}

	err := c.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM read_parquet('%s')`, escapePath(path))).Scan(&report.RowCount)
	if err != nil {
		return nil, fmt.Errorf("validation: row count: %w", err)
	}

	err = c.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM (SELECT DISTINCT %s, %s, %s FROM read_parquet('%s'))`,
		dataset.ColSubject, dataset.ColTask, dataset.ColSide, escapePath(path))).Scan(&report.TrialCount)
	if err != nil {
		return nil, fmt.Errorf("validation: trial count: %w", err)
	}

	channels, err := c.channelColumns(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, col := range channels {
		stats, err := c.analyzeColumn(ctx, path, col)
		if err != nil {
			continue
		}
		report.Columns = append(report.Columns, *stats)

		r, ok := ranges[col]
		if !ok {
			continue
		}
		if stats.NullCount < stats.RowCount && (stats.Min < r.Min || stats.Max > r.Max) {
			report.Findings = append(report.Findings, Finding{
				Channel:  col,
				Severity: SeverityError,
				Message: fmt.Sprintf("observed extent [%g, %g] leaves configured range [%g, %g]",
					stats.Min, stats.Max, r.Min, r.Max),
			})
		}
	}

	// Time must never run backwards within a trial.
	var disordered int64
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT %[1]s - LAG(%[1]s) OVER (
				PARTITION BY %[2]s, %[3]s, %[4]s ORDER BY %[1]s
			) AS dt
			FROM read_parquet('%[5]s')
		) WHERE dt <= 0
	`, dataset.ColTime, dataset.ColSubject, dataset.ColTask, dataset.ColSide, escapePath(path))).Scan(&disordered)
	if err == nil && disordered > 0 {
		report.Findings = append(report.Findings, Finding{
			Channel:  dataset.ColTime,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d non-increasing time steps", disordered),
		})
	}

	report.ComputeTime = time.Since(start)
	return report, nil
}

// channelColumns lists the float64 columns of the table, excluding the
// time axis.
func (c *Checker) channelColumns(ctx context.Context, path string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		`DESCRIBE SELECT * FROM read_parquet('%s')`, escapePath(path)))
	if err != nil {
		return nil, fmt.Errorf("validation: describe table: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var name, dtype string
		var null, key, dflt, extra any
		if err := rows.Scan(&name, &dtype, &null, &key, &dflt, &extra); err != nil {
			continue
		}
		if name == dataset.ColTime || !strings.Contains(strings.ToUpper(dtype), "DOUBLE") {
			continue
		}
		channels = append(channels, name)
	}
	return channels, rows.Err()
}

func (c *Checker) analyzeColumn(ctx context.Context, path, column string) (*ColumnStats, error) {
	stats := &ColumnStats{Name: column}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) - COUNT("%s") AS nulls,
			COALESCE(MIN("%s"), 0) AS min_value,
			COALESCE(MAX("%s"), 0) AS max_value
		FROM read_parquet('%s')
	`, column, column, column, escapePath(path))

	err := c.db.QueryRowContext(ctx, query).Scan(
		&stats.RowCount, &stats.NullCount, &stats.Min, &stats.Max)
	if err != nil {
		return nil, err
	}
	if stats.RowCount > 0 {
		stats.NullPct = float64(stats.NullCount) / float64(stats.RowCount) * 100
	}
	return stats, nil
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
