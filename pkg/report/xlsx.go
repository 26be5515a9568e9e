package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/gaitflow/gaitflow/pkg/runner"
)

// ExportXLSX writes a run report as a spreadsheet with a segments sheet and
// a findings sheet, which is the exchange format movement labs tend to ask
// for.
func ExportXLSX(report *runner.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const segmentsSheet = "Segments"
	if err := f.SetSheetName(f.GetSheetName(0), segmentsSheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	header := []any{"subject", "task", "side", "archetype", "type",
		"start_index", "end_index", "start_time_s", "end_time_s", "duration_s"}
	if err := f.SetSheetRow(segmentsSheet, "A1", &header); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}

	row := 2
	for i := range report.Results {
		res := &report.Results[i]
		for _, b := range res.Boundaries {
			cells := []any{
				res.Subject, res.Task, res.Side, res.Archetype.String(), b.Type.String(),
				b.StartIndex, b.EndIndex, b.StartTime, b.EndTime, b.Duration,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(segmentsSheet, cell, &cells); err != nil {
				return fmt.Errorf("report: write row %d: %w", row, err)
			}
			row++
		}
	}

	const findingsSheet = "Findings"
	if _, err := f.NewSheet(findingsSheet); err != nil {
		return fmt.Errorf("report: create findings sheet: %w", err)
	}
	findingsHeader := []any{"subject", "task", "channel", "severity", "message"}
	if err := f.SetSheetRow(findingsSheet, "A1", &findingsHeader); err != nil {
		return err
	}

	row = 2
	for i := range report.Results {
		res := &report.Results[i]
		for _, finding := range res.Findings {
			cells := []any{finding.Subject, finding.Task, finding.Channel,
				finding.Severity.String(), finding.Message}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(findingsSheet, cell, &cells); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
