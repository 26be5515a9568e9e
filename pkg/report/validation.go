package report

import (
	"fmt"
	"strings"

	"github.com/gaitflow/gaitflow/pkg/validation"
)

// RenderTable formats a table validation report as a terminal summary.
func RenderTable(tr *validation.TableReport) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("  GAITFLOW") + mutedStyle.Render("  validate "+tr.Path))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("  ─────────────────────────────────────"))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  %s %d rows across %d trials (%s)\n",
		mutedStyle.Render("Scanned:"), tr.RowCount, tr.TrialCount, tr.ComputeTime.Round(1e6)))

	if len(tr.Findings) == 0 {
		sb.WriteString("  " + successStyle.Render("✓ no findings") + "\n")
	} else {
		sb.WriteString("  " + accentStyle.Render(fmt.Sprintf("✗ %d findings", len(tr.Findings))) + "\n")
	}
	sb.WriteString(mutedStyle.Render("  ─────────────────────────────────────"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-28s %10s %8s %12s %12s\n",
		"channel", "rows", "null %", "min", "max"))
	for _, col := range tr.Columns {
		sb.WriteString(fmt.Sprintf("  %-28s %10d %7.1f%% %12.4g %12.4g\n",
			col.Name, col.RowCount, col.NullPct, col.Min, col.Max))
	}

	for _, f := range tr.Findings {
		sb.WriteString(accentStyle.Render(fmt.Sprintf("  %s %s: %s", f.Severity, f.Channel, f.Message)) + "\n")
	}

	return sb.String()
}
