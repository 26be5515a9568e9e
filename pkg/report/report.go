// Package report renders segmentation run results for the terminal and
// exports them to spreadsheets.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaitflow/gaitflow/pkg/runner"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// Render formats a run report as a terminal summary.
func Render(report *runner.Report) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("  GAITFLOW") + mutedStyle.Render("  run "+report.RunID))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("  ─────────────────────────────────────"))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  %s %d trials, %d segments in %s\n",
		mutedStyle.Render("Processed:"), report.Trials-report.Skipped, report.Segments,
		report.Duration.Round(1e6)))
	if report.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("  %s %d already segmented\n", mutedStyle.Render("Skipped:"), report.Skipped))
	}
	if report.Failed > 0 {
		sb.WriteString("  " + accentStyle.Render(fmt.Sprintf("✗ %d trials failed", report.Failed)) + "\n")
	} else {
		sb.WriteString("  " + successStyle.Render("✓ all trials segmented") + "\n")
	}
	sb.WriteString(mutedStyle.Render("  ─────────────────────────────────────"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-8s %-18s %-6s %-10s %s\n",
		"subject", "task", "side", "archetype", "segments"))
	for i := range report.Results {
		res := &report.Results[i]
		line := fmt.Sprintf("  %-8s %-18s %-6s %-10s %d",
			res.Subject, res.Task, res.Side, res.Archetype, len(res.Boundaries))
		if res.Err != nil {
			line = accentStyle.Render(line + "  " + res.Err.Error())
		}
		sb.WriteString(line + "\n")

		for _, d := range res.Diagnostics {
			sb.WriteString(mutedStyle.Render("           "+d) + "\n")
		}
		for _, f := range res.Findings {
			sb.WriteString(accentStyle.Render(fmt.Sprintf("           %s: %s", f.Channel, f.Message)) + "\n")
		}
	}

	return sb.String()
}
