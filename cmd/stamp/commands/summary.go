// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/stamp/lib/runner"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	createdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	reusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// statusText is the one-word outcome shown for a result.
func statusText(result runner.Result, dryRun bool) string {
	switch {
	case result.Error != "":
		return "failed"
	case dryRun && result.IsNew:
		return "would publish"
	case dryRun:
		return "exists"
	case result.IsNew:
		return "published"
	case result.Conflict:
		return "reused (concurrent)"
	default:
		return "reused"
	}
}

func cleanupText(cleanup *runner.Cleanup, dryRun bool) string {
	switch {
	case cleanup == nil:
		return "-"
	case cleanup.Skipped != "":
		return "skipped"
	case dryRun:
		return fmt.Sprintf("would delete %d", len(cleanup.Planned))
	case len(cleanup.Failed) > 0:
		return fmt.Sprintf("deleted %d, %d failed", len(cleanup.Deleted), len(cleanup.Failed))
	default:
		return fmt.Sprintf("deleted %d", len(cleanup.Deleted))
	}
}

func statusStyle(result runner.Result) lipgloss.Style {
	switch {
	case result.Error != "":
		return failedStyle
	case result.IsNew:
		return createdStyle
	default:
		return reusedStyle
	}
}

// renderReport writes the run as an aligned table. Colors are applied
// only when lipgloss detects a color-capable terminal.
func renderReport(w io.Writer, report *runner.Report) {
	rows := [][]string{{"PACKAGE", "VERSION", "TAG", "STATUS", "CLEANUP"}}
	for _, result := range report.Results {
		name := result.Name
		if name == "" {
			name = result.Dir
		}
		rows = append(rows, []string{
			name,
			orDash(result.Version),
			orDash(result.Tag),
			statusText(result, report.DryRun),
			cleanupText(result.Cleanup, report.DryRun),
		})
	}

	// Padded by hand rather than with lipgloss/table: the output must
	// stay a borderless, grep-friendly table when piped into CI logs.
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for column, cell := range row {
			widths[column] = max(widths[column], lipgloss.Width(cell))
		}
	}

	for index, row := range rows {
		var line strings.Builder
		for column, cell := range row {
			style := lipgloss.NewStyle()
			switch {
			case index == 0:
				style = headerStyle
			case column == 3:
				style = statusStyle(report.Results[index-1])
			}
			if column < len(row)-1 {
				style = style.Width(widths[column] + 2)
			}
			line.WriteString(style.Render(cell))
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}

	for _, result := range report.Results {
		if result.Error != "" {
			fmt.Fprintf(w, "\n%s %s: %s\n", failedStyle.Render("error"), orDash(result.Name), result.Error)
		}
		if result.Cleanup != nil && result.Cleanup.Skipped != "" {
			fmt.Fprintf(w, "\n%s %s: cleanup skipped: %s\n", dimStyle.Render("warning"), result.Name, result.Cleanup.Skipped)
		}
	}

	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "\nbranch %s: %d new, %d reused, %d failed%s\n",
		report.Branch, report.Created(), len(report.Results)-report.Created()-report.Failed(), report.Failed(), mode)
}

// markdownSummary renders the run as a GitHub-flavored markdown table
// for $GITHUB_STEP_SUMMARY.
func markdownSummary(report *runner.Report) string {
	var builder strings.Builder
	title := "Preview versions"
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&builder, "### %s for `%s`\n\n", title, report.Branch)
	builder.WriteString("| Package | Version | Tag | Status | Cleanup |\n")
	builder.WriteString("|---|---|---|---|---|\n")
	for _, result := range report.Results {
		name := result.Name
		if name == "" {
			name = result.Dir
		}
		status := statusText(result, report.DryRun)
		if result.Error != "" {
			status += ": " + result.Error
		}
		fmt.Fprintf(&builder, "| %s | %s | %s | %s | %s |\n",
			markdownCode(name),
			markdownCode(result.Version),
			markdownCode(result.Tag),
			markdownCell(status),
			markdownCell(cleanupText(result.Cleanup, report.DryRun)),
		)
	}
	builder.WriteString("\n")
	return builder.String()
}

func appendSummary(path string, report *runner.Report) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(markdownSummary(report)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func markdownCode(value string) string {
	if value == "" {
		return "-"
	}
	return "`" + markdownCell(value) + "`"
}

func markdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", `\|`)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
