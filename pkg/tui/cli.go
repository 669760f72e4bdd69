// Package tui renders reports and progress for interactive terminals.
// Simple streaming output, no full-screen UI.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/logflow/tablelog/pkg/report"
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
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Width(52)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

// RenderReport renders r as a bordered block of labelled statistics.
func RenderReport(r *report.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TABLELOG REPORT"))
	if r.Meta.Source != "" {
		b.WriteString(mutedStyle.Render("  " + r.Meta.Source))
	}
	b.WriteString("\n\n")

	for i, e := range r.Entries {
		value := titleStyle.Render(e.Value.String())
		if !e.Value.Valid {
			value = accentStyle.Render(report.NotAvailable)
		}
		b.WriteString(labelStyle.Render(e.Label))
		b.WriteString(value)
		if i < len(r.Entries)-1 {
			b.WriteString("\n")
		}
	}

	return boxStyle.Render(b.String())
}

// PrintReport writes the rendered report to w.
func PrintReport(w io.Writer, r *report.Report) error {
	_, err := fmt.Fprintln(w, RenderReport(r))
	return err
}

// RunSummary describes a finished analysis run.
type RunSummary struct {
	RunID     string
	Snapshots int
	Events    int
	InputSize int64
	Duration  time.Duration
	Cached    bool
	Exports   []string
}

// PrintRunSummary prints run statistics after the report.
func PrintRunSummary(w io.Writer, s *RunSummary) {
	fmt.Fprintln(w)
	if s.Cached {
		fmt.Fprintln(w, successStyle.Render("  ✓ REPORT FROM CACHE"))
	} else {
		fmt.Fprintln(w, successStyle.Render("  ✓ ANALYSIS COMPLETE"))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Run:"), titleStyle.Render(s.RunID))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Snapshots:"), titleStyle.Render(formatNumber(int64(s.Snapshots))))
	if !s.Cached {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Events:"), titleStyle.Render(formatNumber(int64(s.Events))))
	}
	if s.InputSize > 0 {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Input:"), formatBytes(s.InputSize))
	}
	if s.Duration > 0 {
		rate := ""
		if s.Snapshots > 0 && !s.Cached {
			rate = mutedStyle.Render(fmt.Sprintf(" (%s rows/sec)", formatNumber(int64(float64(s.Snapshots)/s.Duration.Seconds()))))
		}
		fmt.Fprintf(w, "  %s %s%s\n", mutedStyle.Render("Time:"), titleStyle.Render(formatDuration(s.Duration)), rate)
	}
	for _, path := range s.Exports {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Wrote:"), path)
	}
	fmt.Fprintln(w)
}

// PrintChange announces a re-run in watch mode.
func PrintChange(w io.Writer, path string, at time.Time) {
	fmt.Fprintf(w, "%s %s %s\n",
		accentStyle.Render("⟳"),
		titleStyle.Render(path),
		mutedStyle.Render("changed at "+at.Format("15:04:05")))
}

// ShowProgress creates a progress bar on w for processing total rows.
func ShowProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}
