package presentation

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/domain"
)

type Printer struct {
	Writer  io.Writer
	Verbose bool
}

// PrintSessions renders one table row per session with its calibration
// picks and destination.
func (p Printer) PrintSessions(summaries []app.SessionSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(p.Writer, "No sessions found.")
		return
	}
	fmt.Fprintln(p.Writer, SessionTable(summaries))
}

func SessionTable(summaries []app.SessionSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Session", "Target", "Exp", "Gain", "Bin", "Shots", "Darks", "Flats", "Biases", "Destination"})

	for i, s := range summaries {
		meta := s.Session.Metadata
		dest := filepath.Base(s.Destination)
		if s.Exists {
			dest += " (exists)"
		}
		tw.AppendRow(table.Row{
			i + 1,
			s.Session.Timestamp.Format("2006-01-02 15:04"),
			meta.TargetName,
			meta.ExposureFraction(),
			meta.Gain,
			meta.BinningBucket(),
			fmt.Sprintf("%d/%d", meta.ShotsTaken, meta.ShotsPlanned),
			calibrationCell(s, domain.Darks),
			calibrationCell(s, domain.Flats),
			calibrationCell(s, domain.Biases),
			dest,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return tw.Render()
}

func calibrationCell(s app.SessionSummary, cat domain.Category) string {
	sum := s.Calibration[cat]
	if sum.Best == "" {
		return "-"
	}
	cell := filepath.Base(sum.Best)
	if extra := len(sum.Candidates) - 1; extra > 0 {
		cell += " +" + strconv.Itoa(extra)
	}
	return cell
}

// PrintPlan lists what a transfer would do without touching the disk. The
// plan is expected to be made against destination as its working root.
func (p Printer) PrintPlan(session domain.SessionDirectory, destination string, plan domain.TransferPlan) {
	fmt.Fprintf(p.Writer, "%s %s %s\n", color.New(color.Bold).Sprint(session.Name()), iconArrow, color.CyanString(destination))

	if len(plan.Mkdirs) > 0 {
		dirs := make([]string, 0, len(plan.Mkdirs))
		for _, d := range plan.Mkdirs {
			dirs = append(dirs, relOrSelf(destination, d))
		}
		fmt.Fprintf(p.Writer, "  mkdir %s\n", strings.Join(dirs, ", "))
	}

	if len(plan.Links) > 0 {
		fmt.Fprintln(p.Writer, p.truncate(formatPlanLines("link", session.Path, plan.Links)))
	}
	if len(plan.Copies) > 0 {
		fmt.Fprintln(p.Writer, p.truncate(formatPlanLines("copy", session.Path, plan.Copies)))
	}
	fmt.Fprintf(p.Writer, "  %d links, %d copies\n", len(plan.Links), len(plan.Copies))

	for _, w := range plan.Warnings {
		fmt.Fprintf(p.Writer, "  %s %s\n", color.YellowString(iconWarning), w)
	}
	fmt.Fprintln(p.Writer)
}

func formatPlanLines(verb, sessionPath string, entries map[string]string) []string {
	lines := make([]string, 0, len(entries))
	for _, src := range domain.SortedSources(entries) {
		lines = append(lines, fmt.Sprintf("  %s %s %s %s", verb, relOrSelf(sessionPath, src), iconArrow, entries[src]))
	}
	return lines
}

// truncate keeps the first and last two lines of long listings unless the
// printer is verbose.
func (p Printer) truncate(lines []string) string {
	if p.Verbose || len(lines) <= 4 {
		return strings.Join(lines, "\n")
	}
	head := lines[:2]
	tail := lines[len(lines)-2:]
	return strings.Join(append(append(append([]string{}, head...), "  ..."), tail...), "\n")
}

func (p Printer) PrintProgress(ev domain.Progress) {
	line := fmt.Sprintf("[%d] %s", ev.Worker, ev.Description)
	if ev.Bytes > 0 {
		line += color.HiBlackString(" (%s)", humanize.Bytes(uint64(ev.Bytes)))
	}
	fmt.Fprintln(p.Writer, line)
}

// PrintResults summarizes a batch. It returns the number of failed sessions.
func (p Printer) PrintResults(results []app.TransferResult) int {
	failed := 0
	var total int64
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(p.Writer, "%s %s: %v\n", color.RedString(iconError), r.Session, r.Err)
			continue
		}
		total += r.Bytes
		fmt.Fprintf(p.Writer, "%s %s %s %s (%d links, %d copies, %s)\n",
			color.GreenString(iconSuccess), r.Session, iconArrow, r.Destination, r.Links, r.Copies, humanize.Bytes(uint64(r.Bytes)))
		for _, w := range r.Warnings {
			fmt.Fprintf(p.Writer, "  %s %s\n", color.YellowString(iconWarning), w)
		}
	}
	fmt.Fprintf(p.Writer, "%d of %d sessions transferred, %s copied.\n", len(results)-failed, len(results), humanize.Bytes(uint64(total)))
	return failed
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

const (
	iconArrow   = "→"
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠"
)
