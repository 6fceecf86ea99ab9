// Package observability builds the process logger and prints the human-facing
// run summary.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow caps the per-result listing lines in a report
	maxItemsToShow = 10
)

// resultOrder is the order results are tallied in
var resultOrder = []types.Result{
	types.ResultSubmitted,
	types.ResultSkipped,
	types.ResultBlocked,
	types.ResultFailed,
	types.ResultAbandoned,
}

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs the behavior profile drawn for this process.
func (p *Printer) PrintProfile(profile behavior.Profile) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Typing:      %.0f wpm\n", profile.TypingSpeed))
	sb.WriteString(fmt.Sprintf("Reading:     %.0f wpm\n", profile.ReadingSpeed))
	sb.WriteString(fmt.Sprintf("Hesitation:  %.0f%%\n", profile.HesitationRate*100))
	sb.WriteString(fmt.Sprintf("Scroll:      %d-%d px\n", profile.ScrollSpeedRange.Min, profile.ScrollSpeedRange.Max))
	sb.WriteString(fmt.Sprintf("Accuracy:    %.0f%%\n", profile.ClickAccuracy*100))
	sb.WriteString(fmt.Sprintf("Fatigue:     %.3f per action\n", profile.FatigueRate))
	p.printBox("BEHAVIOR PROFILE", sb.String())
}

// PrintReport outputs the run summary: counts by result, then one line per
// listing that did not end in submission.
func (p *Printer) PrintReport(report *types.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", report.RunID))
	if !report.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:  %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second)))
	}
	sb.WriteString(fmt.Sprintf("Processed: %d\n", len(report.Outcomes)))
	sb.WriteString("\n")

	counts := report.Counts()
	for _, r := range resultOrder {
		if counts[r] > 0 {
			sb.WriteString(fmt.Sprintf("  %-10s %d\n", r, counts[r]))
		}
	}

	var notable []types.ApplicationOutcome
	for _, o := range report.Outcomes {
		if o.Result != types.ResultSubmitted {
			notable = append(notable, o)
		}
	}
	if len(notable) > 0 {
		sb.WriteString("\n")
		count := min(len(notable), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString("  • " + outcomeLine(notable[i]) + "\n")
		}
		if len(notable) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(notable)-maxItemsToShow))
		}
	}

	p.printBox("RUN REPORT", sb.String())
}

func outcomeLine(o types.ApplicationOutcome) string {
	line := fmt.Sprintf("%s %s", o.Listing.ExternalID, o.Result)
	if o.ErrorKind != "" {
		line += fmt.Sprintf(" [%s]", o.ErrorKind)
	}
	if o.Result == types.ResultAbandoned {
		line += fmt.Sprintf(" at step %d", o.AbandonedAtStep)
	}
	if o.Reason != "" {
		line += ": " + o.Reason
	}
	return line
}
