// File: internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/prioritize"
)

// TextReporter renders a human-readable summary of the triage report, grouped
// by priority level in rank order. It takes ownership of the writer.
type TextReporter struct {
	writer io.WriteCloser
}

// NewTextReporter creates a text reporter over the given writer.
func NewTextReporter(w io.WriteCloser) *TextReporter {
	return &TextReporter{writer: w}
}

// levelOrder fixes the rendering order of the priority sections.
var levelOrder = []schemas.PriorityLevel{
	schemas.PriorityCritical,
	schemas.PriorityHigh,
	schemas.PriorityMedium,
	schemas.PriorityLow,
}

// Write renders the report.
func (r *TextReporter) Write(report *schemas.TriageReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Triage run %s\n", report.RunID)
	fmt.Fprintf(&b, "Findings: %d total, %d ranked, %d filtered as noise, %d malformed\n\n",
		report.Summary.Total, len(report.Findings), report.Summary.NoiseFiltered, report.Summary.Malformed)

	groups := prioritize.GroupByPriority(report.Findings)
	for _, lvl := range levelOrder {
		section := groups[lvl]
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", lvl, len(section))
		for _, f := range section {
			loc := f.Location()
			if loc == "" {
				loc = f.Scanner
			}
			fmt.Fprintf(&b, "  [%.2f] %s: %s (%s)\n", f.Priority.Aggregate, f.Type, f.Issue, loc)
			if f.Remediation != nil {
				fmt.Fprintf(&b, "         fix (%s): %s\n", f.Remediation.Complexity, f.Remediation.Description)
			}
		}
		b.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "Malformed findings (%d)\n", len(report.Errors))
		for _, fe := range report.Errors {
			fmt.Fprintf(&b, "  %s/%s: %s\n", fe.Finding.Scanner, fe.Finding.Type, fe.Reason)
		}
	}

	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write triage report: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (r *TextReporter) Close() error {
	return r.writer.Close()
}
