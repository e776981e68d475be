// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/Jai3405/vulntriage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter renders the triage report as indented JSON. It takes ownership
// of the writer.
type JSONReporter struct {
	writer io.WriteCloser
}

// NewJSONReporter creates a JSON reporter over the given writer.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: w}
}

// Write marshals the report and writes it out.
func (r *JSONReporter) Write(report *schemas.TriageReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal triage report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write triage report: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
