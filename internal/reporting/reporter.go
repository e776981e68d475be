// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/Jai3405/vulntriage/api/schemas"
)

// Reporter defines the interface for writing a triage report to an output.
type Reporter interface {
	// Write renders a single triage report.
	Write(report *schemas.TriageReport) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format writing to outputPath. An
// empty path or "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	switch format {
	case "json", "":
		return NewJSONReporter(writer), nil
	case "text":
		return NewTextReporter(writer), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
