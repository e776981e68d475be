// File: internal/reporting/reporter_test.go
package reporting_test

import (
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/reporting"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func sampleReport() *schemas.TriageReport {
	return &schemas.TriageReport{
		RunID: "run-123",
		Findings: []schemas.Finding{
			{
				Type:     "sql_injection",
				Severity: schemas.SeverityCritical,
				Scanner:  "code",
				Issue:    "SQL injection via string formatting",
				File:     "src/api/users.py",
				Line:     42,
				Priority: &schemas.PriorityResult{
					Aggregate: 8.69,
					Level:     schemas.PriorityCritical,
				},
				Remediation: &schemas.RemediationPlan{
					Description: "Use parameterized queries",
					Complexity:  schemas.FixMedium,
					Steps:       []string{"do the fix"},
					Source:      "type",
				},
			},
		},
		Errors: []schemas.FindingError{
			{Finding: schemas.Finding{Type: "broken", Scanner: "code"}, Reason: "missing required fields: issue"},
		},
		Summary: schemas.Summary{
			Total:         3,
			NoiseFiltered: 1,
			Malformed:     1,
		},
	}
}

func TestNew_StdoutVariants(t *testing.T) {
	for _, path := range []string{"", "stdout"} {
		r, err := reporting.New("json", path)
		require.NoError(t, err)
		assert.NotNil(t, r)
		// Close must be a no-op for the stdout wrapper.
		assert.NoError(t, r.Close())
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	r, err := reporting.New("sarif", "stdout")
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestJSONReporter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	r, err := reporting.New("json", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got schemas.TriageReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-123", got.RunID)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, schemas.PriorityCritical, got.Findings[0].Priority.Level)
	assert.Equal(t, 1, got.Summary.NoiseFiltered)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "broken", got.Errors[0].Finding.Type)
}

func TestTextReporter_RendersSectionsAndErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	r, err := reporting.New("text", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "Triage run run-123")
	assert.Contains(t, out, "CRITICAL (1)")
	assert.Contains(t, out, "src/api/users.py:42")
	assert.Contains(t, out, "Use parameterized queries")
	assert.Contains(t, out, "Malformed findings (1)")
}

func TestTextReporter_SkipsEmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	r, err := reporting.New("text", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(&schemas.TriageReport{RunID: "empty"}))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "LOW (")
	assert.NotContains(t, string(data), "Malformed findings")
}
