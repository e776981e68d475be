// File: api/schemas/finding.go
package schemas

import (
	"strconv"
	"strings"
)

// -- Finding Schemas --

// Severity represents the severity level assigned to a finding by its
// detector, ranging from informational to critical. The values are lowercase
// to align with the JSON produced by the scanner fleet.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical" // Represents a critical vulnerability.
	SeverityHigh     Severity = "high"     // Represents a high-severity vulnerability.
	SeverityMedium   Severity = "medium"   // Represents a medium-severity vulnerability.
	SeverityLow      Severity = "low"      // Represents a low-severity vulnerability.
	SeverityInfo     Severity = "info"     // Represents an informational finding.
)

// Ord returns the ordinal encoding of the severity (info=0 ... critical=4).
// Unknown severities map to low, the conservative floor used by the
// feature extractor.
func (s Severity) Ord() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return 1
	}
}

// ParseSeverity normalizes the free-form severity strings emitted by the
// various scanners into one of the five canonical levels. Aliases cover the
// vocabularies of the common tool outputs.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "fatal":
		return SeverityCritical, true
	case "high", "important", "error":
		return SeverityHigh, true
	case "medium", "moderate", "warning":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	case "info", "informational", "negligible", "note":
		return SeverityInfo, true
	default:
		return "", false
	}
}

// Confidence is the detector-assigned confidence in a finding.
type Confidence string

// Constants defining the three confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Ord returns the ordinal encoding of the confidence (low=1 ... high=3).
// Absent or unknown confidence maps to low rather than medium so that a
// detector that never reports confidence cannot inflate risk.
func (c Confidence) Ord() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 1
	}
}

// ParseConfidence normalizes detector confidence strings.
func ParseConfidence(raw string) (Confidence, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "certain":
		return ConfidenceHigh, true
	case "medium", "firm":
		return ConfidenceMedium, true
	case "low", "tentative", "unknown":
		return ConfidenceLow, true
	default:
		return "", false
	}
}

// Finding encapsulates a single potential vulnerability reported by one of
// the external scanners, together with the annotations each triage stage
// attaches. Identity (type + location) is immutable for the duration of a
// run; annotation fields are written exactly once by their owning stage.
type Finding struct {
	// Type is the vulnerability category tag, e.g. "sql_injection".
	Type string `json:"type"`

	Severity   Severity   `json:"severity"`
	Confidence Confidence `json:"confidence,omitempty"`

	// Scanner identifies the detector that produced this finding, e.g.
	// "code", "dependency", "container", "infrastructure".
	Scanner string `json:"scanner"`

	Issue       string `json:"issue"`
	Description string `json:"description,omitempty"`

	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	CWE         string `json:"cwe,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`

	// VulnerabilityID carries an external advisory identifier (e.g. a CVE)
	// for dependency findings.
	VulnerabilityID string `json:"vulnerability_id,omitempty"`
	Package         string `json:"package,omitempty"`
	Version         string `json:"version,omitempty"`
	FixedVersion    string `json:"fixed_version,omitempty"`

	// Optional contextual scores supplied by the scanner. When absent the
	// feature extractor falls back to its static heuristics.
	Exploitability *float64 `json:"exploitability,omitempty"`
	AssetValue     *float64 `json:"asset_value,omitempty"`
	Exposure       *float64 `json:"exposure,omitempty"`

	// Annotations appended by the triage stages. Each is created once per
	// run and never mutated after its stage completes.
	Risk        *RiskAssessment   `json:"risk,omitempty"`
	Noise       *NoiseVerdict     `json:"noise,omitempty"`
	Impact      *ImpactAssessment `json:"impact,omitempty"`
	Priority    *PriorityResult   `json:"priority,omitempty"`
	Remediation *RemediationPlan  `json:"remediation,omitempty"`
}

// Location renders a human-readable file:line locator for log lines and
// report output.
func (f *Finding) Location() string {
	if f.File == "" {
		return ""
	}
	if f.Line <= 0 {
		return f.File
	}
	return f.File + ":" + strconv.Itoa(f.Line)
}
