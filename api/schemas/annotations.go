// File: api/schemas/annotations.go
package schemas

// -- Annotation Schemas --
//
// Each triage stage attaches exactly one of the structures below to a
// Finding. Later stages only read annotations written by earlier ones.

// RiskAssessment is the output of the risk classifier adapter.
type RiskAssessment struct {
	// Class is the discrete risk class on the 1-10 scale selected from the
	// classifier's posterior distribution (argmax, lower class on ties).
	Class int `json:"class"`

	// Score is the calibrated risk score. It equals float64(Class) unless
	// the classifier's top posterior was below 0.5, in which case the score
	// is regressed toward the scale midpoint.
	Score float64 `json:"score"`

	// Probabilities is the full posterior distribution over risk classes,
	// index i holding the probability of class i+1.
	Probabilities []float64 `json:"probabilities,omitempty"`

	// SchemaDim records which feature schema (6 or 16) produced the vector
	// this assessment was computed from.
	SchemaDim int `json:"schema_dim"`

	// Unscored marks findings whose classification failed and were given a
	// conservative default assessment instead of aborting the run.
	Unscored bool `json:"unscored,omitempty"`
}

// NoiseVerdict is the output of the noise filter.
type NoiseVerdict struct {
	// Probability is the classifier's estimate in [0,1] that the finding is
	// not a genuine issue.
	Probability float64 `json:"probability"`

	// IsNoise is true when Probability >= the configured threshold. The
	// boundary value itself classifies as noise.
	IsNoise bool `json:"is_noise"`

	// Threshold echoes the threshold the verdict was derived with.
	Threshold float64 `json:"threshold"`
}

// ComplianceRegime identifies a regulatory regime a finding may violate.
type ComplianceRegime string

// The fixed set of regimes the impact analyzer tags findings against.
const (
	RegimeDataProtection ComplianceRegime = "GDPR"
	RegimePayment        ComplianceRegime = "PCI-DSS"
	RegimeHealth         ComplianceRegime = "HIPAA"
	RegimeGeneralControl ComplianceRegime = "SOC 2"
)

// ImpactAssessment is the output of the business impact analyzer. All
// sub-scores and the aggregate live in [0,10].
type ImpactAssessment struct {
	DataExposure float64 `json:"data_exposure"`
	Availability float64 `json:"availability"`
	Compliance   float64 `json:"compliance"`
	Reputation   float64 `json:"reputation"`

	// Regimes lists the regulatory regimes the finding maps to. A finding
	// can map to zero, one, or several regimes.
	Regimes []ComplianceRegime `json:"regimes,omitempty"`

	// Score is the arithmetic mean of the four sub-scores, clamped to [0,10].
	Score float64 `json:"score"`

	// Reasoning is a short human-readable explanation of the dominant
	// impact dimensions.
	Reasoning string `json:"reasoning,omitempty"`
}

// PriorityLevel is the discrete bucket assigned from the weighted
// aggregate score.
type PriorityLevel string

// Priority levels, highest first.
const (
	PriorityCritical PriorityLevel = "CRITICAL"
	PriorityHigh     PriorityLevel = "HIGH"
	PriorityMedium   PriorityLevel = "MEDIUM"
	PriorityLow      PriorityLevel = "LOW"
)

// PriorityResult is the output of the prioritizer: the five component
// signals, the weighted aggregate, and the discrete level.
type PriorityResult struct {
	RiskScore      float64 `json:"risk_score"`
	ImpactScore    float64 `json:"impact_score"`
	Exploitability float64 `json:"exploitability"`
	FixCost        float64 `json:"fix_cost"`
	ThreatTrend    float64 `json:"threat_trend"`

	// Aggregate is the weighted combination of the five signals on the
	// [0,10] scale.
	Aggregate float64 `json:"aggregate"`

	Level PriorityLevel `json:"level"`
}

// FixComplexity rates how involved a remediation is.
type FixComplexity string

// Fix complexity ratings.
const (
	FixEasy   FixComplexity = "easy"
	FixMedium FixComplexity = "medium"
	FixHard   FixComplexity = "hard"
)

// Cost maps the rating onto the 0-10 fix-cost scale the prioritizer
// consumes (easy=2, medium=5, hard=9).
func (c FixComplexity) Cost() float64 {
	switch c {
	case FixEasy:
		return 2
	case FixHard:
		return 9
	default:
		return 5
	}
}

// RemediationPlan is the structured fix guidance attached to a finding by
// the remediation matcher.
type RemediationPlan struct {
	Description string        `json:"description"`
	Complexity  FixComplexity `json:"fix_complexity"`

	// Optional before/after code exemplars.
	ExampleBefore string `json:"code_example_before,omitempty"`
	ExampleAfter  string `json:"code_example_after,omitempty"`

	Steps      []string `json:"steps"`
	References []string `json:"references,omitempty"`

	// CWE echoes the weakness classification the plan addresses, when known.
	CWE string `json:"cwe,omitempty"`

	// Source records which precedence branch produced the plan: "type",
	// "cwe", "scanner", or "generic".
	Source string `json:"source"`
}

// FindingError records a finding that could not enter the ranking, together
// with the reason. Such findings are reported, never silently dropped.
type FindingError struct {
	Finding Finding `json:"finding"`
	Reason  string  `json:"reason"`
}

// Summary aggregates run statistics for the caller.
type Summary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByPriority map[string]int `json:"by_priority"`
	ByScanner  map[string]int `json:"by_scanner"`

	// NoiseFiltered counts findings excluded as likely false positives.
	NoiseFiltered int `json:"noise_filtered"`

	// Malformed counts findings diverted to the errors list.
	Malformed int `json:"malformed"`
}

// TriageReport is the engine's output contract: the annotated findings in
// priority order, the findings filtered as noise (count only in Summary),
// the malformed findings, and the aggregate statistics.
type TriageReport struct {
	RunID    string         `json:"run_id"`
	Findings []Finding      `json:"findings"`
	Errors   []FindingError `json:"errors,omitempty"`
	Summary  Summary        `json:"summary"`
}
