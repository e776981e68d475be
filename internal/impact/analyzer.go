// File: internal/impact/analyzer.go
// Description: Maps a finding's contextual attributes onto a business-impact
// assessment: four sub-scores in [0,10] from static rules, compliance regime
// tags, and the arithmetic-mean aggregate. No randomness anywhere; identical
// input always yields identical output.

package impact

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
)

// dataHandlingTypes elevate the data-exposure sub-score directly.
var dataHandlingTypes = []string{
	"sql_injection",
	"command_injection",
	"hardcoded_secret",
	"hardcoded_credential",
	"insecure_deserialization",
	"xxe",
}

// dosTypes elevate the availability sub-score directly.
var dosTypes = []string{
	"denial_of_service",
	"resource_exhaustion",
	"missing_healthcheck",
}

// highExposureTypes add reputation risk on top of the exposure base.
var highExposureTypes = []string{
	"sql_injection",
	"hardcoded_credential",
	"data_leak",
}

// complianceEntry pairs a violation score with the regimes it touches.
type complianceEntry struct {
	score   float64
	regimes []schemas.ComplianceRegime
}

// complianceByType maps finding categories to regulatory regimes. A finding
// can map to zero, one, or several regimes. Kept as an ordered slice so the
// regime tags come out in a stable order.
var complianceByType = []struct {
	key   string
	entry complianceEntry
}{
	{"hardcoded_secret", complianceEntry{9.5, []schemas.ComplianceRegime{schemas.RegimeDataProtection, schemas.RegimePayment, schemas.RegimeHealth}}},
	{"hardcoded_credential", complianceEntry{9.5, []schemas.ComplianceRegime{schemas.RegimeDataProtection, schemas.RegimePayment, schemas.RegimeGeneralControl}}},
	{"weak_crypto", complianceEntry{8.5, []schemas.ComplianceRegime{schemas.RegimePayment, schemas.RegimeHealth}}},
	{"missing_encryption", complianceEntry{8.5, []schemas.ComplianceRegime{schemas.RegimeDataProtection, schemas.RegimeHealth}}},
	{"sql_injection", complianceEntry{9.0, []schemas.ComplianceRegime{schemas.RegimePayment, schemas.RegimeDataProtection}}},
	{"insecure_configuration", complianceEntry{7.0, []schemas.ComplianceRegime{schemas.RegimeGeneralControl}}},
}

// complianceByCWE covers findings whose category is unmapped but whose
// weakness classification is.
var complianceByCWE = map[string]complianceEntry{
	"CWE-798": {9.5, []schemas.ComplianceRegime{schemas.RegimeDataProtection, schemas.RegimePayment}},
	"CWE-327": {8.5, []schemas.ComplianceRegime{schemas.RegimePayment, schemas.RegimeHealth}},
	"CWE-89":  {9.0, []schemas.ComplianceRegime{schemas.RegimePayment, schemas.RegimeDataProtection}},
	"CWE-311": {8.5, []schemas.ComplianceRegime{schemas.RegimeDataProtection, schemas.RegimeHealth}},
}

// Analyzer computes business impact from static rules and the configured
// internal-path allowlist.
type Analyzer struct {
	internalPrefixes []string
	logger           *zap.Logger
}

// NewAnalyzer builds an impact analyzer. internalPrefixes lists the path
// prefixes considered internal-only; findings outside them are treated as
// externally exposed.
func NewAnalyzer(internalPrefixes []string, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		internalPrefixes: internalPrefixes,
		logger:           logger.Named("impact_analyzer"),
	}
}

// Assess computes the four sub-scores and their aggregate for one finding.
func (a *Analyzer) Assess(f *schemas.Finding) *schemas.ImpactAssessment {
	data := a.dataExposure(f)
	avail := a.availability(f)
	compliance, regimes := a.compliance(f)
	reputation := a.reputation(f)

	// The aggregate is the arithmetic mean of the four sub-scores, clamped
	// to the [0,10] scale.
	score := clamp((data + avail + compliance + reputation) / 4)

	return &schemas.ImpactAssessment{
		DataExposure: data,
		Availability: avail,
		Compliance:   compliance,
		Reputation:   reputation,
		Regimes:      regimes,
		Score:        score,
		Reasoning:    reasoning(data, avail, compliance, reputation),
	}
}

// dataExposure scores the risk of sensitive data exposure.
func (a *Analyzer) dataExposure(f *schemas.Finding) float64 {
	t := strings.ToLower(f.Type)
	for _, hrt := range dataHandlingTypes {
		if strings.Contains(t, hrt) {
			return 9.5
		}
	}

	path := strings.ToLower(f.File)
	switch {
	case containsAny(path, "auth", "login", "password", "payment", "user", "customer"):
		return 8.5
	case containsAny(path, "database", "db", "model", "schema"):
		return 8.0
	case containsAny(path, "api", "endpoint", "route"):
		return 7.5
	}

	switch f.Severity {
	case schemas.SeverityCritical:
		return 9.0
	case schemas.SeverityHigh:
		return 7.0
	case schemas.SeverityLow:
		return 3.0
	default:
		return 5.0
	}
}

// availability scores the impact on system uptime.
func (a *Analyzer) availability(f *schemas.Finding) float64 {
	t := strings.ToLower(f.Type)
	for _, dos := range dosTypes {
		if strings.Contains(t, dos) {
			return 8.5
		}
	}

	scanner := strings.ToLower(f.Scanner)
	switch {
	case strings.Contains(scanner, "container"):
		if strings.Contains(t, "healthcheck") {
			return 7.0
		}
		return 5.5
	case strings.Contains(scanner, "infrastructure"):
		return 6.0
	case strings.Contains(scanner, "code"):
		if f.Severity == schemas.SeverityCritical {
			return 6.5
		}
		return 4.0
	case strings.Contains(scanner, "dependency"):
		return 5.0
	default:
		return 4.0
	}
}

// compliance scores regulatory exposure and tags the regimes touched. Type
// and weakness-classification matches are unioned so a finding mapping both
// ways carries every applicable regime.
func (a *Analyzer) compliance(f *schemas.Finding) (float64, []schemas.ComplianceRegime) {
	var score float64
	var regimes []schemas.ComplianceRegime

	t := strings.ToLower(f.Type)
	for _, row := range complianceByType {
		if strings.Contains(t, row.key) {
			if row.entry.score > score {
				score = row.entry.score
			}
			regimes = mergeRegimes(regimes, row.entry.regimes)
		}
	}
	if entry, ok := complianceByCWE[f.CWE]; ok {
		if entry.score > score {
			score = entry.score
		}
		regimes = mergeRegimes(regimes, entry.regimes)
	}

	if score > 0 {
		return score, regimes
	}
	if f.Severity == schemas.SeverityCritical {
		return 7.0, nil
	}
	return 5.0, nil
}

// reputation scores potential reputation damage from the severity and
// whether the finding is externally exposed.
func (a *Analyzer) reputation(f *schemas.Finding) float64 {
	base := 4.0
	if a.external(f.File) {
		base = 7.5
	}

	t := strings.ToLower(f.Type)
	for _, het := range highExposureTypes {
		if strings.Contains(t, het) {
			base += 2.0
			break
		}
	}

	if f.Severity == schemas.SeverityCritical {
		base += 1.5
	}

	return clamp(base)
}

// external reports whether the path falls outside the internal-only
// allowlist. A finding with no allowlisted prefix is assumed reachable.
func (a *Analyzer) external(path string) bool {
	for _, prefix := range a.internalPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// reasoning renders a short explanation of the dominant impact dimensions.
func reasoning(data, avail, compliance, reputation float64) string {
	var reasons []string

	switch {
	case data >= 8.0:
		reasons = append(reasons, "high risk of sensitive data exposure")
	case data >= 6.0:
		reasons = append(reasons, "moderate risk of unauthorized data access")
	}
	switch {
	case avail >= 8.0:
		reasons = append(reasons, "could severely impact availability")
	case avail >= 6.0:
		reasons = append(reasons, "may affect service reliability")
	}
	switch {
	case compliance >= 8.0:
		reasons = append(reasons, "likely compliance violation")
	case compliance >= 6.0:
		reasons = append(reasons, "potential compliance concern")
	}
	if reputation >= 7.0 {
		reasons = append(reasons, "significant reputation risk if exploited")
	}

	if len(reasons) == 0 {
		return "standard security risk requiring remediation"
	}
	return strings.Join(reasons, "; ")
}

func mergeRegimes(dst, src []schemas.ComplianceRegime) []schemas.ComplianceRegime {
	for _, r := range src {
		found := false
		for _, have := range dst {
			if have == r {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, r)
		}
	}
	return dst
}

func containsAny(s string, subs ...string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
