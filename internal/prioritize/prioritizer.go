// File: internal/prioritize/prioritizer.go
// Description: Combines the per-finding signals into the weighted aggregate
// score, buckets it into a discrete level, and orders the finding list. The
// weights and thresholds are fixed constants, not configuration: changing
// them changes the meaning of a priority level across every consumer.

package prioritize

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
)

// Signal weights. They sum to 1.0 so the aggregate stays on the [0,10] scale.
const (
	weightRisk     = 0.40
	weightImpact   = 0.25
	weightExploit  = 0.20
	weightFix      = 0.10
	weightTrend    = 0.05
	maxSignalScale = 10.0
)

// Level thresholds on the aggregate score.
const (
	criticalFloor = 8.0
	highFloor     = 6.0
	mediumFloor   = 3.5
)

// Prioritizer scores and orders annotated findings.
type Prioritizer struct {
	trending map[string]bool
	logger   *zap.Logger
}

// NewPrioritizer builds a prioritizer. trendingIDs lists advisory or weakness
// identifiers under active exploitation; findings matching one receive the
// full threat-trend signal.
func NewPrioritizer(trendingIDs []string, logger *zap.Logger) *Prioritizer {
	trending := make(map[string]bool, len(trendingIDs))
	for _, id := range trendingIDs {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id != "" {
			trending[id] = true
		}
	}
	return &Prioritizer{trending: trending, logger: logger.Named("prioritizer")}
}

// Score computes the weighted aggregate and priority level for one finding.
// The finding's risk, impact, and remediation annotations must already be
// attached; missing annotations degrade to neutral signal values rather than
// erroring.
func (p *Prioritizer) Score(f *schemas.Finding) *schemas.PriorityResult {
	riskScore := 5.0
	if f.Risk != nil {
		riskScore = f.Risk.Score
	}
	impactScore := 5.0
	if f.Impact != nil {
		impactScore = f.Impact.Score
	}
	fixCost := schemas.FixMedium.Cost()
	if f.Remediation != nil {
		fixCost = f.Remediation.Complexity.Cost()
	}

	exploit := exploitability(f)
	trend := p.threatTrend(f)

	// A cheap fix raises priority, so the fix-cost signal enters inverted.
	aggregate := weightRisk*riskScore +
		weightImpact*impactScore +
		weightExploit*exploit +
		weightFix*(maxSignalScale-fixCost) +
		weightTrend*trend

	return &schemas.PriorityResult{
		RiskScore:      riskScore,
		ImpactScore:    impactScore,
		Exploitability: exploit,
		FixCost:        fixCost,
		ThreatTrend:    trend,
		Aggregate:      clamp(aggregate),
		Level:          level(aggregate),
	}
}

// Rank orders findings for the report: descending aggregate, ties broken by
// descending risk class, then descending impact score, then original scan
// order. The sort is stable so equal findings keep their input order.
func (p *Prioritizer) Rank(findings []schemas.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := &findings[i], &findings[j]
		if a.Priority == nil || b.Priority == nil {
			return b.Priority == nil && a.Priority != nil
		}
		if a.Priority.Aggregate != b.Priority.Aggregate {
			return a.Priority.Aggregate > b.Priority.Aggregate
		}
		ac, bc := riskClass(a), riskClass(b)
		if ac != bc {
			return ac > bc
		}
		ai, bi := impactScore(a), impactScore(b)
		if ai != bi {
			return ai > bi
		}
		return false
	})
}

// GroupByPriority buckets findings by their assigned level, preserving the
// ranked order within each bucket.
func GroupByPriority(findings []schemas.Finding) map[schemas.PriorityLevel][]schemas.Finding {
	groups := make(map[schemas.PriorityLevel][]schemas.Finding)
	for _, f := range findings {
		if f.Priority == nil {
			continue
		}
		groups[f.Priority.Level] = append(groups[f.Priority.Level], f)
	}
	return groups
}

// threatTrend is a binary signal: full scale when the finding's advisory or
// weakness identifier is on the trending list, zero otherwise.
func (p *Prioritizer) threatTrend(f *schemas.Finding) float64 {
	if len(p.trending) == 0 {
		return 0
	}
	if f.VulnerabilityID != "" && p.trending[strings.ToUpper(strings.TrimSpace(f.VulnerabilityID))] {
		return maxSignalScale
	}
	if f.CWE != "" && p.trending[strings.ToUpper(strings.TrimSpace(f.CWE))] {
		return maxSignalScale
	}
	return 0
}

// level buckets an aggregate score into the discrete priority level.
func level(aggregate float64) schemas.PriorityLevel {
	switch {
	case aggregate >= criticalFloor:
		return schemas.PriorityCritical
	case aggregate >= highFloor:
		return schemas.PriorityHigh
	case aggregate >= mediumFloor:
		return schemas.PriorityMedium
	default:
		return schemas.PriorityLow
	}
}

func riskClass(f *schemas.Finding) int {
	if f.Risk == nil {
		return 0
	}
	return f.Risk.Class
}

func impactScore(f *schemas.Finding) float64 {
	if f.Impact == nil {
		return 0
	}
	return f.Impact.Score
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
