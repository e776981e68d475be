// File: internal/prioritize/exploitability.go
// Description: Static exploitability lookup used by the prioritizer. Unlike
// the feature extractor's heuristic, this table feeds the ranking formula
// directly and is pinned to the weakness classifications with known public
// exploit tooling.

package prioritize

import (
	"strings"

	"github.com/Jai3405/vulntriage/api/schemas"
)

// exploitabilityByCWE pins scores for weaknesses with mature exploit tooling.
var exploitabilityByCWE = map[string]float64{
	"CWE-89":  10.0, // SQL injection
	"CWE-78":  10.0, // OS command injection
	"CWE-95":  10.0, // eval injection
	"CWE-502": 9.5,  // insecure deserialization
	"CWE-611": 9.0,  // XXE
	"CWE-798": 8.5,  // hardcoded credentials
	"CWE-250": 8.0,  // execution with unnecessary privileges
	"CWE-327": 7.0,  // broken crypto
}

// highExploitTypes are trivially exploitable categories for findings without
// a mapped weakness classification.
var highExploitTypes = []string{
	"sql_injection",
	"command_injection",
	"code_injection",
	"eval",
	"deserialization",
	"xxe",
}

// exploitability scores how readily the finding can be exploited, on the
// 0-10 scale the ranking formula consumes. Scanner-supplied values win;
// otherwise the CWE table, the type list, the presence of a published
// advisory, and finally severity decide.
func exploitability(f *schemas.Finding) float64 {
	if f.Exploitability != nil {
		return clamp(*f.Exploitability)
	}
	if v, ok := exploitabilityByCWE[strings.ToUpper(strings.TrimSpace(f.CWE))]; ok {
		return v
	}
	t := strings.ToLower(f.Type)
	for _, het := range highExploitTypes {
		if strings.Contains(t, het) {
			return 9.0
		}
	}
	if f.VulnerabilityID != "" {
		return 8.0
	}
	switch f.Severity {
	case schemas.SeverityCritical:
		return 8.5
	case schemas.SeverityHigh:
		return 7.0
	case schemas.SeverityMedium:
		return 5.0
	case schemas.SeverityLow:
		return 3.0
	default:
		return 4.0
	}
}
