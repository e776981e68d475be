// File: internal/remediation/matcher.go
// Description: Attaches structured fix guidance to findings from the embedded
// pattern library. Lookup precedence is fixed: finding type, then weakness
// classification, then scanner class, then the generic plan. Every finding
// receives a plan; the matcher never returns nil.

package remediation

import (
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Jai3405/vulntriage/api/schemas"
)

//go:embed library.yaml
var embeddedLibrary []byte

// scannerClasses fixes the lookup order for scanner fallbacks so that a
// scanner identifier matching several classes always resolves the same way.
var scannerClasses = []string{"dependency", "container", "infrastructure", "code"}

// planSpec is the YAML shape of one library entry.
type planSpec struct {
	Description   string   `yaml:"description"`
	FixComplexity string   `yaml:"fix_complexity"`
	CWE           string   `yaml:"cwe"`
	ExampleBefore string   `yaml:"code_example_before"`
	ExampleAfter  string   `yaml:"code_example_after"`
	Steps         []string `yaml:"steps"`
	References    []string `yaml:"references"`
}

// librarySpec is the YAML shape of the whole pattern library.
type librarySpec struct {
	Patterns         map[string]planSpec `yaml:"patterns"`
	CWEIndex         map[string]string   `yaml:"cwe_index"`
	ScannerFallbacks map[string]planSpec `yaml:"scanner_fallbacks"`
	Generic          planSpec            `yaml:"generic"`
}

// Library holds the parsed remediation patterns.
type Library struct {
	spec librarySpec
}

// LoadLibrary parses a pattern library from YAML.
func LoadLibrary(data []byte) (*Library, error) {
	var spec librarySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing remediation library: %w", err)
	}
	if len(spec.Patterns) == 0 {
		return nil, fmt.Errorf("remediation library declares no patterns")
	}
	if spec.Generic.Description == "" {
		return nil, fmt.Errorf("remediation library is missing the generic fallback")
	}
	for cwe, key := range spec.CWEIndex {
		if _, ok := spec.Patterns[key]; !ok {
			return nil, fmt.Errorf("cwe index entry %s points at unknown pattern %q", cwe, key)
		}
	}
	return &Library{spec: spec}, nil
}

// DefaultLibrary parses the library compiled into the binary.
func DefaultLibrary() (*Library, error) {
	return LoadLibrary(embeddedLibrary)
}

// Matcher resolves remediation plans for findings.
type Matcher struct {
	lib    *Library
	logger *zap.Logger
}

// NewMatcher builds a matcher over the given library.
func NewMatcher(lib *Library, logger *zap.Logger) *Matcher {
	return &Matcher{lib: lib, logger: logger.Named("remediation_matcher")}
}

// Match resolves the remediation plan for one finding. Precedence: exact
// match on the finding type, then the weakness-classification index, then the
// scanner-class fallback, then the generic plan.
func (m *Matcher) Match(f *schemas.Finding) *schemas.RemediationPlan {
	t := strings.ToLower(strings.TrimSpace(f.Type))
	if spec, ok := m.lib.spec.Patterns[t]; ok {
		return m.materialize(spec, "type", f)
	}

	if key, ok := m.lib.spec.CWEIndex[strings.ToUpper(strings.TrimSpace(f.CWE))]; ok {
		return m.materialize(m.lib.spec.Patterns[key], "cwe", f)
	}

	scanner := strings.ToLower(strings.TrimSpace(f.Scanner))
	for _, class := range scannerClasses {
		spec, ok := m.lib.spec.ScannerFallbacks[class]
		if ok && strings.Contains(scanner, class) {
			return m.materialize(spec, "scanner", f)
		}
	}

	m.logger.Debug("No remediation pattern matched, using generic plan",
		zap.String("type", f.Type), zap.String("scanner", f.Scanner))
	return m.materialize(m.lib.spec.Generic, "generic", f)
}

// materialize converts a library entry into the plan attached to the finding,
// specializing dependency plans with the package coordinates when known.
func (m *Matcher) materialize(spec planSpec, source string, f *schemas.Finding) *schemas.RemediationPlan {
	plan := &schemas.RemediationPlan{
		Description:   spec.Description,
		Complexity:    parseComplexity(spec.FixComplexity),
		ExampleBefore: spec.ExampleBefore,
		ExampleAfter:  spec.ExampleAfter,
		Steps:         append([]string(nil), spec.Steps...),
		References:    append([]string(nil), spec.References...),
		CWE:           spec.CWE,
		Source:        source,
	}
	if plan.CWE == "" {
		plan.CWE = f.CWE
	}

	// Dependency findings with package coordinates get a concrete upgrade
	// instruction instead of the template text.
	if f.Package != "" && f.FixedVersion != "" {
		plan.Description = fmt.Sprintf("Update %s to version %s or later", f.Package, f.FixedVersion)
		plan.ExampleBefore = fmt.Sprintf("%s==%s", f.Package, f.Version)
		plan.ExampleAfter = fmt.Sprintf("%s>=%s", f.Package, f.FixedVersion)
	}

	return plan
}

// parseComplexity normalizes the YAML rating, defaulting to medium for
// anything unrecognized.
func parseComplexity(raw string) schemas.FixComplexity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(schemas.FixEasy):
		return schemas.FixEasy
	case string(schemas.FixHard):
		return schemas.FixHard
	default:
		return schemas.FixMedium
	}
}
