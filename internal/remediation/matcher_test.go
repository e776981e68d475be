// File: internal/remediation/matcher_test.go
package remediation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/remediation"
)

func newMatcher(t *testing.T) *remediation.Matcher {
	t.Helper()
	lib, err := remediation.DefaultLibrary()
	require.NoError(t, err)
	return remediation.NewMatcher(lib, zap.NewNop())
}

func TestMatch_TypeTakesPrecedence(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{
		Type:    "sql_injection",
		Scanner: "code",
		CWE:     "CWE-89",
		Issue:   "x",
	})
	require.NotNil(t, plan)
	assert.Equal(t, "type", plan.Source)
	assert.Equal(t, "CWE-89", plan.CWE)
	assert.Equal(t, schemas.FixMedium, plan.Complexity)
	assert.Contains(t, plan.Description, "parameterized queries")
	assert.NotEmpty(t, plan.Steps)
	assert.NotEmpty(t, plan.References)
}

func TestMatch_TypeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{Type: "  SQL_Injection ", Scanner: "code", Issue: "x"})
	assert.Equal(t, "type", plan.Source)
}

func TestMatch_CWEFallback(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{
		Type:    "custom_sqli_variant",
		Scanner: "code",
		CWE:     "CWE-89",
		Issue:   "x",
	})
	require.NotNil(t, plan)
	assert.Equal(t, "cwe", plan.Source)
	assert.Contains(t, plan.Description, "parameterized queries")
}

func TestMatch_ScannerFallback(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	tests := []struct {
		scanner        string
		wantComplexity schemas.FixComplexity
	}{
		{"dependency", schemas.FixEasy},
		{"container", schemas.FixEasy},
		{"infrastructure", schemas.FixEasy},
		{"code", schemas.FixMedium},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.scanner, func(t *testing.T) {
			t.Parallel()
			plan := m.Match(&schemas.Finding{Type: "unmapped_type", Scanner: tc.scanner, Issue: "x"})
			require.NotNil(t, plan)
			assert.Equal(t, "scanner", plan.Source)
			assert.Equal(t, tc.wantComplexity, plan.Complexity)
		})
	}
}

func TestMatch_GenericNeverNil(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{Type: "nobody_knows", Scanner: "mystery", Issue: "x"})
	require.NotNil(t, plan)
	assert.Equal(t, "generic", plan.Source)
	assert.NotEmpty(t, plan.Description)
	assert.NotEmpty(t, plan.Steps)
}

func TestMatch_DependencySpecialization(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{
		Type:            "vulnerable_dependency",
		Scanner:         "dependency",
		Issue:           "x",
		Package:         "requests",
		Version:         "2.19.0",
		FixedVersion:    "2.31.0",
		VulnerabilityID: "CVE-2023-32681",
	})
	require.NotNil(t, plan)
	assert.Equal(t, "type", plan.Source)
	assert.Equal(t, "Update requests to version 2.31.0 or later", plan.Description)
	assert.Equal(t, "requests==2.19.0", plan.ExampleBefore)
	assert.Equal(t, "requests>=2.31.0", plan.ExampleAfter)
}

func TestMatch_FindingCWEEchoedWhenLibraryHasNone(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	plan := m.Match(&schemas.Finding{
		Type:    "insecure_base_image",
		Scanner: "container",
		Issue:   "x",
		CWE:     "CWE-1104",
	})
	assert.Equal(t, "type", plan.Source)
	assert.Equal(t, "CWE-1104", plan.CWE)
}

func TestMatch_PlansAreIndependentCopies(t *testing.T) {
	t.Parallel()

	m := newMatcher(t)
	f := &schemas.Finding{Type: "xxe", Scanner: "code", Issue: "x"}

	first := m.Match(f)
	first.Steps[0] = "mutated"
	second := m.Match(f)
	assert.NotEqual(t, "mutated", second.Steps[0])
}

func TestLoadLibrary_Invalid(t *testing.T) {
	t.Parallel()

	_, err := remediation.LoadLibrary([]byte("patterns: ["))
	assert.Error(t, err)

	_, err = remediation.LoadLibrary([]byte("patterns: {}"))
	assert.Error(t, err, "a library without patterns is rejected")

	_, err = remediation.LoadLibrary([]byte(`
patterns:
  thing:
    description: fix the thing
cwe_index:
  CWE-1: nonexistent
generic:
  description: review manually
`))
	assert.Error(t, err, "a dangling cwe index entry is rejected")
}
