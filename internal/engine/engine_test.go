// File: internal/engine/engine_test.go
package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/config"
	"github.com/Jai3405/vulntriage/internal/engine"
	"github.com/Jai3405/vulntriage/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(v float64) *float64 { return &v }

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			WorkerConcurrency: 4,
			NoiseThreshold:    0.7,
			SchemaVersion:     "auto",
			InferenceTimeout:  5 * time.Second,
		},
		Analysis: config.AnalysisConfig{
			InternalPathAllowlist: []string{"internal/"},
		},
	}
}

func newEngine(t *testing.T, cfg *config.Config) *engine.Engine {
	t.Helper()
	riskClf, err := model.LoadRisk("")
	require.NoError(t, err)
	noiseClf, err := model.LoadNoise("")
	require.NoError(t, err)
	eng, err := engine.New(cfg, riskClf, noiseClf, zap.NewNop())
	require.NoError(t, err)
	return eng
}

func criticalSQLInjection() schemas.Finding {
	return schemas.Finding{
		Type:        "sql_injection",
		Severity:    schemas.SeverityCritical,
		Confidence:  schemas.ConfidenceHigh,
		Scanner:     "code",
		Issue:       "SQL injection via string formatting",
		File:        "src/api/users.py",
		Line:        42,
		CWE:         "CWE-89",
		CodeSnippet: "def get_user(user_id):\n    query = f\"SELECT * FROM users WHERE id = {user_id}\"",

		Exploitability: ptr(9.0),
		AssetValue:     ptr(8.0),
		Exposure:       ptr(7.0),
	}
}

func lowInternalFinding() schemas.Finding {
	return schemas.Finding{
		Type:           "debug_enabled",
		Severity:       schemas.SeverityLow,
		Confidence:     schemas.ConfidenceLow,
		Scanner:        "infrastructure",
		Issue:          "debug mode enabled",
		File:           "internal/tools/helper.py",
		Exploitability: ptr(1.0),
	}
}

func noisyTestFileFinding() schemas.Finding {
	return schemas.Finding{
		Type:        "hardcoded_secret",
		Severity:    schemas.SeverityMedium,
		Confidence:  schemas.ConfidenceLow,
		Scanner:     "code",
		Issue:       "possible secret",
		File:        "tests/test_auth.py",
		CodeSnippet: "# TODO use a fixture here",
	}
}

func TestRun_CriticalFindingEndToEnd(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{criticalSQLInjection()})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.NotEmpty(t, report.RunID)

	f := report.Findings[0]
	require.NotNil(t, f.Risk)
	assert.Equal(t, 10, f.Risk.Class, "unambiguous critical signature lands in the top class")
	assert.Equal(t, 10.0, f.Risk.Score)
	assert.Equal(t, 16, f.Risk.SchemaDim)
	assert.False(t, f.Risk.Unscored)

	require.NotNil(t, f.Noise)
	assert.False(t, f.Noise.IsNoise)
	assert.Less(t, f.Noise.Probability, 0.3)

	require.NotNil(t, f.Impact)
	assert.InDelta(t, 8.75, f.Impact.Score, 1e-9)

	require.NotNil(t, f.Remediation)
	assert.Equal(t, "type", f.Remediation.Source, "type-specific plan, not a fallback")

	require.NotNil(t, f.Priority)
	assert.Equal(t, 9.0, f.Priority.Exploitability, "scanner-supplied exploitability wins")
	// 0.40*10 + 0.25*8.75 + 0.20*9 + 0.10*(10-5) + 0.05*0
	assert.InDelta(t, 8.4875, f.Priority.Aggregate, 1e-9)
	assert.Equal(t, schemas.PriorityCritical, f.Priority.Level)

	assert.Equal(t, 1, engine.CriticalCount(report))
}

func TestRun_LowInternalFindingEndToEnd(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{lowInternalFinding()})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)

	f := report.Findings[0]
	require.NotNil(t, f.Priority)
	assert.Equal(t, schemas.PriorityLow, f.Priority.Level)
	assert.Less(t, f.Priority.Aggregate, 3.5)
	assert.Equal(t, 1.0, f.Priority.Exploitability, "scanner-supplied exploitability wins")
	assert.Equal(t, 0, engine.CriticalCount(report))
}

func TestRun_RankedOrder(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{
		lowInternalFinding(),
		criticalSQLInjection(),
	})
	require.NoError(t, err)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, "sql_injection", report.Findings[0].Type)
	assert.Equal(t, "debug_enabled", report.Findings[1].Type)
}

func TestRun_NoiseExcludedButCounted(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{
		criticalSQLInjection(),
		noisyTestFileFinding(),
	})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1, "the test-file finding is filtered")
	assert.Equal(t, "sql_injection", report.Findings[0].Type)
	assert.Equal(t, 1, report.Summary.NoiseFiltered)
	assert.Equal(t, 2, report.Summary.Total)
}

func TestRun_MalformedFindingsReported(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{
		{Type: "sql_injection", Severity: schemas.SeverityHigh}, // no scanner, no issue
		criticalSQLInjection(),
	})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Reason, schemas.ErrMalformedFinding.Error())
	assert.Contains(t, report.Errors[0].Reason, "scanner")
	assert.Contains(t, report.Errors[0].Reason, "issue")
	assert.Equal(t, 1, report.Summary.Malformed)
	assert.Len(t, report.Findings, 1, "valid findings still flow through")
}

func TestRun_SeverityThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.SeverityThreshold = "medium"
	eng := newEngine(t, cfg)

	report, err := eng.Run(context.Background(), []schemas.Finding{
		criticalSQLInjection(),
		lowInternalFinding(),
	})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1, "the low finding falls below the severity floor")
	assert.Equal(t, "sql_injection", report.Findings[0].Type)
}

func TestRun_Deterministic(t *testing.T) {
	eng := newEngine(t, testConfig())
	input := []schemas.Finding{
		criticalSQLInjection(),
		lowInternalFinding(),
		noisyTestFileFinding(),
	}

	first, err := eng.Run(context.Background(), input)
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), input)
	require.NoError(t, err)

	// Everything except the run identifier must be identical across runs.
	second.RunID = first.RunID
	assert.Empty(t, cmp.Diff(first, second))
}

func TestRun_Cancellation(t *testing.T) {
	eng := newEngine(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	findings := make([]schemas.Finding, 100)
	for i := range findings {
		findings[i] = criticalSQLInjection()
	}
	_, err := eng.Run(ctx, findings)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyInput(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 0, report.Summary.Total)
}

func TestRun_SummaryBreakdowns(t *testing.T) {
	eng := newEngine(t, testConfig())

	report, err := eng.Run(context.Background(), []schemas.Finding{
		criticalSQLInjection(),
		lowInternalFinding(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.BySeverity["critical"])
	assert.Equal(t, 1, report.Summary.BySeverity["low"])
	assert.Equal(t, 1, report.Summary.ByScanner["code"])
	assert.Equal(t, 1, report.Summary.ByScanner["infrastructure"])
	assert.Equal(t, 1, report.Summary.ByPriority["CRITICAL"])
	assert.Equal(t, 1, report.Summary.ByPriority["LOW"])
}

// baseSchemaRisk is a single-leaf risk artifact trained on the six-feature
// schema; every input lands in class 7 with a confident posterior.
const baseSchemaRisk = `{
  "name": "risk-base",
  "num_features": 6,
  "num_classes": 10,
  "trees": [
    {"nodes": [
      {"left": -1, "right": -1, "value": [0, 0, 0, 0, 0, 0, 0.7, 0.1, 0.1, 0.1]}
    ]}
  ]
}`

func TestRun_BaseSchemaAutoDetected(t *testing.T) {
	riskClf, err := model.Parse([]byte(baseSchemaRisk))
	require.NoError(t, err)
	noiseClf, err := model.LoadNoise("")
	require.NoError(t, err)
	eng, err := engine.New(testConfig(), riskClf, noiseClf, zap.NewNop())
	require.NoError(t, err)

	report, err := eng.Run(context.Background(), []schemas.Finding{criticalSQLInjection()})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)

	f := report.Findings[0]
	require.NotNil(t, f.Risk)
	assert.Equal(t, 6, f.Risk.SchemaDim, "a six-feature artifact selects the base schema")
	assert.Equal(t, 7, f.Risk.Class)
	assert.Equal(t, 7.0, f.Risk.Score)
	assert.False(t, f.Risk.Unscored)

	// Pinning the matching schema version is accepted.
	cfg := testConfig()
	cfg.Engine.SchemaVersion = "6"
	_, err = engine.New(cfg, riskClf, noiseClf, zap.NewNop())
	assert.NoError(t, err)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	riskClf, err := model.LoadRisk("")
	require.NoError(t, err)
	noiseClf, err := model.LoadNoise("")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Engine.NoiseThreshold = 1.5
	_, err = engine.New(cfg, riskClf, noiseClf, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Engine.SchemaVersion = "6"
	_, err = engine.New(cfg, riskClf, noiseClf, zap.NewNop())
	assert.ErrorIs(t, err, schemas.ErrSchemaMismatch,
		"pinning the 6-feature schema against a 16-feature artifact fails fast")
}

func TestNew_RejectsMissingModels(t *testing.T) {
	noiseClf, err := model.LoadNoise("")
	require.NoError(t, err)

	_, err = engine.New(testConfig(), nil, noiseClf, zap.NewNop())
	assert.ErrorIs(t, err, schemas.ErrModelNotLoaded)

	riskClf, err := model.LoadRisk("")
	require.NoError(t, err)
	_, err = engine.New(testConfig(), riskClf, nil, zap.NewNop())
	assert.ErrorIs(t, err, schemas.ErrModelNotLoaded)
}
