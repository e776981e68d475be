// File: internal/engine/engine.go
// Description: The triage pipeline. Findings are validated, scored by the
// worker pool (risk, noise, impact, remediation, priority, in that order),
// then globally ranked behind a barrier. Per-finding scoring failures degrade
// that finding; only run-level problems (bad config, missing models,
// cancellation) abort the run.

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/config"
	"github.com/Jai3405/vulntriage/internal/features"
	"github.com/Jai3405/vulntriage/internal/impact"
	"github.com/Jai3405/vulntriage/internal/noise"
	"github.com/Jai3405/vulntriage/internal/prioritize"
	"github.com/Jai3405/vulntriage/internal/remediation"
	"github.com/Jai3405/vulntriage/internal/risk"
)

// Engine wires the triage stages together.
type Engine struct {
	cfg         config.EngineConfig
	scorer      *risk.Scorer
	filter      *noise.Filter
	analyzer    *impact.Analyzer
	matcher     *remediation.Matcher
	prioritizer *prioritize.Prioritizer
	logger      *zap.Logger
}

// New builds an engine from the resolved configuration and the two loaded
// classifiers. Every run-level precondition is checked here so that Run can
// never abort halfway through a batch for a reason known up front.
func New(cfg *config.Config, riskClf, noiseClf schemas.Classifier, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scorer, err := risk.NewScorer(riskClf, logger)
	if err != nil {
		return nil, fmt.Errorf("risk classifier: %w", err)
	}
	if v := strings.ToLower(cfg.Engine.SchemaVersion); v != "auto" {
		want := features.BaseDim
		if v == "16" {
			want = features.ExtendedDim
		}
		if scorer.SchemaDim() != want {
			return nil, fmt.Errorf("%w: config pins the %s-feature schema but the risk artifact expects %d",
				schemas.ErrSchemaMismatch, v, scorer.SchemaDim())
		}
	}

	filter, err := noise.NewFilter(noiseClf, logger)
	if err != nil {
		return nil, fmt.Errorf("noise classifier: %w", err)
	}

	lib, err := remediation.DefaultLibrary()
	if err != nil {
		return nil, fmt.Errorf("remediation library: %w", err)
	}

	return &Engine{
		cfg:         cfg.Engine,
		scorer:      scorer,
		filter:      filter,
		analyzer:    impact.NewAnalyzer(cfg.Analysis.InternalPathAllowlist, logger),
		matcher:     remediation.NewMatcher(lib, logger),
		prioritizer: prioritize.NewPrioritizer(cfg.Analysis.TrendingWeaknessIDs, logger),
		logger:      logger.Named("engine"),
	}, nil
}

// Run triages a batch of findings and returns the report. Malformed findings
// are diverted to the error list, noise is filtered after scoring, and the
// survivors come back ranked. Cancellation is cooperative at finding
// granularity: a finding is either fully annotated or not in the report.
func (e *Engine) Run(ctx context.Context, input []schemas.Finding) (*schemas.TriageReport, error) {
	runID := uuid.New().String()
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("Starting triage run", zap.Int("findings", len(input)))

	valid := make([]schemas.Finding, 0, len(input))
	var errs []schemas.FindingError
	for _, f := range input {
		if err := validate(&f); err != nil {
			errs = append(errs, schemas.FindingError{Finding: f, Reason: err.Error()})
			continue
		}
		valid = append(valid, f)
	}
	if len(errs) > 0 {
		logger.Warn("Diverted malformed findings", zap.Int("count", len(errs)))
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.WorkerConcurrency > 0 {
		g.SetLimit(e.cfg.WorkerConcurrency)
	}
	for i := range valid {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.annotate(gctx, &valid[i])
			return nil
		})
	}
	// Barrier: the global ranking below needs every finding annotated.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("triage run aborted: %w", err)
	}

	kept := make([]schemas.Finding, 0, len(valid))
	noiseFiltered := 0
	minOrd := severityFloor(e.cfg.SeverityThreshold)
	for _, f := range valid {
		if f.Noise != nil && f.Noise.IsNoise {
			noiseFiltered++
			logger.Debug("Filtered probable false positive",
				zap.String("type", f.Type),
				zap.String("location", f.Location()),
				zap.Float64("probability", f.Noise.Probability))
			continue
		}
		if f.Severity.Ord() < minOrd {
			continue
		}
		kept = append(kept, f)
	}

	e.prioritizer.Rank(kept)

	report := &schemas.TriageReport{
		RunID:    runID,
		Findings: kept,
		Errors:   errs,
		Summary:  summarize(len(input), kept, noiseFiltered, len(errs)),
	}
	logger.Info("Triage run complete",
		zap.Int("ranked", len(kept)),
		zap.Int("noise_filtered", noiseFiltered),
		zap.Int("malformed", len(errs)))
	return report, nil
}

// annotate runs the scoring stages for one finding, in dependency order.
// Classifier failures degrade the finding instead of failing the batch.
func (e *Engine) annotate(ctx context.Context, f *schemas.Finding) {
	f.Risk = e.assessRisk(ctx, f)
	f.Noise = e.assessNoise(ctx, f)
	f.Impact = e.analyzer.Assess(f)
	f.Remediation = e.matcher.Match(f)
	f.Priority = e.prioritizer.Score(f)
}

func (e *Engine) assessRisk(ctx context.Context, f *schemas.Finding) *schemas.RiskAssessment {
	dim := e.scorer.SchemaDim()
	vec, err := features.Extract(f, dim)
	if err != nil {
		e.logger.Warn("Feature extraction failed, using degraded risk assessment",
			zap.String("type", f.Type), zap.Error(err))
		return risk.Degraded(dim)
	}

	ictx, cancel := e.inferenceContext(ctx)
	defer cancel()
	assessment, err := e.scorer.Score(ictx, vec)
	if err != nil {
		e.logger.Warn("Risk classification failed, using degraded risk assessment",
			zap.String("type", f.Type), zap.Error(err))
		return risk.Degraded(dim)
	}
	return assessment
}

func (e *Engine) assessNoise(ctx context.Context, f *schemas.Finding) *schemas.NoiseVerdict {
	ictx, cancel := e.inferenceContext(ctx)
	defer cancel()
	verdict, err := e.filter.Evaluate(ictx, f, e.cfg.NoiseThreshold)
	if err != nil {
		// A finding the filter cannot judge stays in the report.
		e.logger.Warn("Noise evaluation failed, keeping finding",
			zap.String("type", f.Type), zap.Error(err))
		return &schemas.NoiseVerdict{Threshold: e.cfg.NoiseThreshold}
	}
	return verdict
}

// inferenceContext bounds a single classifier call when a timeout is
// configured. A timeout surfaces as an inference error, never a hang.
func (e *Engine) inferenceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.InferenceTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.InferenceTimeout)
}

// validate reports why a finding cannot enter the pipeline, or nil when it
// can. The required fields are the ones every stage's lookups key on.
func validate(f *schemas.Finding) error {
	var missing []string
	if strings.TrimSpace(f.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(string(f.Severity)) == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(f.Scanner) == "" {
		missing = append(missing, "scanner")
	}
	if strings.TrimSpace(f.Issue) == "" {
		missing = append(missing, "issue")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing required fields: %s",
		schemas.ErrMalformedFinding, strings.Join(missing, ", "))
}

// severityFloor resolves the configured severity threshold to its ordinal.
// Empty or unknown thresholds keep everything.
func severityFloor(raw string) int {
	if raw == "" {
		return 0
	}
	sev, ok := schemas.ParseSeverity(raw)
	if !ok {
		return 0
	}
	return sev.Ord()
}

// summarize computes the run statistics over the ranked findings.
func summarize(total int, ranked []schemas.Finding, noiseFiltered, malformed int) schemas.Summary {
	s := schemas.Summary{
		Total:         total,
		BySeverity:    make(map[string]int),
		ByPriority:    make(map[string]int),
		ByScanner:     make(map[string]int),
		NoiseFiltered: noiseFiltered,
		Malformed:     malformed,
	}
	for _, f := range ranked {
		s.BySeverity[string(f.Severity)]++
		s.ByScanner[f.Scanner]++
		if f.Priority != nil {
			s.ByPriority[string(f.Priority.Level)]++
		}
	}
	return s
}

// CriticalCount reports how many ranked findings carry the highest priority
// level. The CLI uses it to drive its exit code.
func CriticalCount(report *schemas.TriageReport) int {
	n := 0
	for _, f := range report.Findings {
		if f.Priority != nil && f.Priority.Level == schemas.PriorityCritical {
			n++
		}
	}
	return n
}
