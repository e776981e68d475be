// File: internal/risk/scorer.go
// Description: Adapter around the trained multi-class risk classifier. The
// adapter validates vector length, requests the posterior distribution, and
// selects the reported risk class. It holds no mutable state per call.

package risk

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/features"
)

// midpoint of the 1-10 risk scale, the regression target for low-confidence
// predictions.
const midpointScore = 5.0

// Scorer wraps an injected risk classifier.
type Scorer struct {
	clf    schemas.Classifier
	dim    int
	logger *zap.Logger
}

// NewScorer builds a scorer for the given classifier, auto-detecting which
// feature schema the artifact was trained with.
func NewScorer(clf schemas.Classifier, logger *zap.Logger) (*Scorer, error) {
	if clf == nil {
		return nil, fmt.Errorf("%w: risk classifier is not configured", schemas.ErrModelNotLoaded)
	}
	dim, err := features.DetectDim(clf)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		clf:    clf,
		dim:    dim,
		logger: logger.Named("risk_scorer"),
	}, nil
}

// SchemaDim returns the feature schema the underlying artifact expects.
func (s *Scorer) SchemaDim() int { return s.dim }

// Score classifies one feature vector into a 1-10 risk class with its full
// posterior distribution. Pure delegation: the adapter adds validation and
// class selection only.
func (s *Scorer) Score(ctx context.Context, vec []float64) (*schemas.RiskAssessment, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d features, classifier expects %d",
			schemas.ErrSchemaMismatch, len(vec), s.dim)
	}

	probs, err := s.clf.PredictProba(ctx, vec)
	if err != nil {
		if errors.Is(err, schemas.ErrSchemaMismatch) || errors.Is(err, schemas.ErrInferenceFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", schemas.ErrInferenceFailed, err)
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("%w: classifier returned an empty distribution", schemas.ErrInferenceFailed)
	}

	// Argmax with ties broken by the lower class index: when the posterior
	// cannot separate two classes, report the less severe one.
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	class := best + 1

	// A weak posterior regresses the score toward the scale midpoint rather
	// than committing fully to the argmax class.
	score := float64(class)
	if probs[best] < 0.5 {
		score = score*0.7 + midpointScore*0.3
	}

	return &schemas.RiskAssessment{
		Class:         class,
		Score:         score,
		Probabilities: probs,
		SchemaDim:     s.dim,
	}, nil
}

// FeatureImportance exposes the artifact's per-feature importances keyed by
// feature name. Read-only query for observability; never consulted in the
// decision path.
func (s *Scorer) FeatureImportance() map[string]float64 {
	imp := s.clf.FeatureImportances()
	if imp == nil {
		return nil
	}
	names := features.Names(s.dim)
	out := make(map[string]float64, len(imp))
	for i, v := range imp {
		if i < len(names) {
			out[names[i]] = v
		}
	}
	return out
}

// Degraded returns the conservative default assessment attached to findings
// whose classification failed (schema mismatch or inference error). The
// midpoint class keeps the finding visible without letting an unscored
// finding outrank properly scored critical ones.
func Degraded(dim int) *schemas.RiskAssessment {
	return &schemas.RiskAssessment{
		Class:     int(midpointScore),
		Score:     midpointScore,
		SchemaDim: dim,
		Unscored:  true,
	}
}
