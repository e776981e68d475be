// File: api/schemas/interfaces.go
// Description: Interfaces shared across the engine. Keeping them here lets
// the stages depend on contracts instead of concrete artifact types.

package schemas

import "context"

// Classifier is the model artifact contract: a trained classifier exposing
// its declared input dimensionality, a prediction call
// returning a class-probability distribution, and optional per-feature
// importance values for observability.
//
// Implementations must be safe for concurrent read-only use; artifacts are
// loaded once per process and shared across workers without locking.
type Classifier interface {
	// NumFeatures returns the input dimensionality the artifact was trained
	// with. The feature schema adapter uses this for auto-detection.
	NumFeatures() int

	// PredictProba returns the class-probability distribution for the given
	// feature vector. It must respect ctx cancellation and deadlines.
	PredictProba(ctx context.Context, features []float64) ([]float64, error)

	// FeatureImportances returns per-feature importance values, or nil when
	// the artifact does not carry them. Read-only, observability only.
	FeatureImportances() []float64
}
