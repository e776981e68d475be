// File: api/schemas/errors.go
package schemas

import "errors"

// -- Engine Error Kinds --
//
// The engine distinguishes four error kinds. Run-level errors abort before
// any finding is processed; per-finding errors are isolated and degrade the
// affected finding only.

var (
	// ErrModelNotLoaded indicates no classifier is configured. Fatal for the
	// whole run: no finding can be scored meaningfully without one.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrSchemaMismatch indicates a feature vector length does not match the
	// classifier's declared input dimensionality. Fatal for that finding's
	// classification only; the finding flows on with a degraded assessment.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrInferenceFailed indicates the underlying classifier call failed or
	// timed out. Recovered per finding with a conservative default risk
	// class, flagged unscored.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrMalformedFinding indicates a finding is missing a required field.
	// The finding is excluded from ranking but retained in the errors list.
	ErrMalformedFinding = errors.New("malformed finding")
)
