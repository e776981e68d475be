// File: internal/model/embed.go
package model

import (
	_ "embed"
)

// Default artifacts shipped with the binary. They are trained offline by the
// model pipeline and checked in as JSON; a deployment can override either
// one via the models config block.

//go:embed artifacts/risk_scorer.json
var defaultRiskArtifact []byte

//go:embed artifacts/noise_filter.json
var defaultNoiseArtifact []byte

// LoadRisk returns the risk classifier artifact at path, or the embedded
// default when path is empty.
func LoadRisk(path string) (*Forest, error) {
	if path == "" {
		return Parse(defaultRiskArtifact)
	}
	return Load(path)
}

// LoadNoise returns the noise classifier artifact at path, or the embedded
// default when path is empty.
func LoadNoise(path string) (*Forest, error) {
	if path == "" {
		return Parse(defaultNoiseArtifact)
	}
	return Load(path)
}
