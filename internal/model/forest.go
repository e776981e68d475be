// File: internal/model/forest.go
// Description: Tree-ensemble classifier artifacts. An artifact is a JSON
// document holding a forest of decision trees; prediction averages the leaf
// class distributions across trees. The same representation serves both the
// multi-class risk model and the binary noise model.

package model

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/Jai3405/vulntriage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Node is a single decision-tree node. Internal nodes route on
// features[Feature] <= Threshold; leaves carry a class distribution and have
// Left == -1.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node terminates a path.
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// Tree is one decision tree, stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a serialized tree-ensemble classifier artifact.
type Forest struct {
	Name        string    `json:"name"`
	Features    int       `json:"num_features"`
	Classes     int       `json:"num_classes"`
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"feature_importances,omitempty"`
}

// Load reads and validates a forest artifact from disk.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a forest artifact from raw JSON.
func Parse(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate checks the structural invariants of the artifact so that
// inference can traverse without bounds checks failing mid-run.
func (f *Forest) validate() error {
	if f.Features <= 0 {
		return fmt.Errorf("model %q declares no input features", f.Name)
	}
	if f.Classes < 2 {
		return fmt.Errorf("model %q declares %d classes, need at least 2", f.Name, f.Classes)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("model %q contains no trees", f.Name)
	}
	if len(f.Importances) != 0 && len(f.Importances) != f.Features {
		return fmt.Errorf("model %q has %d importances for %d features", f.Name, len(f.Importances), f.Features)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("model %q tree %d is empty", f.Name, ti)
		}
		for ni, n := range t.Nodes {
			if n.IsLeaf() {
				if len(n.Value) != f.Classes {
					return fmt.Errorf("model %q tree %d leaf %d has %d class values, want %d",
						f.Name, ti, ni, len(n.Value), f.Classes)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Features {
				return fmt.Errorf("model %q tree %d node %d routes on feature %d, have %d",
					f.Name, ti, ni, n.Feature, f.Features)
			}
			// Children must point strictly forward in the flat array so that
			// every traversal path terminates at a leaf.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("model %q tree %d node %d has out-of-range or backward children", f.Name, ti, ni)
			}
		}
	}
	return nil
}

// NumFeatures returns the input dimensionality the artifact was trained with.
func (f *Forest) NumFeatures() int { return f.Features }

// FeatureImportances returns the per-feature importances carried by the
// artifact, or nil when absent. Observability only.
func (f *Forest) FeatureImportances() []float64 {
	if len(f.Importances) == 0 {
		return nil
	}
	out := make([]float64, len(f.Importances))
	copy(out, f.Importances)
	return out
}

// PredictProba returns the class-probability distribution for the feature
// vector by averaging leaf distributions over all trees. The vector length
// must match the declared input dimensionality.
func (f *Forest) PredictProba(ctx context.Context, features []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrInferenceFailed, err)
	}
	if len(features) != f.Features {
		return nil, fmt.Errorf("%w: got %d features, model %q expects %d",
			schemas.ErrSchemaMismatch, len(features), f.Name, f.Features)
	}

	probs := make([]float64, f.Classes)
	for ti := range f.Trees {
		// Inference is in-memory and fast, but a caller-supplied deadline
		// must still be able to interrupt a large ensemble.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", schemas.ErrInferenceFailed, err)
		}
		leaf := f.Trees[ti].traverse(features)
		for c, v := range leaf {
			probs[c] += v
		}
	}

	n := float64(len(f.Trees))
	var sum float64
	for c := range probs {
		probs[c] /= n
		sum += probs[c]
	}
	// Leaf distributions should already be normalized; renormalize anyway so
	// downstream argmax sees a proper distribution.
	if sum > 0 {
		for c := range probs {
			probs[c] /= sum
		}
	}
	return probs, nil
}

// traverse walks one tree from the root to a leaf and returns the leaf's
// class distribution. Termination is guaranteed by validate: child indices
// only point forward.
func (t *Tree) traverse(features []float64) []float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
