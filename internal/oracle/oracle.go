// Package oracle provides the classifiers that score feature vectors
// into reward probabilities.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

// ErrFeatureMismatch is returned when a feature vector's width does
// not match the model. This is a configuration error, not a per-user
// condition: the rule catalog and the model were trained apart.
var ErrFeatureMismatch = errors.New("feature count mismatch")

// New builds an oracle from configuration. features is the vector
// width implied by the current rule catalog.
func New(cfg domain.OracleConfig, features int) (domain.Oracle, error) {
	switch cfg.Type {
	case "logistic":
		return LoadLogistic(cfg.ModelPath, features)
	case "static":
		return NewStatic(cfg.Probability, features), nil
	}
	return nil, fmt.Errorf("unsupported oracle type %q", cfg.Type)
}

// modelFile is the on-disk JSON model format.
type modelFile struct {
	Version   string    `json:"version"`
	TrainedAt string    `json:"trained_at"`
	Bias      float64   `json:"bias"`
	Weights   []float64 `json:"weights"`
}

// Logistic scores features with a logistic regression model.
type Logistic struct {
	version   string
	trainedAt string
	bias      float64
	weights   []float64
}

// LoadLogistic reads a JSON model from path. When features is
// positive the model's weight count must match it exactly; a model
// trained against a different rule catalog must not load.
func LoadLogistic(path string, features int) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(mf.Weights) == 0 {
		return nil, fmt.Errorf("model %s has no weights", path)
	}
	if features > 0 && len(mf.Weights) != features {
		return nil, fmt.Errorf("%w: model %s has %d weights, catalog needs %d",
			ErrFeatureMismatch, path, len(mf.Weights), features)
	}

	return &Logistic{
		version:   mf.Version,
		trainedAt: mf.TrainedAt,
		bias:      mf.Bias,
		weights:   mf.Weights,
	}, nil
}

// Predict applies the model: sigmoid(bias + w . features).
func (l *Logistic) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != len(l.weights) {
		return 0, fmt.Errorf("%w: got %d features, model expects %d",
			ErrFeatureMismatch, len(features), len(l.weights))
	}

	z := l.bias
	for i, w := range l.weights {
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// Features returns the model's expected vector width.
func (l *Logistic) Features() int { return len(l.weights) }

// Info describes the loaded model.
func (l *Logistic) Info() domain.OracleInfo {
	return domain.OracleInfo{Type: "logistic", Version: l.version, TrainedAt: l.trainedAt}
}

// Static returns a fixed probability for every prediction. Useful for
// development and load testing, where a trained model is not wanted.
type Static struct {
	probability float64
	features    int
}

// NewStatic builds a static oracle expecting the given vector width.
func NewStatic(probability float64, features int) *Static {
	return &Static{probability: probability, features: features}
}

// Predict returns the configured probability. Width is still checked
// so a static oracle surfaces the same configuration mistakes a real
// model would.
func (s *Static) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != s.features {
		return 0, fmt.Errorf("%w: got %d features, oracle expects %d",
			ErrFeatureMismatch, len(features), s.features)
	}
	return s.probability, nil
}

// Features returns the expected vector width.
func (s *Static) Features() int { return s.features }

// Info describes the oracle.
func (s *Static) Info() domain.OracleInfo {
	return domain.OracleInfo{Type: "static"}
}
