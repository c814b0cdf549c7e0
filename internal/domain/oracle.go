package domain

import (
	"context"
)

// Oracle scores a feature vector into a reward probability in [0,1].
// Implementations must be safe for concurrent use; Predict is called
// exactly once per decision.
type Oracle interface {
	// Predict returns the probability that the activity described by
	// features deserves a reward. The vector length must equal
	// Features(); a mismatch is an error and fails the decision.
	Predict(ctx context.Context, features []float64) (float64, error)

	// Features returns the vector width the oracle was built for.
	Features() int

	// Info describes the loaded model for diagnostics.
	Info() OracleInfo
}

// OracleInfo describes a loaded model.
type OracleInfo struct {
	Type      string `json:"type"`
	Version   string `json:"version,omitempty"`
	TrainedAt string `json:"trained_at,omitempty"`
}

// OracleConfig holds configuration for oracle initialization.
type OracleConfig struct {
	// Type is the oracle type: "logistic" or "static"
	Type string `json:"type"`

	// ModelPath points at a JSON model file (logistic).
	ModelPath string `json:"model_path"`

	// Probability is the fixed score returned by the static oracle.
	Probability float64 `json:"probability"`
}
