package oracle

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}
	return path
}

func TestLoadLogistic(t *testing.T) {
	path := writeModel(t, `{
		"version": "1.2.0",
		"trained_at": "2025-03-01T10:00:00Z",
		"bias": -0.5,
		"weights": [0.1, 0.2, 0.3]
	}`)

	model, err := LoadLogistic(path, 3)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	if model.Features() != 3 {
		t.Errorf("expected 3 features, got %d", model.Features())
	}
	info := model.Info()
	if info.Type != "logistic" || info.Version != "1.2.0" {
		t.Errorf("unexpected model info: %+v", info)
	}
}

func TestLoadLogisticRejectsWidthMismatch(t *testing.T) {
	path := writeModel(t, `{"bias": 0, "weights": [0.1, 0.2]}`)

	_, err := LoadLogistic(path, 5)
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestLoadLogisticRejectsEmptyModel(t *testing.T) {
	path := writeModel(t, `{"bias": 0.5, "weights": []}`)

	if _, err := LoadLogistic(path, 0); err == nil {
		t.Fatal("expected error for model with no weights")
	}
}

func TestLoadLogisticMissingFile(t *testing.T) {
	if _, err := LoadLogistic("/nonexistent/model.json", 3); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLogisticPredict(t *testing.T) {
	model := &Logistic{bias: 0, weights: []float64{0, 0, 0}}

	p, err := model.Predict(context.Background(), []float64{5, 3, 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	// All-zero weights and bias give sigmoid(0) = 0.5 exactly.
	if p != 0.5 {
		t.Errorf("expected 0.5, got %g", p)
	}

	model = &Logistic{bias: 0, weights: []float64{1}}
	high, _ := model.Predict(context.Background(), []float64{10})
	low, _ := model.Predict(context.Background(), []float64{-10})
	if high <= 0.99 {
		t.Errorf("large positive activation should score near 1, got %g", high)
	}
	if low >= 0.01 {
		t.Errorf("large negative activation should score near 0, got %g", low)
	}
	if high <= low {
		t.Error("prediction should increase with activation")
	}
}

func TestLogisticPredictSigmoid(t *testing.T) {
	model := &Logistic{bias: 1, weights: []float64{2, -1}}

	p, err := model.Predict(context.Background(), []float64{1.5, 0.5})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := 1.0 / (1.0 + math.Exp(-(1 + 2*1.5 - 1*0.5)))
	if math.Abs(p-want) > 1e-12 {
		t.Errorf("expected %g, got %g", want, p)
	}
	if p < 0 || p > 1 {
		t.Errorf("probability out of range: %g", p)
	}
}

func TestLogisticPredictWidthMismatch(t *testing.T) {
	model := &Logistic{bias: 0, weights: []float64{0.1, 0.2}}

	_, err := model.Predict(context.Background(), []float64{1, 2, 3})
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(0.65, 4)

	p, err := s.Predict(context.Background(), []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if p != 0.65 {
		t.Errorf("expected 0.65, got %g", p)
	}

	if _, err := s.Predict(context.Background(), []float64{1}); !errors.Is(err, ErrFeatureMismatch) {
		t.Errorf("expected ErrFeatureMismatch for short vector, got %v", err)
	}
}

func TestNew(t *testing.T) {
	o, err := New(domain.OracleConfig{Type: "static", Probability: 0.7}, 10)
	if err != nil {
		t.Fatalf("static construction failed: %v", err)
	}
	if o.Info().Type != "static" {
		t.Errorf("expected static oracle, got %s", o.Info().Type)
	}

	path := writeModel(t, `{"bias": 0, "weights": [0.1, 0.2, 0.3]}`)
	o, err = New(domain.OracleConfig{Type: "logistic", ModelPath: path}, 3)
	if err != nil {
		t.Fatalf("logistic construction failed: %v", err)
	}
	if o.Info().Type != "logistic" {
		t.Errorf("expected logistic oracle, got %s", o.Info().Type)
	}

	if _, err := New(domain.OracleConfig{Type: "neural"}, 3); err == nil {
		t.Error("expected error for unsupported oracle type")
	}
}
