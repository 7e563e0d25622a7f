package explain

import (
	"context"
	"math"
)

// Mode identifies the task the model solves. It controls how explainer
// backends interpret model outputs.
type Mode string

const (
	// ModeClassification treats model outputs as per-class scores.
	ModeClassification Mode = "classification"
	// ModeRegression treats model outputs as a single continuous value.
	ModeRegression Mode = "regression"
)

// Valid reports whether m is a known task mode.
func (m Mode) Valid() bool {
	return m == ModeClassification || m == ModeRegression
}

// InferenceFunc is the model callable: it takes preprocessed texts and
// returns one score vector per input (per-class scores for classification,
// a single-element vector for regression).
type InferenceFunc func(ctx context.Context, inputs []string) ([][]float64, error)

// PreprocessFunc adapts a TextBatch into the raw strings the model expects.
// When nil, TextBatch.Values is used.
type PreprocessFunc func(batch TextBatch) []string

// PostprocessFunc adapts raw model outputs, e.g. turning logits into
// probabilities. When nil, outputs pass through unchanged.
type PostprocessFunc func(scores [][]float64) [][]float64

// EvaluateFunc is the composed preprocess -> model -> postprocess pipeline
// handed to explainer backends. Backends score perturbed texts through it
// without knowing anything about the underlying model.
type EvaluateFunc func(ctx context.Context, inputs []string) ([][]float64, error)

// Softmax is a stock PostprocessFunc converting each row of logits into a
// probability distribution. Rows are handled independently and the
// computation is shifted by the row max to stay numerically stable.
func Softmax(scores [][]float64) [][]float64 {
	out := make([][]float64, len(scores))
	for i, row := range scores {
		probs := make([]float64, len(row))
		if len(row) == 0 {
			out[i] = probs
			continue
		}

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for j, v := range row {
			probs[j] = math.Exp(v - maxVal)
			sum += probs[j]
		}
		for j := range probs {
			probs[j] /= sum
		}
		out[i] = probs
	}
	return out
}
