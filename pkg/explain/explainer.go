// Package explain provides a facade for generating local explanations of
// NLP model predictions. Explainer backends are registered by method name
// (e.g. "shap", "lime"); the NLPExplainer dispatches explanation requests
// to each configured backend and collects the results into a single mapping.
package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Explainer is implemented by explanation method backends. Explain receives
// the original batch plus the composed model pipeline so it can score
// perturbed inputs without direct access to the model.
type Explainer interface {
	Name() string
	Explain(ctx context.Context, mode Mode, batch TextBatch, evaluate EvaluateFunc) (*LocalExplanation, error)
}

// Config describes how to build an NLPExplainer.
type Config struct {
	// Explainers lists the method names to dispatch to, in order.
	Explainers []string
	// Mode is the task mode. Defaults to ModeClassification.
	Mode Mode
	// Model is the inference callable. Required.
	Model InferenceFunc
	// Preprocess adapts the batch into model inputs. Defaults to Values.
	Preprocess PreprocessFunc
	// Postprocess adapts model outputs, e.g. Softmax. Defaults to identity.
	Postprocess PostprocessFunc
	// Labels optionally maps class indices to human readable names used in
	// rendered output. Ignored for regression.
	Labels []string
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// NLPExplainer dispatches explanation requests to the configured backends.
type NLPExplainer struct {
	mode     Mode
	backends []Explainer
	evaluate EvaluateFunc
	labels   []string
	logger   *zap.Logger
}

// New builds an NLPExplainer from config. Every name in config.Explainers
// must be registered; unknown names fail construction, with a suggestion
// when a registered method looks like the intended one.
func New(config Config) (*NLPExplainer, error) {
	if config.Model == nil {
		return nil, fmt.Errorf("explain: config.Model is required")
	}
	if len(config.Explainers) == 0 {
		return nil, fmt.Errorf("explain: at least one explainer method is required")
	}

	mode := config.Mode
	if mode == "" {
		mode = ModeClassification
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("explain: unknown mode %q", config.Mode)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backends := make([]Explainer, 0, len(config.Explainers))
	seen := make(map[string]bool)
	for _, name := range config.Explainers {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		factory, ok := lookup(key)
		if !ok {
			if hint := suggest(key); hint != "" {
				return nil, fmt.Errorf("explain: unknown explainer %q (did you mean %q?)", name, hint)
			}
			return nil, fmt.Errorf("explain: unknown explainer %q", name)
		}

		backend, err := factory(logger)
		if err != nil {
			return nil, fmt.Errorf("explain: building %q backend: %w", key, err)
		}
		backends = append(backends, backend)
	}

	return &NLPExplainer{
		mode:     mode,
		backends: backends,
		evaluate: composePipeline(config.Model, config.Preprocess, config.Postprocess),
		labels:   config.Labels,
		logger:   logger,
	}, nil
}

// Mode returns the configured task mode.
func (e *NLPExplainer) Mode() Mode {
	return e.mode
}

// Methods returns the configured method names in dispatch order.
func (e *NLPExplainer) Methods() []string {
	methods := make([]string, len(e.backends))
	for i, backend := range e.backends {
		methods[i] = backend.Name()
	}
	return methods
}

// Evaluate runs the batch through the composed model pipeline. This is the
// same pipeline handed to backends, exposed so callers can inspect raw
// model scores next to explanations.
func (e *NLPExplainer) Evaluate(ctx context.Context, batch TextBatch) ([][]float64, error) {
	return e.evaluate(ctx, batch.Values())
}

// Explain generates a local explanation of the batch for every configured
// method. Backends run sequentially in configuration order; the first
// failure aborts the run. An empty batch yields an empty mapping without
// touching any backend.
func (e *NLPExplainer) Explain(ctx context.Context, batch TextBatch) (Explanations, error) {
	results := make(Explanations, len(e.backends))
	if batch.Len() == 0 {
		return results, nil
	}

	runID := uuid.NewString()
	e.logger.Info(
		"starting explanation run",
		zap.String("runId", runID),
		zap.Strings("methods", e.Methods()),
		zap.Int("instances", batch.Len()),
	)

	for _, backend := range e.backends {
		start := time.Now()

		explanation, err := backend.Explain(ctx, e.mode, batch, e.evaluate)
		if err != nil {
			return nil, fmt.Errorf("explain: method %q: %w", backend.Name(), err)
		}
		explanation.Method = backend.Name()
		explanation.Mode = e.mode
		explanation.Elapsed = time.Since(start)
		e.applyLabels(explanation)

		e.logger.Info(
			"explanation method finished",
			zap.String("runId", runID),
			zap.String("method", backend.Name()),
			zap.Duration("elapsed", time.Since(start)),
		)
		results[backend.Name()] = explanation
	}

	return results, nil
}

// applyLabels fills PredictedClass from the configured label names.
func (e *NLPExplainer) applyLabels(explanation *LocalExplanation) {
	if len(e.labels) == 0 || e.mode != ModeClassification {
		return
	}
	for i := range explanation.Instances {
		label := explanation.Instances[i].PredictedLabel
		if label >= 0 && label < len(e.labels) {
			explanation.Instances[i].PredictedClass = e.labels[label]
		}
	}
}

// composePipeline wires preprocess, model and postprocess into a single
// EvaluateFunc. Every evaluation runs the full pipeline, so perturbed
// variant texts fed back by backends are preprocessed the same way as the
// original batch.
func composePipeline(model InferenceFunc, pre PreprocessFunc, post PostprocessFunc) EvaluateFunc {
	return func(ctx context.Context, inputs []string) ([][]float64, error) {
		if pre != nil {
			inputs = pre(NewTextBatch(inputs...))
		}

		scores, err := model(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("model inference: %w", err)
		}
		if len(scores) != len(inputs) {
			return nil, fmt.Errorf("model inference: got %d score rows for %d inputs", len(scores), len(inputs))
		}

		if post != nil {
			scores = post(scores)
		}
		return scores, nil
	}
}
