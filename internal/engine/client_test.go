package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/config"
	"github.com/robottwo/lucid/pkg/explain"
)

// fakeEngine serves a minimal, well-behaved engine for one explanation
// round: every instance yields two variants and one token per word.
type fakeEngine struct {
	version       string
	perturbCalls  int
	scoresPosted  [][]float64
	failPerturb   bool
	failAttribute bool
}

func (f *fakeEngine) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"version": f.version})
	})

	mux.HandleFunc("/v1/perturb", func(w http.ResponseWriter, r *http.Request) {
		f.perturbCalls++
		if f.failPerturb {
			http.Error(w, `{"error":"sampler exploded"}`, http.StatusInternalServerError)
			return
		}

		var req perturbRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := perturbResponse{JobID: "job-1"}
		for i, text := range req.Instances {
			resp.Variants = append(resp.Variants,
				variant{InstanceIndex: i, Text: text},
				variant{InstanceIndex: i, Text: ""},
			)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/v1/attribute", func(w http.ResponseWriter, r *http.Request) {
		if f.failAttribute {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		var req attributeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.scoresPosted = req.Scores

		resp := attributeResponse{
			Explanations: []wireExplanation{
				{
					InstanceIndex:  1,
					PredictedLabel: 0,
					PredictedScore: 0.7,
					Tokens:         []wireAttribution{{Token: "terrible", Score: -0.6}},
				},
				{
					InstanceIndex:  0,
					PredictedLabel: 1,
					PredictedScore: 0.9,
					Tokens:         []wireAttribution{{Token: "great", Score: 0.8}},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func evaluateConstant(score float64) explain.EvaluateFunc {
	return func(ctx context.Context, inputs []string) ([][]float64, error) {
		scores := make([][]float64, len(inputs))
		for i := range scores {
			scores[i] = []float64{1 - score, score}
		}
		return scores, nil
	}
}

func TestClient_Explain_FullRoundTrip(t *testing.T) {
	engine := &fakeEngine{version: "1.4.2"}
	server := httptest.NewServer(engine.handler())
	defer server.Close()

	client := NewClient(MethodSHAP, server.URL, DefaultSHAPOptions, zap.NewNop())
	batch := explain.NewTextBatch("a great movie", "a terrible movie")

	explanation, err := client.Explain(context.Background(), explain.ModeClassification, batch, evaluateConstant(0.9))
	require.NoError(t, err)

	// Instances come back in batch order even though the engine answered
	// out of order
	require.Len(t, explanation.Instances, 2)
	assert.Equal(t, "a great movie", explanation.Instances[0].Text)
	assert.Equal(t, 1, explanation.Instances[0].PredictedLabel)
	assert.Equal(t, "great", explanation.Instances[0].Attributions[0].Token)
	assert.Equal(t, "a terrible movie", explanation.Instances[1].Text)
	assert.InDelta(t, -0.6, explanation.Instances[1].Attributions[0].Score, 1e-9)

	// Two variants per instance were scored and posted back
	assert.Len(t, engine.scoresPosted, 4)
}

func TestClient_Explain_RejectsIncompatibleEngineVersion(t *testing.T) {
	engine := &fakeEngine{version: "2.1.0"}
	server := httptest.NewServer(engine.handler())
	defer server.Close()

	client := NewClient(MethodLIME, server.URL, Options{}, zap.NewNop())

	_, err := client.Explain(context.Background(), explain.ModeClassification, explain.NewTextBatch("x"), evaluateConstant(0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside supported range")
	assert.Zero(t, engine.perturbCalls)
}

func TestClient_Explain_VersionCheckedOnce(t *testing.T) {
	versionCalls := 0
	engine := &fakeEngine{version: "1.0.0"}
	inner := engine.handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/version" {
			versionCalls++
		}
		inner.ServeHTTP(w, r)
	}))
	defer server.Close()

	client := NewClient(MethodSHAP, server.URL, Options{}, zap.NewNop())
	batch := explain.NewTextBatch("a great movie", "a terrible movie")

	for i := 0; i < 3; i++ {
		_, err := client.Explain(context.Background(), explain.ModeClassification, batch, evaluateConstant(0.9))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, versionCalls)
}

func TestClient_Explain_SurfacesEngineErrorBody(t *testing.T) {
	engine := &fakeEngine{version: "1.2.0", failPerturb: true}
	server := httptest.NewServer(engine.handler())
	defer server.Close()

	client := NewClient(MethodSHAP, server.URL, Options{}, zap.NewNop())

	_, err := client.Explain(context.Background(), explain.ModeClassification, explain.NewTextBatch("x"), evaluateConstant(0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "sampler exploded")
}

func TestClient_Explain_AttributeFailure(t *testing.T) {
	engine := &fakeEngine{version: "1.2.0", failAttribute: true}
	server := httptest.NewServer(engine.handler())
	defer server.Close()

	client := NewClient(MethodSHAP, server.URL, Options{}, zap.NewNop())

	_, err := client.Explain(context.Background(), explain.ModeClassification, explain.NewTextBatch("x"), evaluateConstant(0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attributing scores")
}

func TestClient_Explain_EvaluateErrorPropagates(t *testing.T) {
	engine := &fakeEngine{version: "1.2.0"}
	server := httptest.NewServer(engine.handler())
	defer server.Close()

	client := NewClient(MethodSHAP, server.URL, Options{}, zap.NewNop())
	failing := func(ctx context.Context, inputs []string) ([][]float64, error) {
		return nil, context.DeadlineExceeded
	}

	_, err := client.Explain(context.Background(), explain.ModeClassification, explain.NewTextBatch("x"), failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring")
}

func TestAssemble_RejectsMissingInstance(t *testing.T) {
	batch := explain.NewTextBatch("a", "b")
	resp := &attributeResponse{
		Explanations: []wireExplanation{{InstanceIndex: 0}},
	}

	_, err := assemble(batch, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no explanation for instance 1")
}

func TestAssemble_RejectsDuplicateInstance(t *testing.T) {
	batch := explain.NewTextBatch("a")
	resp := &attributeResponse{
		Explanations: []wireExplanation{{InstanceIndex: 0}, {InstanceIndex: 0}},
	}

	_, err := assemble(batch, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestAssemble_RejectsOutOfRangeIndex(t *testing.T) {
	batch := explain.NewTextBatch("a")
	resp := &attributeResponse{
		Explanations: []wireExplanation{{InstanceIndex: 3}},
	}

	_, err := assemble(batch, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range")
}

func TestRegisterAll_WiresConfiguredEngines(t *testing.T) {
	engines := map[string]config.EngineConfig{
		MethodSHAP: {Endpoint: "http://127.0.0.1:8151"},
		MethodLIME: {Endpoint: "http://127.0.0.1:8152"},
	}
	RegisterAll(engines, zap.NewNop())
	t.Cleanup(func() {
		explain.Unregister(MethodSHAP)
		explain.Unregister(MethodLIME)
	})

	assert.Contains(t, explain.Methods(), MethodSHAP)
	assert.Contains(t, explain.Methods(), MethodLIME)

	explainer, err := explain.New(explain.Config{
		Explainers: []string{MethodSHAP, MethodLIME},
		Model: func(ctx context.Context, inputs []string) ([][]float64, error) {
			return make([][]float64, len(inputs)), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{MethodSHAP, MethodLIME}, explainer.Methods())
}

func TestOptionsFromConfig_FallsBackToMethodDefaults(t *testing.T) {
	options := optionsFromConfig(MethodLIME, config.EngineConfig{Endpoint: "http://x"})
	assert.Equal(t, DefaultLIMEOptions, options)

	options = optionsFromConfig(MethodSHAP, config.EngineConfig{MaxSamples: 7})
	assert.Equal(t, Options{MaxSamples: 7}, options)

	options = optionsFromConfig("anchor", config.EngineConfig{NumSamples: 50})
	assert.Equal(t, Options{NumSamples: 50}, options)
}

func TestRegisterSHAP_FactoryFailsWithoutEndpoint(t *testing.T) {
	RegisterSHAP("", Options{})
	t.Cleanup(func() { explain.Unregister(MethodSHAP) })

	_, err := explain.New(explain.Config{
		Explainers: []string{MethodSHAP},
		Model: func(ctx context.Context, inputs []string) ([][]float64, error) {
			return make([][]float64, len(inputs)), nil
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint configured")
}
