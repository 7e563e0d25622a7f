package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/store"
	"github.com/robottwo/lucid/pkg/explain"
)

func newServerWithRun(t *testing.T) (*Server, string) {
	t.Helper()

	runStore, err := store.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runStore.Close() })

	explanation := &explain.LocalExplanation{
		Method: "shap",
		Mode:   explain.ModeClassification,
		Instances: []explain.InstanceExplanation{
			{
				Text:           "what a great movie",
				PredictedLabel: 1,
				PredictedClass: "positive",
				PredictedScore: 0.92,
				Attributions: []explain.TokenAttribution{
					{Token: "great", Score: 0.81},
					{Token: "movie", Score: -0.12},
				},
			},
		},
	}
	_, err = runStore.SaveRun("run-1", "shap", explain.ModeClassification, "lexicon", 20*time.Millisecond, explanation)
	require.NoError(t, err)

	server, err := New(runStore, "127.0.0.1:0", zap.NewNop())
	require.NoError(t, err)
	return server, "run-1"
}

func TestServer_IndexListsRuns(t *testing.T) {
	server, _ := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")
	assert.Contains(t, rec.Body.String(), "shap")
	assert.Contains(t, rec.Body.String(), "lexicon")
}

func TestServer_RunPageRendersHeatmap(t *testing.T) {
	server, runID := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run/"+runID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "great")
	assert.Contains(t, body, "positive")
	assert.Contains(t, body, "rgba(34, 197, 94")
	assert.Contains(t, body, "rgba(239, 68, 68")
}

func TestServer_RunPageUnknownID(t *testing.T) {
	server, _ := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIRuns(t *testing.T) {
	server, _ := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload []apiEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "run-1", payload[0].RunID)
	assert.Equal(t, 1, payload[0].InstanceCount)
}

func TestServer_APIRunDetailIncludesExplanation(t *testing.T) {
	server, runID := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload []apiRunDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.NotNil(t, payload[0].Explanation)
	assert.Equal(t, "great", payload[0].Explanation.Instances[0].Attributions[0].Token)
}

func TestServer_Healthz(t *testing.T) {
	server, _ := newServerWithRun(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_ShowStopsOnContextCancel(t *testing.T) {
	// Register before newServerWithRun so this cleanup runs after the run
	// store's Close cleanup, otherwise database/sql pool goroutines are
	// still alive when goleak checks.
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	server, _ := newServerWithRun(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Show(ctx)
	}()

	// Give the listener a moment to come up, then cancel
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Show did not return after context cancellation")
	}
}

func TestHeatStyle(t *testing.T) {
	assert.Contains(t, string(heatStyle(0.5, 1.0)), "34, 197, 94")
	assert.Contains(t, string(heatStyle(-0.5, 1.0)), "239, 68, 68")
	assert.Empty(t, string(heatStyle(0, 1.0)))
	assert.Empty(t, string(heatStyle(0.5, 0)))
}
