// Package engine implements explain.Explainer backends that delegate
// attribution math to external explainer engine services over HTTP.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/decoder"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/pkg/explain"
)

// engineVersionRange is the protocol range this client speaks. Checked
// against GET /v1/version on first use.
const engineVersionRange = ">= 1.0.0, < 2.0.0"

var versionConstraint = mustConstraint(engineVersionRange)

func mustConstraint(rangeStr string) *semver.Constraints {
	constraint, err := semver.NewConstraint(rangeStr)
	if err != nil {
		panic(fmt.Sprintf("invalid engine version constraint: %v", err))
	}
	return constraint
}

// clientTransport stamps identifying headers on every engine request.
type clientTransport struct {
	base http.RoundTripper
}

func (t *clientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "lucid-engine-client")
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

// Client talks to one explainer engine service and implements
// explain.Explainer for the method that engine hosts.
type Client struct {
	method     string
	baseURL    string
	options    Options
	httpClient *http.Client
	logger     *zap.Logger

	versionOnce sync.Once
	versionErr  error
}

// NewClient creates an engine client for the given method and endpoint.
func NewClient(method, baseURL string, options Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		method:  method,
		baseURL: baseURL,
		options: options,
		httpClient: &http.Client{
			Transport: &clientTransport{base: http.DefaultTransport},
			Timeout:   120 * time.Second,
		},
		logger: logger,
	}
}

// Name returns the explanation method this client serves.
func (c *Client) Name() string {
	return c.method
}

// Explain runs the two-phase perturb/attribute protocol against the engine.
func (c *Client) Explain(ctx context.Context, mode explain.Mode, batch explain.TextBatch, evaluate explain.EvaluateFunc) (*explain.LocalExplanation, error) {
	if err := c.ensureCompatible(ctx); err != nil {
		return nil, err
	}

	perturbed, err := c.perturb(ctx, mode, batch)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(perturbed.Variants))
	for i, v := range perturbed.Variants {
		texts[i] = v.Text
	}

	c.logger.Debug(
		"scoring engine variants",
		zap.String("method", c.method),
		zap.String("jobId", perturbed.JobID),
		zap.Int("variants", len(texts)),
	)

	scores, err := evaluate(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("scoring %d variants: %w", len(texts), err)
	}

	attributed, err := c.attribute(ctx, perturbed.JobID, scores)
	if err != nil {
		return nil, err
	}

	return assemble(batch, attributed)
}

// ensureCompatible performs the one-time version handshake. The result is
// cached for the client's lifetime, including failures.
func (c *Client) ensureCompatible(ctx context.Context) error {
	c.versionOnce.Do(func() {
		body, err := c.send(ctx, http.MethodGet, "/v1/version", nil)
		if err != nil {
			c.versionErr = fmt.Errorf("engine version handshake: %w", err)
			return
		}

		var resp versionResponse
		if err := sonic.Unmarshal(body, &resp); err != nil {
			c.versionErr = fmt.Errorf("parsing engine version: %w", err)
			return
		}

		version, err := semver.NewVersion(resp.Version)
		if err != nil {
			c.versionErr = fmt.Errorf("engine reported invalid version %q: %w", resp.Version, err)
			return
		}
		if !versionConstraint.Check(version) {
			c.versionErr = fmt.Errorf("engine version %s outside supported range %s", version, engineVersionRange)
			return
		}

		c.logger.Debug(
			"engine handshake complete",
			zap.String("method", c.method),
			zap.String("engineVersion", version.String()),
		)
	})
	return c.versionErr
}

func (c *Client) perturb(ctx context.Context, mode explain.Mode, batch explain.TextBatch) (*perturbResponse, error) {
	request := perturbRequest{
		RequestID: uuid.NewString(),
		Method:    c.method,
		Mode:      string(mode),
		Instances: batch.Values(),
		Options:   c.options,
	}

	body, err := sonic.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshalling perturb request: %w", err)
	}

	respBody, err := c.send(ctx, http.MethodPost, "/v1/perturb", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("perturbing instances: %w", err)
	}

	var resp perturbResponse
	if err := decoder.NewDecoder(string(respBody)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parsing perturb response: %w", err)
	}
	if resp.JobID == "" {
		return nil, fmt.Errorf("perturb response missing job_id")
	}
	return &resp, nil
}

func (c *Client) attribute(ctx context.Context, jobID string, scores [][]float64) (*attributeResponse, error) {
	body, err := sonic.Marshal(attributeRequest{JobID: jobID, Scores: scores})
	if err != nil {
		return nil, fmt.Errorf("marshalling attribute request: %w", err)
	}

	respBody, err := c.send(ctx, http.MethodPost, "/v1/attribute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("attributing scores: %w", err)
	}

	var resp attributeResponse
	if err := decoder.NewDecoder(string(respBody)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parsing attribute response: %w", err)
	}
	return &resp, nil
}

// send issues an HTTP request to the engine and returns the response body.
// Non-2xx statuses are surfaced with the body text for diagnosis.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building engine URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("engine returned status %d from %s: %s", resp.StatusCode, endpoint, string(respBody))
	}
	return respBody, nil
}

// assemble maps wire explanations back onto the batch, preserving batch
// order and validating that the engine covered every instance exactly once.
func assemble(batch explain.TextBatch, resp *attributeResponse) (*explain.LocalExplanation, error) {
	instances := make([]explain.InstanceExplanation, batch.Len())
	seen := make([]bool, batch.Len())

	for _, wire := range resp.Explanations {
		if wire.InstanceIndex < 0 || wire.InstanceIndex >= batch.Len() {
			return nil, fmt.Errorf("engine returned out-of-range instance index %d", wire.InstanceIndex)
		}
		if seen[wire.InstanceIndex] {
			return nil, fmt.Errorf("engine returned duplicate explanation for instance %d", wire.InstanceIndex)
		}
		seen[wire.InstanceIndex] = true

		attributions := make([]explain.TokenAttribution, len(wire.Tokens))
		for i, token := range wire.Tokens {
			attributions[i] = explain.TokenAttribution{Token: token.Token, Score: token.Score}
		}

		instances[wire.InstanceIndex] = explain.InstanceExplanation{
			Text:           batch.At(wire.InstanceIndex),
			PredictedLabel: wire.PredictedLabel,
			PredictedScore: wire.PredictedScore,
			Attributions:   attributions,
		}
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("engine returned no explanation for instance %d", i)
		}
	}

	return &explain.LocalExplanation{Instances: instances}, nil
}
