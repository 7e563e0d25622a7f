// Package sentiment provides model callables for text sentiment scoring,
// suitable as the model side of an explain.NLPExplainer.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Labels returns the class names, index-aligned with classifier outputs.
func Labels() []string {
	return []string{"negative", "positive"}
}

// LLMConfig configures an OpenAI-compatible sentiment classifier.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	ModelID     string
	Temperature *float64
}

// LLMClassifier scores sentiment with a chat-completion model that is asked
// to respond with per-class probabilities as a JSON object.
type LLMClassifier struct {
	client      *openai.Client
	logger      *zap.Logger
	modelID     string
	temperature *float64
}

// NewLLMClassifier builds a classifier from config.
func NewLLMClassifier(config LLMConfig, logger *zap.Logger) (*LLMClassifier, error) {
	if config.ModelID == "" {
		return nil, fmt.Errorf("sentiment: model id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &LLMClassifier{
		client:      openai.NewClientWithConfig(clientConfig),
		logger:      logger,
		modelID:     config.ModelID,
		temperature: config.Temperature,
	}, nil
}

// sentimentScores is one row of the model's JSON response.
type sentimentScores struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

type sentimentResponse struct {
	Results []sentimentScores `json:"results"`
}

const llmSystemMessage = `You are a sentiment scoring service.
You will be given texts enclosed in <text> tags, one per line.

# Instructions
* Score each text independently.
* For each text produce a 'negative' and a 'positive' probability.
* The two probabilities of a text must sum to 1.
* Respond with a JSON object of the form:
  {"results": [{"negative": 0.1, "positive": 0.9}, ...]}
* The results array must have exactly one entry per input text, in input order.`

// Scores implements explain.InferenceFunc: one [negative, positive] row per
// input text.
func (c *LLMClassifier) Scores(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var userMessage strings.Builder
	for _, text := range texts {
		fmt.Fprintf(&userMessage, "<text>%s</text>\n", text)
	}

	c.logger.Debug(
		"scoring sentiment using LLM",
		zap.String("model", c.modelID),
		zap.Int("texts", len(texts)),
	)

	request := openai.ChatCompletionRequest{
		Model: c.modelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    "system",
				Content: llmSystemMessage,
			},
			{
				Role:    "user",
				Content: userMessage.String(),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if c.temperature != nil {
		request.Temperature = float32(*c.temperature)
	}

	chatCompletion, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("sentiment: chat completion: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("sentiment: chat completion returned no choices")
	}

	return parseScores(chatCompletion.Choices[0].Message.Content, len(texts))
}

// parseScores validates the model's JSON against the requested batch size.
func parseScores(content string, want int) ([][]float64, error) {
	var response sentimentResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("sentiment: parsing model response: %w", err)
	}
	if len(response.Results) != want {
		return nil, fmt.Errorf("sentiment: model scored %d texts, expected %d", len(response.Results), want)
	}

	scores := make([][]float64, len(response.Results))
	for i, result := range response.Results {
		scores[i] = []float64{result.Negative, result.Positive}
	}
	return scores, nil
}
