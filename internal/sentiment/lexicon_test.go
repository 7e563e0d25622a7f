package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robottwo/lucid/pkg/explain"
)

func TestNewLexiconClassifier_LoadsEmbeddedLexicon(t *testing.T) {
	classifier, err := NewLexiconClassifier()

	require.NoError(t, err)
	assert.NotEmpty(t, classifier.weights)
}

func TestLexiconClassifier_Scores_SignMatchesSentiment(t *testing.T) {
	classifier, err := NewLexiconClassifier()
	require.NoError(t, err)

	scores, err := classifier.Scores(context.Background(), []string{
		"what a great movie, simply wonderful",
		"a terrible, boring waste of time",
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// Positive review: positive logit dominates
	assert.Greater(t, scores[0][1], scores[0][0])
	// Negative review: negative logit dominates
	assert.Greater(t, scores[1][0], scores[1][1])
}

func TestLexiconClassifier_Scores_NeutralTextIsBalanced(t *testing.T) {
	classifier, err := NewLexiconClassifier()
	require.NoError(t, err)

	scores, err := classifier.Scores(context.Background(), []string{"the movie ran for two hours"})
	require.NoError(t, err)

	assert.InDelta(t, scores[0][0], scores[0][1], 1e-9)
}

func TestLexiconClassifier_Scores_ComposesWithSoftmax(t *testing.T) {
	classifier, err := NewLexiconClassifier()
	require.NoError(t, err)

	scores, err := classifier.Scores(context.Background(), []string{"an excellent masterpiece"})
	require.NoError(t, err)

	probs := explain.Softmax(scores)
	assert.InDelta(t, 1.0, probs[0][0]+probs[0][1], 1e-9)
	assert.Greater(t, probs[0][1], 0.9)
}

func TestLexiconClassifier_Scores_CancelledContext(t *testing.T) {
	classifier, err := NewLexiconClassifier()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = classifier.Scores(ctx, []string{"good"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Lowercases and splits on punctuation",
			input:    "Great, really GREAT!",
			expected: []string{"great", "really", "great"},
		},
		{
			name:     "Keeps apostrophes inside words",
			input:    "don't stop",
			expected: []string{"don't", "stop"},
		},
		{
			name:     "Empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "Digits are separators",
			input:    "movie2night",
			expected: []string{"movie", "night"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}
