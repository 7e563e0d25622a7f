package sentiment

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var lexiconData []byte

// lexiconFile is the on-disk shape of the embedded lexicon.
type lexiconFile struct {
	Words map[string]float64 `yaml:"words"`
}

// LexiconClassifier scores sentiment from an embedded word-weight lexicon.
// It needs no network or credentials, which makes it the default model for
// demos and tests. Outputs are logits; pair it with explain.Softmax.
type LexiconClassifier struct {
	weights map[string]float64
}

// NewLexiconClassifier loads the embedded lexicon.
func NewLexiconClassifier() (*LexiconClassifier, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(lexiconData, &file); err != nil {
		return nil, fmt.Errorf("sentiment: parsing embedded lexicon: %w", err)
	}
	if len(file.Words) == 0 {
		return nil, fmt.Errorf("sentiment: embedded lexicon is empty")
	}
	return &LexiconClassifier{weights: file.Words}, nil
}

// Scores implements explain.InferenceFunc. Each text yields the logits
// [-polarity, +polarity] where polarity is the summed lexicon weight of its
// tokens.
func (c *LexiconClassifier) Scores(ctx context.Context, texts []string) ([][]float64, error) {
	scores := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var polarity float64
		for _, token := range Tokenize(text) {
			polarity += c.weights[token]
		}
		scores[i] = []float64{-polarity, polarity}
	}
	return scores, nil
}

// Tokenize lowercases and splits on non-letter runes. Exported so callers
// rendering explanations can tokenize consistently with scoring.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
