package explain

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
)

// TokenAttribution is a single token's contribution to the model output.
// Positive scores push the prediction toward the predicted class, negative
// scores push away from it.
type TokenAttribution struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}

// InstanceExplanation is the local explanation for one input instance.
type InstanceExplanation struct {
	Text           string             `json:"text"`
	PredictedLabel int                `json:"predicted_label"`
	PredictedClass string             `json:"predicted_class,omitempty"`
	PredictedScore float64            `json:"predicted_score"`
	Attributions   []TokenAttribution `json:"attributions"`
}

// TopTokens returns up to n attributions ordered by descending magnitude.
func (ie InstanceExplanation) TopTokens(n int) []TokenAttribution {
	sorted := make([]TokenAttribution, len(ie.Attributions))
	copy(sorted, ie.Attributions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Score) > math.Abs(sorted[j].Score)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// MaxMagnitude returns the largest absolute attribution score, used to
// scale rendered bars. Returns 0 for an empty attribution list.
func (ie InstanceExplanation) MaxMagnitude() float64 {
	var maxMag float64
	for _, attr := range ie.Attributions {
		if mag := math.Abs(attr.Score); mag > maxMag {
			maxMag = mag
		}
	}
	return maxMag
}

// LocalExplanation holds per-instance attributions produced by one
// explanation method for a whole batch. Instances appear in batch order.
type LocalExplanation struct {
	Method    string                `json:"method"`
	Mode      Mode                  `json:"mode"`
	Instances []InstanceExplanation `json:"instances"`

	// Elapsed is how long the method took, stamped by the facade.
	Elapsed time.Duration `json:"-"`
}

// Explanations maps an explainer method name to the explanation it produced.
type Explanations map[string]*LocalExplanation

// Methods returns the method names present in the mapping, sorted.
func (e Explanations) Methods() []string {
	methods := lo.Keys(e)
	sort.Strings(methods)
	return methods
}
