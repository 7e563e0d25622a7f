package engine

// Wire types for the explainer engine protocol. An engine owns the
// attribution math; the client owns the model. One explanation round trips
// through two calls: /v1/perturb hands back masked text variants, the
// client scores them with the local model pipeline, and /v1/attribute
// exchanges those scores for per-token attributions.

// Options tunes how an engine samples perturbations. Zero values are
// omitted and the engine applies its own defaults.
type Options struct {
	// MaxSamples caps the number of perturbed variants per instance (shap).
	MaxSamples int `json:"max_samples,omitempty"`
	// NumFeatures caps the number of attributed tokens (lime).
	NumFeatures int `json:"num_features,omitempty"`
	// NumSamples sets the neighborhood size (lime).
	NumSamples int `json:"num_samples,omitempty"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type perturbRequest struct {
	RequestID string   `json:"request_id"`
	Method    string   `json:"method"`
	Mode      string   `json:"mode"`
	Instances []string `json:"instances"`
	Options   Options  `json:"options"`
}

// variant is one perturbed text the client must score with the model.
type variant struct {
	InstanceIndex int    `json:"instance_index"`
	Text          string `json:"text"`
}

type perturbResponse struct {
	JobID    string    `json:"job_id"`
	Variants []variant `json:"variants"`
}

// attributeRequest returns model scores for the variants, aligned to the
// order of perturbResponse.Variants.
type attributeRequest struct {
	JobID  string      `json:"job_id"`
	Scores [][]float64 `json:"scores"`
}

type wireAttribution struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}

type wireExplanation struct {
	InstanceIndex  int               `json:"instance_index"`
	PredictedLabel int               `json:"predicted_label"`
	PredictedScore float64           `json:"predicted_score"`
	Tokens         []wireAttribution `json:"tokens"`
}

type attributeResponse struct {
	Explanations []wireExplanation `json:"explanations"`
}
