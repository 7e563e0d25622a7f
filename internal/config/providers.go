package config

// Provider is a model provider preset supplying defaults for common
// OpenAI-compatible endpoints, plus the offline lexicon model.
type Provider struct {
	ID             string
	Name           string
	Desc           string
	DefaultBaseURL string
	DefaultModel   string
	RequiresAPIKey bool
}

// AllProviders returns the supported provider presets (alphabetically
// sorted, lexicon first as the offline default).
var AllProviders = []Provider{
	{
		ID:   "lexicon",
		Name: "Built-in lexicon",
		Desc: "Offline word-polarity model, no credentials needed",
	},
	{
		ID:             "deepseek",
		Name:           "DeepSeek",
		Desc:           "DeepSeek language models",
		DefaultBaseURL: "https://api.deepseek.com/v1",
		DefaultModel:   "deepseek-chat",
		RequiresAPIKey: true,
	},
	{
		ID:             "ollama",
		Name:           "Ollama",
		Desc:           "Local models served by Ollama",
		DefaultBaseURL: "http://localhost:11434/v1",
		DefaultModel:   "llama3.1",
		RequiresAPIKey: false,
	},
	{
		ID:             "openai",
		Name:           "OpenAI",
		Desc:           "GPT models from OpenAI",
		DefaultBaseURL: "https://api.openai.com/v1",
		DefaultModel:   "gpt-4o-mini",
		RequiresAPIKey: true,
	},
	{
		ID:             "openrouter",
		Name:           "OpenRouter",
		Desc:           "Many models behind one OpenAI-compatible API",
		DefaultBaseURL: "https://openrouter.ai/api/v1",
		DefaultModel:   "openai/gpt-4o-mini",
		RequiresAPIKey: true,
	},
}

// FindProvider returns the preset with the given id, or nil.
func FindProvider(id string) *Provider {
	for i := range AllProviders {
		if AllProviders[i].ID == id {
			return &AllProviders[i]
		}
	}
	return nil
}

// Resolve fills empty BaseURL and ModelID from the provider preset. It
// returns the resolved copy so the original config stays untouched.
func (m ModelConfig) Resolve() ModelConfig {
	preset := FindProvider(m.Provider)
	if preset == nil {
		return m
	}
	if m.BaseURL == "" {
		m.BaseURL = preset.DefaultBaseURL
	}
	if m.ModelID == "" {
		m.ModelID = preset.DefaultModel
	}
	return m
}
