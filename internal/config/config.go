// Package config loads lucid's YAML configuration and applies environment
// overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robottwo/lucid/internal/core"
)

// Environment variables that override file values.
const (
	EnvConfigPath   = "LUCID_CONFIG"
	EnvModelAPIKey  = "LUCID_MODEL_API_KEY"
	EnvModelBaseURL = "LUCID_MODEL_BASE_URL"
	EnvModelID      = "LUCID_MODEL_ID"
	EnvLogLevel     = "LUCID_LOG_LEVEL"
)

// ModelConfig selects and configures the model callable.
type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	ModelID     string   `yaml:"model_id"`
	Temperature *float64 `yaml:"temperature"`
}

// EngineConfig points at one explainer engine service.
type EngineConfig struct {
	Endpoint    string `yaml:"endpoint"`
	MaxSamples  int    `yaml:"max_samples"`
	NumFeatures int    `yaml:"num_features"`
	NumSamples  int    `yaml:"num_samples"`
}

// DashboardConfig configures the web dashboard.
type DashboardConfig struct {
	Listen string `yaml:"listen"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel   string                  `yaml:"log_level"`
	Explainers []string                `yaml:"explainers"`
	Model      ModelConfig             `yaml:"model"`
	Engines    map[string]EngineConfig `yaml:"engines"`
	Dashboard  DashboardConfig         `yaml:"dashboard"`
	Store      StoreConfig             `yaml:"store"`
}

// Default returns the configuration used when no file exists: the offline
// lexicon model and both engines on their conventional local ports.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		Explainers: []string{"shap", "lime"},
		Model: ModelConfig{
			Provider: "lexicon",
		},
		Engines: map[string]EngineConfig{
			"shap": {Endpoint: "http://127.0.0.1:8151", MaxSamples: 100},
			"lime": {Endpoint: "http://127.0.0.1:8152", NumFeatures: 10, NumSamples: 1000},
		},
		Dashboard: DashboardConfig{
			Listen: "127.0.0.1:8050",
		},
		Store: StoreConfig{
			Path: core.RunsFile(),
		},
	}
}

// Load reads the config file at path, falling back to $LUCID_CONFIG and
// then the default location. A missing file is not an error; defaults
// apply. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = core.ConfigFile()
	}

	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults plus env apply
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvModelAPIKey); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv(EnvModelBaseURL); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv(EnvModelID); v != "" {
		c.Model.ModelID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if len(c.Explainers) == 0 {
		return fmt.Errorf("explainers list is empty")
	}
	for _, method := range c.Explainers {
		if _, ok := c.Engines[method]; !ok {
			return fmt.Errorf("explainer %q has no engine configured", method)
		}
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is empty")
	}
	return nil
}
