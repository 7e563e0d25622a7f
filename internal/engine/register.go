package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/config"
	"github.com/robottwo/lucid/pkg/explain"
)

// OptionsFor returns the default sampling options for a known method
// name, or the zero Options for engines lucid has no presets for. Zero
// options let the engine choose its own defaults.
func OptionsFor(method string) Options {
	switch method {
	case MethodSHAP:
		return DefaultSHAPOptions
	case MethodLIME:
		return DefaultLIMEOptions
	default:
		return Options{}
	}
}

// Register wires an arbitrary engine endpoint into the explain registry
// under the given method name. The endpoint is validated lazily so that
// configuring an engine never fails before it is actually selected.
func Register(method, endpoint string, options Options) {
	explain.Register(method, func(logger *zap.Logger) (explain.Explainer, error) {
		if endpoint == "" {
			return nil, fmt.Errorf("engine: no endpoint configured for method %q", method)
		}
		return NewClient(method, endpoint, options, logger), nil
	})
}

// RegisterAll wires every configured engine into the explain registry under
// its method name. Option fields left unset in config fall back to the
// per-method defaults.
func RegisterAll(engines map[string]config.EngineConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for method, ec := range engines {
		Register(method, ec.Endpoint, optionsFromConfig(method, ec))

		logger.Debug(
			"registered explainer engine",
			zap.String("method", method),
			zap.String("endpoint", ec.Endpoint),
		)
	}
}

func optionsFromConfig(method string, ec config.EngineConfig) Options {
	options := OptionsFor(method)
	if ec.MaxSamples > 0 {
		options.MaxSamples = ec.MaxSamples
	}
	if ec.NumFeatures > 0 {
		options.NumFeatures = ec.NumFeatures
	}
	if ec.NumSamples > 0 {
		options.NumSamples = ec.NumSamples
	}
	return options
}
