package engine

// MethodSHAP is the registry name of the SHAP engine backend.
const MethodSHAP = "shap"

// DefaultSHAPOptions bounds sampling so explanations stay responsive on
// interactive use. Engines may sample fewer variants for short texts.
var DefaultSHAPOptions = Options{MaxSamples: 100}

// RegisterSHAP wires a SHAP engine endpoint into the explain registry.
func RegisterSHAP(endpoint string, options Options) {
	Register(MethodSHAP, endpoint, options)
}
