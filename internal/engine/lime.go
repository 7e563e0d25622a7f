package engine

// MethodLIME is the registry name of the LIME engine backend.
const MethodLIME = "lime"

// DefaultLIMEOptions mirrors the engine's own defaults for interactive use.
var DefaultLIMEOptions = Options{NumFeatures: 10, NumSamples: 1000}

// RegisterLIME wires a LIME engine endpoint into the explain registry.
func RegisterLIME(endpoint string, options Options) {
	Register(MethodLIME, endpoint, options)
}
