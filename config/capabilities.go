package config

// Capabilities is the per-binary feature set. It decides which variants
// exist and which optional keys take effect.
type Capabilities struct {
	ACME      bool
	HTTP3     bool
	CORS      bool
	OpenAPI   bool
	Telemetry bool
	// LogUnfiltered lets framework-internal records reach every log sink.
	LogUnfiltered bool
	// Debug turns the console sink on at debug when log_level is absent.
	Debug bool
}

// AllCapabilities enables every optional feature except unfiltered logging
// and the debug console default.
func AllCapabilities() Capabilities {
	return Capabilities{ACME: true, HTTP3: true, CORS: true, OpenAPI: true, Telemetry: true}
}

// Variants lists the variants available under c in registry order.
func (c Capabilities) Variants() []Variant {
	var out []Variant
	for _, s := range registry {
		if s.gate(c) {
			out = append(out, s.variant)
		}
	}
	return out
}
