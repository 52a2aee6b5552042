package detect

// Builtins returns the standard detectors with default thresholds, in the
// order they are registered.
func Builtins() []Detector {
	return []Detector{
		NewVisionGap(),
		NewDeathPattern(),
		NewObjectiveSetup(),
		NewOverextension(),
		NewLostTrades(),
		NewWaveControl(),
	}
}

// NewDefaultRegistry returns a registry holding the built-in detectors.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, d := range Builtins() {
		// names are unique by construction
		_ = r.Register(d)
	}
	return r
}
