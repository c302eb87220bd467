package synth

// Voice describes a synthesis voice profile.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which synth provider this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, accent, etc.).
	Metadata map[string]string
}

// Params holds the fixed synthesis parameters for an utterance.
type Params struct {
	// Rate adjusts speaking rate (0.5–2.0, 1.0 = default, 0 = default).
	Rate float64

	// Pitch adjusts pitch (0.5–2.0, 1.0 = default, 0 = default). Providers
	// without pitch control ignore this value.
	Pitch float64
}
