package capture

import "errors"

// ErrPermissionDenied is reported by a provider when the environment refuses
// audio input access. Callers must treat it as non-recoverable: no automatic
// session restart may be attempted.
var ErrPermissionDenied = errors.New("capture: audio input permission denied")

// Segment is a single recognition result within an [Event].
type Segment struct {
	// Text is the transcribed speech for this segment.
	Text string

	// IsFinal indicates whether the engine has committed to this result.
	// Interim segments may be revised by later events; final segments are
	// authoritative and never re-emitted.
	IsFinal bool

	// Confidence is the engine's confidence score (0.0–1.0). May be zero
	// when the provider does not report confidence.
	Confidence float64
}

// Event is one recognition callback from the capture engine. An event
// carries zero or more segments; final segments accumulate across events
// while interim segments describe only the current, still-revisable tail of
// the utterance.
type Event struct {
	Segments []Segment
}
