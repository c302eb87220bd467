// Package synth defines the Provider interface for speech-synthesis
// backends.
//
// A synth provider wraps a text-to-speech service (e.g., the OpenAI speech
// API, ElevenLabs, or a local engine) and presents a uniform interface: one
// call synthesises one utterance and returns its audio as a chunk stream, so
// playback can begin before synthesis completes.
//
// Voice catalogues can load lazily on the provider side; callers that want
// an up-to-date catalogue must call Voices at use time rather than caching a
// possibly-empty early result.
//
// Implementations must be safe for concurrent use.
package synth

import "context"

// Provider is the abstraction over any speech-synthesis backend.
type Provider interface {
	// Synthesize converts text into speech using the given voice and
	// parameters, returning a channel that emits raw PCM audio chunks as
	// they become available. The channel is closed when synthesis completes,
	// fails, or ctx is cancelled; callers should check ctx.Err() to
	// distinguish cancellation from a provider-side end.
	//
	// A zero-valued voice selects the provider's default. Returns a non-nil
	// error only when the synthesis cannot be started.
	Synthesize(ctx context.Context, text string, voice Voice, params Params) (<-chan []byte, error)

	// Voices returns the voice profiles currently available from this
	// provider. The catalogue may change between calls if the underlying
	// service adds or removes voices, or has not finished loading them yet.
	Voices(ctx context.Context) ([]Voice, error)
}
