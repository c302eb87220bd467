// Package capture defines the Provider interface for continuous
// speech-capture backends.
//
// A capture provider wraps a real-time recognition service (e.g., the
// Deepgram streaming API or an on-device recogniser) and exposes a uniform
// event interface. The central abstraction is SessionHandle: once opened, a
// session emits a stream of recognition Events, each carrying zero or more
// result segments marked final or interim. Consumer-grade engines terminate
// sessions unpredictably (silence timeouts, transient network errors); a
// closed Events channel signals such an end, and EndReason distinguishes a
// recoverable end from a permission denial.
//
// Implementations must be safe for concurrent use.
package capture

import "context"

// StreamConfig describes the recognition settings for a new capture session.
type StreamConfig struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-IN",
	// "en-US"). An empty string lets the provider use its default.
	Language string

	// SampleRate is the audio sample rate in Hz of the provider's input
	// source. Zero means the provider default.
	SampleRate int

	// Keywords is a list of vocabulary hints that increase recognition
	// probability for uncommon words such as note filenames.
	Keywords []string
}

// SessionHandle represents an open capture session. It is an interface so
// that test code can feed synthetic event sequences without any real
// recognition hardware.
//
// Callers must call Close when the session is no longer needed. Failing to
// do so may leak goroutines and network connections inside the provider
// implementation.
type SessionHandle interface {
	// Events returns a read-only channel of recognition events. The channel
	// is closed when the engine ends the session, whether by Close, by a
	// provider-side timeout, or by an error.
	Events() <-chan Event

	// EndReason reports why the session ended. It must only be called after
	// the Events channel has been closed. A nil result means a clean end
	// (explicit Close or an engine timeout that a caller may recover from by
	// starting a fresh stream). [ErrPermissionDenied] signals that the
	// environment refused microphone access.
	EndReason() error

	// Close terminates the session and releases all associated resources.
	// After Close returns, the Events channel will be closed. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any speech-capture backend.
type Provider interface {
	// StartStream opens a new capture session with the given configuration.
	// The returned SessionHandle is emitting events immediately.
	//
	// Returns [ErrPermissionDenied] (possibly wrapped) when the environment
	// denies audio input access, and other errors when the session cannot be
	// established. The caller owns the SessionHandle and must call Close.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
