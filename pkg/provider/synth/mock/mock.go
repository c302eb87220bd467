// Package mock provides test doubles for the synth package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/voxtutor/voxtutor/pkg/provider/synth"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	// Text is the utterance text passed to Synthesize.
	Text string
	// Voice is the voice profile passed to Synthesize.
	Voice synth.Voice
	// Params are the synthesis parameters passed to Synthesize.
	Params synth.Params
	// Ctx is the context passed to Synthesize. Tests use it to observe
	// cancellation of superseded utterances.
	Ctx context.Context
}

// Provider is a mock implementation of synth.Provider.
type Provider struct {
	mu sync.Mutex

	// VoiceList is returned by Voices. May be reassigned between calls to
	// simulate a late-loading catalogue.
	VoiceList []synth.Voice

	// VoicesErr, if non-nil, is returned by Voices.
	VoicesErr error

	// Audio is the chunk sequence emitted by each Synthesize call.
	Audio [][]byte

	// SynthesizeErr, if non-nil, is returned by Synthesize.
	SynthesizeErr error

	// SynthesizeCalls records every call to Synthesize.
	SynthesizeCalls []SynthesizeCall

	// VoicesCallCount is the number of times Voices was called.
	VoicesCallCount int
}

// Synthesize records the call and streams the scripted Audio chunks.
func (p *Provider) Synthesize(ctx context.Context, text string, voice synth.Voice, params synth.Params) (<-chan []byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice, Params: params, Ctx: ctx})
	err := p.SynthesizeErr
	chunks := p.Audio
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(chan []byte, len(chunks))
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Voices records the call and returns VoiceList, VoicesErr.
func (p *Provider) Voices(context.Context) ([]synth.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.VoicesCallCount++
	return p.VoiceList, p.VoicesErr
}

// SetVoices replaces VoiceList, simulating a catalogue that finished loading
// after the provider was constructed.
func (p *Provider) SetVoices(voices []synth.Voice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.VoiceList = voices
}

// Calls returns a copy of the recorded Synthesize calls.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}

// Ensure Provider implements synth.Provider at compile time.
var _ synth.Provider = (*Provider)(nil)
