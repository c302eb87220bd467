// Package openai provides a synth provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxtutor/voxtutor/pkg/provider/synth"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = oai.SpeechModelGPT4oMiniTTS

// defaultVoice is used when the caller passes a zero-valued voice.
const defaultVoice = "alloy"

// audioChunkSize is the read size for streaming response audio to the caller.
const audioChunkSize = 8192

// voiceNames is the fixed OpenAI voice catalogue. The speech API has no
// listing endpoint, so the set is declared here and kept in sync with the
// API documentation.
var voiceNames = []string{
	"alloy", "ash", "ballad", "coral", "echo",
	"fable", "onyx", "nova", "sage", "shimmer",
}

// Ensure Provider implements the synth.Provider interface.
var _ synth.Provider = (*Provider)(nil)

// Provider implements synth.Provider using the OpenAI speech API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI speech Provider.
// If model is empty, DefaultModel (gpt-4o-mini-tts) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai synth: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Synthesize requests PCM speech audio for text and streams the response
// body to the returned channel. Pitch is not supported by the OpenAI speech
// API and is ignored.
func (p *Provider) Synthesize(ctx context.Context, text string, voice synth.Voice, params synth.Params) (<-chan []byte, error) {
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = defaultVoice
	}

	req := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if params.Rate > 0 {
		req.Speed = oai.Float(params.Rate)
	}

	resp, err := p.client.Audio.Speech.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai synth: speech request: %w", err)
	}

	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for {
			buf := make([]byte, audioChunkSize)
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case out <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out, nil
}

// Voices returns the fixed OpenAI voice catalogue.
func (p *Provider) Voices(context.Context) ([]synth.Voice, error) {
	voices := make([]synth.Voice, 0, len(voiceNames))
	for _, name := range voiceNames {
		voices = append(voices, synth.Voice{
			ID:       name,
			Name:     name,
			Provider: "openai",
		})
	}
	return voices, nil
}
