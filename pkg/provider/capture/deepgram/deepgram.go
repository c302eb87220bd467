// Package deepgram provides a Deepgram-backed capture provider using the
// Deepgram streaming WebSocket API. It implements the capture.Provider
// interface.
//
// Audio acquisition is the provider's concern: each session opens the
// configured AudioSource (a microphone pipe, an ffmpeg subprocess stdout, a
// file in tests) and pumps its PCM bytes to Deepgram while recognition
// events flow back to the caller.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxtutor/voxtutor/pkg/provider/capture"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en-IN"
	defaultSampleRate = 16000

	// audioChunkSize is the read size for pumping source audio to Deepgram.
	audioChunkSize = 4096
)

// AudioSource opens the raw PCM input for one capture session. It is called
// once per StartStream; the returned reader is closed when the session ends.
// An [os.ErrPermission] (possibly wrapped) from the source is surfaced to
// callers as [capture.ErrPermissionDenied].
type AudioSource func(ctx context.Context) (io.ReadCloser, error)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithSampleRate sets the audio sample rate in Hz for the provider-level default.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// Provider implements capture.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey     string
	source     AudioSource
	model      string
	language   string
	sampleRate int
}

// New creates a new Deepgram Provider. apiKey and source must be non-nil.
func New(apiKey string, source AudioSource, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	if source == nil {
		return nil, errors.New("deepgram: source must not be nil")
	}
	p := &Provider{
		apiKey:     apiKey,
		source:     source,
		model:      defaultModel,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens the audio source and a streaming recognition session
// with Deepgram. It respects cfg.Language, cfg.SampleRate, and cfg.Keywords.
func (p *Provider) StartStream(ctx context.Context, cfg capture.StreamConfig) (capture.SessionHandle, error) {
	src, err := p.source(ctx)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("deepgram: open audio source: %w", capture.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("deepgram: open audio source: %w", err)
	}

	wsURL, err := p.buildURL(cfg)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	sess := &session{
		conn:   conn,
		src:    src,
		events: make(chan capture.Event, 64),
		done:   make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.pumpLoop(ctx)

	return sess, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg capture.StreamConfig) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("channels", "1")

	for _, kw := range cfg.Keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram streaming capture session. It implements
// capture.SessionHandle.
type session struct {
	conn   *websocket.Conn
	src    io.ReadCloser
	events chan capture.Event

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu     sync.Mutex
	endErr error
}

// Events returns the channel of recognition events.
func (s *session) Events() <-chan capture.Event { return s.events }

// EndReason reports why the session ended. Valid after Events closes.
func (s *session) EndReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endErr
}

// Close terminates the session cleanly.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Tell Deepgram to flush pending audio before tearing down.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.src.Close()
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// setEndErr records the first session end reason.
func (s *session) setEndErr(err error) {
	s.mu.Lock()
	if s.endErr == nil {
		s.endErr = err
	}
	s.mu.Unlock()
}

// pumpLoop reads PCM chunks from the audio source and sends binary messages
// to Deepgram until the source is exhausted or the session ends.
func (s *session) pumpLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, audioChunkSize)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}
		n, err := s.src.Read(buf)
		if n > 0 {
			if werr := s.conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			// EOF on the source means the input ended; ask Deepgram to
			// flush so remaining finals are still delivered.
			_ = s.conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
			return
		}
	}
}

// readLoop receives JSON messages from Deepgram and dispatches recognition
// events to the caller. It owns closing the events channel.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation ends the session without
			// an error; the controller decides whether to start a new one.
			select {
			case <-s.done:
			default:
				if ctx.Err() == nil {
					s.setEndErr(nil)
				}
			}
			return
		}

		ev, ok := parseResponse(msg)
		if !ok {
			continue
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// parseResponse parses a raw Deepgram WebSocket message into an Event.
// Returns (Event, true) on success, or (zero, false) if the message should
// be ignored.
func parseResponse(data []byte) (capture.Event, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return capture.Event{}, false
	}
	if resp.Type != "Results" {
		return capture.Event{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return capture.Event{}, false
	}

	alt := resp.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return capture.Event{}, false
	}

	return capture.Event{
		Segments: []capture.Segment{{
			Text:       alt.Transcript,
			IsFinal:    resp.IsFinal,
			Confidence: alt.Confidence,
		}},
	}, true
}
