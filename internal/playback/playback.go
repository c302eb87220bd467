// Package playback turns assistant answers into audible speech.
//
// A Controller wraps a synth provider and an audio sink. Each Speak call
// supersedes any utterance still in flight: the previous synthesis is
// cancelled before the new one starts, so the user never hears two answers
// talk over each other. Synthesis failures are logged and swallowed; speech
// is a convenience layer and must never fail the session.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxtutor/voxtutor/internal/observe"
	"github.com/voxtutor/voxtutor/pkg/provider/synth"
)

// Sink consumes raw PCM audio chunks. Implementations are expected to block
// in Write for roughly the playback duration of the chunk.
type Sink interface {
	// Write plays one audio chunk. It returns early with ctx.Err() when the
	// utterance is cancelled.
	Write(ctx context.Context, chunk []byte) error
}

// Discard is a Sink that drops all audio. It is the default when no audio
// device is wired up, and keeps the synthesis pipeline exercised end to end.
type Discard struct{}

// Write discards the chunk.
func (Discard) Write(context.Context, []byte) error { return nil }

// Built-in speaking parameters, applied when the configuration leaves rate
// or pitch unset. Slightly slower than real time with a lifted pitch, tuned
// for read-aloud study answers.
const (
	DefaultRate  = 0.95
	DefaultPitch = 1.1
)

// Config carries the dependencies and tuning for a Controller.
type Config struct {
	// Provider performs the actual speech synthesis. Required.
	Provider synth.Provider

	// Sink receives the synthesised audio. Defaults to Discard.
	Sink Sink

	// PreferredVoice selects a voice by name from the provider's catalogue.
	// When empty or not found the provider's default voice is used.
	PreferredVoice string

	// Rate and Pitch are passed to every synthesis call. Zero means
	// [DefaultRate] and [DefaultPitch].
	Rate  float64
	Pitch float64

	// Logger receives playback diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics records synthesis latency and active playback count. Optional.
	Metrics *observe.Metrics
}

// Controller serialises speech output: at most one utterance plays at a
// time, and a newer one always wins.
type Controller struct {
	provider synth.Provider
	sink     Sink
	logger   *slog.Logger
	metrics  *observe.Metrics

	mu        sync.Mutex
	preferred string
	params    synth.Params
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds a Controller from cfg.
func New(cfg Config) (*Controller, error) {
	if cfg.Provider == nil {
		return nil, errors.New("playback: provider is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		provider:  cfg.Provider,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		preferred: cfg.PreferredVoice,
		params:    paramsOrDefault(cfg.Rate, cfg.Pitch),
	}, nil
}

// paramsOrDefault fills unset rate and pitch with the built-in defaults.
func paramsOrDefault(rate, pitch float64) synth.Params {
	if rate == 0 {
		rate = DefaultRate
	}
	if pitch == 0 {
		pitch = DefaultPitch
	}
	return synth.Params{Rate: rate, Pitch: pitch}
}

// Speak synthesises text and plays it through the sink. Any utterance still
// playing is cancelled first. Speak returns once the new utterance has been
// started; synthesis and playback continue in the background.
func (c *Controller) Speak(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.stopLocked()
	if c.done != nil {
		<-c.done
	}
	utterCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	preferred := c.preferred
	params := c.params
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.speak(utterCtx, text, preferred, params)
	}()
}

// Stop cancels the current utterance, if any, and waits for its playback
// goroutine to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	done := c.done
	c.stopLocked()
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// stopLocked cancels the in-flight utterance. Caller holds c.mu.
func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// SetVoice changes the preferred voice for subsequent utterances.
func (c *Controller) SetVoice(name string) {
	c.mu.Lock()
	c.preferred = name
	c.mu.Unlock()
}

// SetParams changes rate and pitch for subsequent utterances. Zero values
// fall back to the built-in defaults.
func (c *Controller) SetParams(rate, pitch float64) {
	c.mu.Lock()
	c.params = paramsOrDefault(rate, pitch)
	c.mu.Unlock()
}

func (c *Controller) speak(ctx context.Context, text, preferred string, params synth.Params) {
	if c.metrics != nil {
		c.metrics.ActivePlaybacks.Add(ctx, 1)
		defer c.metrics.ActivePlaybacks.Add(ctx, -1)
	}

	voice := c.resolveVoice(ctx, preferred)

	start := time.Now()
	audio, err := c.provider.Synthesize(ctx, text, voice, params)
	if err != nil {
		c.logger.Warn("speech synthesis failed", "error", err)
		return
	}

	first := true
	for chunk := range audio {
		if first {
			first = false
			if c.metrics != nil {
				c.metrics.SynthDuration.Record(ctx, time.Since(start).Seconds())
			}
		}
		if err := c.sink.Write(ctx, chunk); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("audio playback failed", "error", err)
			}
			return
		}
	}
	if ctx.Err() != nil {
		c.logger.Debug("utterance cancelled")
	}
}

// resolveVoice looks up the preferred voice by name in the provider's
// current catalogue. Catalogues can load lazily, so the lookup happens on
// every utterance rather than once at startup. A zero Voice selects the
// provider default.
func (c *Controller) resolveVoice(ctx context.Context, preferred string) synth.Voice {
	if preferred == "" {
		return synth.Voice{}
	}
	voices, err := c.provider.Voices(ctx)
	if err != nil {
		c.logger.Debug("voice catalogue unavailable", "error", err)
		return synth.Voice{}
	}
	for _, v := range voices {
		if strings.EqualFold(v.Name, preferred) {
			return v
		}
	}
	return synth.Voice{}
}
