// Package capture drives the continuous speech-capture loop: it owns the
// provider session, accumulates finalised and in-progress transcript text,
// detects spoken submit commands, and transparently restarts the engine when
// it ends on its own (speech engines routinely stop after silence timeouts).
package capture

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/voxtutor/voxtutor/internal/observe"
	"github.com/voxtutor/voxtutor/pkg/provider/capture"
)

// PermissionNotice is shown to the user when microphone access is denied.
const PermissionNotice = "Microphone access denied"

// DefaultCommands are the spoken words that trigger an automatic submit.
var DefaultCommands = []string{"send", "go", "submit"}

// Corrector post-processes committed utterances (e.g., fixing misheard note
// filenames). A nil corrector leaves commits untouched.
type Corrector interface {
	Correct(text string) (string, []Correction)
}

// Correction mirrors a substitution applied by a [Corrector].
type Correction struct {
	Original   string
	Corrected  string
	Confidence float64
}

// Config wires a [Controller].
type Config struct {
	// Provider supplies capture sessions.
	Provider capture.Provider

	// Stream configures each capture session.
	Stream capture.StreamConfig

	// Commands are the spoken submit words. Empty means [DefaultCommands].
	Commands []string

	// OnLive receives the combined transcript (finalised + in-progress) on
	// every recognition event. Optional.
	OnLive func(text string)

	// OnNotice receives user-facing notices such as [PermissionNotice].
	// Optional.
	OnNotice func(notice string)

	// OnCommit receives the finalised utterance when a session ends with
	// text. autoSend is true when a spoken command triggered the commit and
	// false when the user stopped listening explicitly.
	OnCommit func(text string, autoSend bool)

	// Corrector post-processes committed text. Optional.
	Corrector Corrector

	// Logger defaults to [slog.Default].
	Logger *slog.Logger

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Controller runs the capture loop. Start and Stop express the user's intent
// to listen; within a listening period the engine may be restarted any number
// of times without losing accumulated text.
type Controller struct {
	provider capture.Provider
	stream   capture.StreamConfig
	commands []string
	stripRe  *regexp.Regexp

	onLive   func(string)
	onNotice func(string)
	onCommit func(string, bool)

	corrector Corrector
	log       *slog.Logger
	metrics   *observe.Metrics

	mu        sync.Mutex
	listening bool
	session   capture.SessionHandle
	gen       int
	finalText string
	counted   bool // ActiveListeners incremented for this listening period
}

// New creates a Controller. cfg.Provider and cfg.OnCommit are required.
func New(cfg Config) (*Controller, error) {
	if cfg.Provider == nil {
		return nil, errors.New("capture: Provider must not be nil")
	}
	if cfg.OnCommit == nil {
		return nil, errors.New("capture: OnCommit must not be nil")
	}

	commands := cfg.Commands
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	quoted := make([]string, len(commands))
	for i, c := range commands {
		quoted[i] = regexp.QuoteMeta(c)
	}
	stripRe, err := regexp.Compile("(?i)" + strings.Join(quoted, "|"))
	if err != nil {
		return nil, errors.New("capture: invalid command words")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	lowered := make([]string, len(commands))
	for i, c := range commands {
		lowered[i] = strings.ToLower(c)
	}

	return &Controller{
		provider:  cfg.Provider,
		stream:    cfg.Stream,
		commands:  lowered,
		stripRe:   stripRe,
		onLive:    cfg.OnLive,
		onNotice:  cfg.OnNotice,
		onCommit:  cfg.OnCommit,
		corrector: cfg.Corrector,
		log:       log,
		metrics:   metrics,
	}, nil
}

// Listening reports whether a capture session is currently wanted.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Start begins a listening period, clearing any previously accumulated text.
// Starting while already listening is a no-op. When microphone permission is
// denied the notice callback fires and the error is returned; no retry loop
// is started.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.listening = true
	c.finalText = ""
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	sess, err := c.provider.StartStream(ctx, c.stream)
	if err != nil {
		c.mu.Lock()
		c.listening = false
		c.mu.Unlock()
		if errors.Is(err, capture.ErrPermissionDenied) {
			c.notify(PermissionNotice)
		}
		return err
	}

	c.mu.Lock()
	if gen != c.gen || !c.listening {
		// Stopped while the stream was being opened.
		c.mu.Unlock()
		sess.Close()
		return nil
	}
	c.session = sess
	c.counted = true
	c.metrics.ActiveListeners.Add(ctx, 1)
	c.mu.Unlock()

	go c.run(ctx, sess, gen)
	return nil
}

// Stop ends the listening period and commits any accumulated text WITHOUT
// auto-sending it; the user decides what happens to the draft. Stopping while
// idle is a no-op.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = false
	c.gen++
	sess := c.session
	c.session = nil
	text := c.finalText
	c.finalText = ""
	c.releaseGaugeLocked(ctx)
	c.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			c.log.Warn("capture: close session", "err", err)
		}
	}

	c.commit(text, false)
}

// releaseGaugeLocked decrements ActiveListeners if it was incremented for the
// current listening period. Caller holds c.mu. A Stop racing a still-opening
// Start arrives before the increment and must not drive the gauge negative.
func (c *Controller) releaseGaugeLocked(ctx context.Context) {
	if c.counted {
		c.counted = false
		c.metrics.ActiveListeners.Add(ctx, -1)
	}
}

// run consumes events from sess until its channel closes, then decides
// whether to restart. gen ties the loop to one listening period so a stale
// loop cannot touch state after Stop or a newer Start.
func (c *Controller) run(ctx context.Context, sess capture.SessionHandle, gen int) {
	for {
		for ev := range sess.Events() {
			if !c.handleEvent(ctx, ev, gen) {
				return
			}
		}

		endReason := sess.EndReason()

		c.mu.Lock()
		if gen != c.gen || !c.listening {
			// Deliberate stop or superseded session.
			c.mu.Unlock()
			return
		}

		if errors.Is(endReason, capture.ErrPermissionDenied) {
			c.listening = false
			c.session = nil
			c.releaseGaugeLocked(ctx)
			c.mu.Unlock()
			c.notify(PermissionNotice)
			return
		}
		c.mu.Unlock()

		if endReason != nil {
			c.log.Warn("capture: engine ended with error, restarting", "err", endReason)
		} else {
			c.log.Debug("capture: engine ended, restarting")
		}

		// Accumulated text survives the restart; only the engine is replaced.
		newSess, err := c.provider.StartStream(ctx, c.stream)
		if err != nil {
			c.log.Error("capture: restart failed", "err", err)
			c.mu.Lock()
			stillOurs := gen == c.gen && c.listening
			if stillOurs {
				c.listening = false
				c.session = nil
				c.releaseGaugeLocked(ctx)
			}
			c.mu.Unlock()
			if stillOurs && errors.Is(err, capture.ErrPermissionDenied) {
				c.notify(PermissionNotice)
			}
			return
		}

		c.mu.Lock()
		if gen != c.gen || !c.listening {
			c.mu.Unlock()
			newSess.Close()
			return
		}
		c.session = newSess
		c.mu.Unlock()

		c.metrics.RecordCaptureRestart(ctx)
		sess = newSess
	}
}

// handleEvent folds one recognition event into the accumulators and checks
// for spoken commands. It returns false when the event triggered a commit and
// the loop should exit.
func (c *Controller) handleEvent(ctx context.Context, ev capture.Event, gen int) bool {
	var interim strings.Builder

	c.mu.Lock()
	if gen != c.gen || !c.listening {
		c.mu.Unlock()
		return false
	}
	for _, seg := range ev.Segments {
		if seg.IsFinal {
			c.finalText += seg.Text + " "
		} else {
			interim.WriteString(seg.Text)
		}
	}
	combined := c.finalText + interim.String()
	c.mu.Unlock()

	if c.onLive != nil {
		c.onLive(combined)
	}

	if c.containsCommand(combined) {
		c.commitFromCommand(ctx, gen)
		return false
	}
	return true
}

// commitFromCommand ends the listening period in response to a spoken command
// and commits the finalised text with auto-send.
func (c *Controller) commitFromCommand(ctx context.Context, gen int) {
	c.mu.Lock()
	if gen != c.gen || !c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = false
	c.gen++
	sess := c.session
	c.session = nil
	text := c.finalText
	c.finalText = ""
	c.releaseGaugeLocked(ctx)
	c.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			c.log.Warn("capture: close session", "err", err)
		}
	}

	c.commit(text, true)
}

func (c *Controller) notify(notice string) {
	if c.onNotice != nil {
		c.onNotice(notice)
	}
}

// containsCommand reports whether the combined transcript contains any of the
// command words. Matching is a plain case-insensitive substring search, so a
// command is recognised even before the engine finalises it.
func (c *Controller) containsCommand(combined string) bool {
	lower := strings.ToLower(combined)
	for _, cmd := range c.commands {
		if strings.Contains(lower, cmd) {
			return true
		}
	}
	return false
}

// commit strips command words, trims, applies the corrector, and delivers the
// result. Empty commits are dropped.
func (c *Controller) commit(text string, autoSend bool) {
	text = strings.TrimSpace(c.stripRe.ReplaceAllString(text, ""))
	if text == "" {
		return
	}
	if c.corrector != nil {
		corrected, corrections := c.corrector.Correct(text)
		for _, cor := range corrections {
			c.log.Debug("capture: corrected filename",
				"original", cor.Original,
				"corrected", cor.Corrected,
				"confidence", cor.Confidence)
		}
		text = corrected
	}
	c.onCommit(text, autoSend)
}
