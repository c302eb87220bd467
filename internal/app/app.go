// Package app wires all VoxTutor subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the interactive session loop, and Shutdown tears
// everything down in order.
//
// For testing, inject fakes via functional options (WithBackend,
// WithInput, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxtutor/voxtutor/internal/capture"
	"github.com/voxtutor/voxtutor/internal/config"
	"github.com/voxtutor/voxtutor/internal/gateway"
	"github.com/voxtutor/voxtutor/internal/health"
	"github.com/voxtutor/voxtutor/internal/identity"
	"github.com/voxtutor/voxtutor/internal/observe"
	"github.com/voxtutor/voxtutor/internal/playback"
	"github.com/voxtutor/voxtutor/internal/resilience"
	"github.com/voxtutor/voxtutor/internal/session"
	"github.com/voxtutor/voxtutor/internal/transcript"
	captureprovider "github.com/voxtutor/voxtutor/pkg/provider/capture"
	"github.com/voxtutor/voxtutor/pkg/provider/synth"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured and the corresponding feature degrades
// silently. Populated by main.go via the config registry.
type Providers struct {
	Capture captureprovider.Provider
	Synth   synth.Provider
}

// Backend is the study-notes backend surface the app depends on.
type Backend interface {
	session.Gateway
	Healthy(ctx context.Context) error
}

// App owns all subsystem lifetimes and orchestrates one study session.
type App struct {
	cfg       *config.Config
	providers *Providers

	userID    string
	backend   Backend
	corrector *transcript.Corrector
	store     *session.Store
	capture   *capture.Controller
	playback  *playback.Controller
	healthSrv *http.Server
	metrics   *observe.Metrics
	logLevel  *slog.LevelVar

	in  io.Reader
	out io.Writer

	// pending holds voice-captured text waiting for the user to submit it
	// from the prompt.
	pendingMu sync.Mutex
	pending   string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithBackend injects a backend client instead of dialing one from config.
func WithBackend(b Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithUserID injects a user identity instead of loading the persisted one.
func WithUserID(id string) Option {
	return func(a *App) { a.userID = id }
}

// WithInput sets the command input stream. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.in = r }
}

// WithOutput sets the user-facing output stream. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithMetrics injects a metrics set instead of using the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the app the level var backing the process logger so
// config reloads can retune verbosity.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		in:        os.Stdin,
		out:       os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.providers == nil {
		a.providers = &Providers{}
	}

	// ── 1. User identity ─────────────────────────────────────────────────
	if a.userID == "" {
		path := cfg.Identity.Path
		if path == "" {
			p, err := identity.DefaultPath()
			if err != nil {
				return nil, fmt.Errorf("app: resolve identity path: %w", err)
			}
			path = p
		}
		id, err := identity.Load(path)
		if err != nil {
			return nil, fmt.Errorf("app: load identity: %w", err)
		}
		a.userID = id
	}

	// ── 2. Backend client ────────────────────────────────────────────────
	if a.backend == nil {
		client, err := a.buildBackend()
		if err != nil {
			return nil, fmt.Errorf("app: init backend: %w", err)
		}
		a.backend = client
	}

	// ── 3. Transcript corrector ──────────────────────────────────────────
	a.corrector = transcript.NewCorrector(nil)

	// ── 4. Playback controller ───────────────────────────────────────────
	if a.providers.Synth != nil {
		pc, err := playback.New(playback.Config{
			Provider:       a.providers.Synth,
			PreferredVoice: cfg.Playback.PreferredVoice,
			Rate:           cfg.Playback.Rate,
			Pitch:          cfg.Playback.Pitch,
			Metrics:        a.metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init playback: %w", err)
		}
		a.playback = pc
		a.closers = append(a.closers, func() error {
			pc.Stop()
			return nil
		})
	}

	// ── 5. Session store ─────────────────────────────────────────────────
	storeCfg := session.Config{
		Gateway:   a.backend,
		UserID:    a.userID,
		Inventory: a.corrector,
		OnNotice:  func(text string) { fmt.Fprintf(a.out, "!! %s\n", text) },
		Mode:      session.Mode(cfg.Session.DefaultMode),
		AutoSpeak: cfg.Playback.AutoSpeak,
		Metrics:   a.metrics,
	}
	if a.playback != nil {
		storeCfg.Speaker = a.playback
	}
	store, err := session.New(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("app: init session: %w", err)
	}
	a.store = store

	// ── 6. Capture controller ────────────────────────────────────────────
	if a.providers.Capture != nil {
		if err := a.initCapture(ctx); err != nil {
			return nil, fmt.Errorf("app: init capture: %w", err)
		}
	}

	// ── 7. Diagnostics server ────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		handler := health.New(health.BackendChecker(a.backend))
		a.healthSrv = health.NewServer(cfg.Server.MetricsAddr, handler)
	}

	return a, nil
}

// buildBackend dials the study-notes backend with tracing and an optional
// circuit breaker.
func (a *App) buildBackend() (*gateway.Client, error) {
	hc := &http.Client{
		Transport: observe.NewTransport(http.DefaultTransport, a.metrics),
		Timeout:   30 * time.Second,
	}
	opts := []gateway.Option{gateway.WithHTTPClient(hc)}
	if a.cfg.Gateway.UploadTimeout > 0 {
		opts = append(opts, gateway.WithUploadTimeout(a.cfg.Gateway.UploadTimeout.Std()))
	}
	if a.cfg.Gateway.BreakerEnabled {
		opts = append(opts, gateway.WithBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "backend",
		})))
	}
	return gateway.New(a.cfg.Gateway.BaseURL, opts...)
}

// initCapture builds the speech-capture controller and wires its commits
// into the session store.
func (a *App) initCapture(ctx context.Context) error {
	ctrl, err := capture.New(capture.Config{
		Provider: a.providers.Capture,
		Stream: captureprovider.StreamConfig{
			Language: a.cfg.Capture.Language,
		},
		OnLive: func(text string) {
			fmt.Fprintf(a.out, "\r~ %s", text)
		},
		OnNotice: func(notice string) {
			fmt.Fprintf(a.out, "!! %s\n", notice)
		},
		OnCommit: func(text string, autoSend bool) {
			fmt.Fprintln(a.out)
			if autoSend {
				a.ask(ctx, text)
				return
			}
			a.setPending(text)
			fmt.Fprintf(a.out, "Captured: %q — press enter to send\n", text)
		},
		Corrector: correctorAdapter{a.corrector},
		Logger:    slog.Default(),
		Metrics:   a.metrics,
	})
	if err != nil {
		return err
	}
	a.capture = ctrl
	a.closers = append(a.closers, func() error {
		ctrl.Stop(context.Background())
		return nil
	})
	return nil
}

// Run starts the diagnostics server and the interactive loop, then blocks
// until ctx is cancelled or the input stream ends.
func (a *App) Run(ctx context.Context) error {
	a.store.Init(ctx)

	g, ctx := errgroup.WithContext(ctx)

	if a.healthSrv != nil {
		srv := a.healthSrv
		g.Go(func() error {
			slog.Info("diagnostics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: diagnostics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shCtx)
		})
	}

	g.Go(func() error { return a.repl(ctx) })

	return g.Wait()
}

// ApplyConfig applies a reloaded configuration. Only hot-reloadable settings
// change: log level, playback tunables and the default mode. Provider and
// gateway changes require a restart.
func (a *App) ApplyConfig(newCfg *config.Config) {
	diff := config.Diff(a.cfg, newCfg)

	if diff.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(diff.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.PlaybackChanged {
		if a.playback != nil {
			a.playback.SetVoice(diff.NewPlayback.PreferredVoice)
			a.playback.SetParams(diff.NewPlayback.Rate, diff.NewPlayback.Pitch)
		}
		a.store.SetAutoSpeak(diff.NewPlayback.AutoSpeak)
		slog.Info("playback settings changed")
	}
	if diff.DefaultModeChanged {
		if err := a.store.SetMode(session.Mode(diff.NewDefaultMode)); err != nil {
			slog.Warn("reloaded default mode is invalid", "mode", diff.NewDefaultMode)
		} else {
			slog.Info("mode changed", "mode", diff.NewDefaultMode)
		}
	}

	a.cfg = newCfg
}

// Shutdown tears down all subsystems. It respects the context deadline: if
// ctx expires before all closers finish, remaining closers are skipped and
// the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// Store exposes the session store for inspection in tests.
func (a *App) Store() *session.Store { return a.store }

// UserID returns the identity all backend calls are scoped to.
func (a *App) UserID() string { return a.userID }

func (a *App) setPending(text string) {
	a.pendingMu.Lock()
	a.pending = text
	a.pendingMu.Unlock()
}

func (a *App) takePending() string {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	text := a.pending
	a.pending = ""
	return text
}

// correctorAdapter bridges the transcript corrector into the capture
// controller's local interface.
type correctorAdapter struct {
	c *transcript.Corrector
}

func (ca correctorAdapter) Correct(text string) (string, []capture.Correction) {
	corrected, changes := ca.c.Correct(text)
	if len(changes) == 0 {
		return corrected, nil
	}
	out := make([]capture.Correction, len(changes))
	for i, ch := range changes {
		out[i] = capture.Correction{
			Original:   ch.Original,
			Corrected:  ch.Corrected,
			Confidence: ch.Confidence,
		}
	}
	return corrected, out
}
