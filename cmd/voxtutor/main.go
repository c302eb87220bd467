// Command voxtutor is the voice-interactive study assistant client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxtutor/voxtutor/internal/app"
	"github.com/voxtutor/voxtutor/internal/config"
	"github.com/voxtutor/voxtutor/internal/observe"
	"github.com/voxtutor/voxtutor/pkg/provider/capture"
	"github.com/voxtutor/voxtutor/pkg/provider/capture/deepgram"
	"github.com/voxtutor/voxtutor/pkg/provider/synth"
	"github.com/voxtutor/voxtutor/pkg/provider/synth/elevenlabs"
	oaisynth "github.com/voxtutor/voxtutor/pkg/provider/synth/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxtutor: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxtutor: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, level := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxtutor starting",
		"config", *configPath,
		"backend", cfg.Gateway.BaseURL,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxtutor",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLogLevelVar(level))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(_, newCfg *config.Config) {
		application.ApplyConfig(newCfg)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("session ready — type /help for commands, Ctrl+C to quit")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// version is stamped at build time via -ldflags.
var version = "dev"

// ── Provider wiring ───────────────────────────────────────────────────────────

// defaultRecordCommand captures 16 kHz mono signed 16-bit PCM from the
// default ALSA device, matching the Deepgram stream settings.
const defaultRecordCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw -"

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the
// appropriate provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("deepgram", func(entry config.ProviderEntry) (capture.Provider, error) {
		record := optString(entry.Options, "record_command")
		if record == "" {
			record = defaultRecordCommand
		}
		source, err := deepgram.ParseCommandSource(record)
		if err != nil {
			return nil, err
		}
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, source, opts...)
	})

	// ── Synth ─────────────────────────────────────────────────────────────────

	reg.RegisterSynth("openai", func(entry config.ProviderEntry) (synth.Provider, error) {
		var opts []oaisynth.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaisynth.WithBaseURL(entry.BaseURL))
		}
		return oaisynth.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSynth("elevenlabs", func(entry config.ProviderEntry) (synth.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "default_voice"); voice != "" {
			opts = append(opts, elevenlabs.WithDefaultVoice(voice))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates the configured providers. An empty provider
// name leaves the slot nil and the corresponding feature degrades silently.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	providers := &app.Providers{}

	if cfg.Capture.Provider.Name != "" {
		p, err := reg.CreateCapture(cfg.Capture.Provider)
		if err != nil {
			return nil, fmt.Errorf("capture provider: %w", err)
		}
		providers.Capture = p
	}

	if cfg.Playback.Provider.Name != "" {
		p, err := reg.CreateSynth(cfg.Playback.Provider)
		if err != nil {
			return nil, fmt.Errorf("synth provider: %w", err)
		}
		providers.Synth = p
	}

	return providers, nil
}

// ── Startup output ────────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         VoxTutor — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Capture", cfg.Capture.Provider.Name, cfg.Capture.Provider.Model)
	printProvider("Synth", cfg.Playback.Provider.Name, cfg.Playback.Provider.Model)
	fmt.Printf("║  Backend         : %-19s ║\n", trimTo(cfg.Gateway.BaseURL, 19))
	fmt.Printf("║  Default mode    : %-19s ║\n", cfg.Session.DefaultMode)
	if cfg.Server.MetricsAddr != "" {
		fmt.Printf("║  Diagnostics     : %-19s ║\n", cfg.Server.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	if name == "" {
		fmt.Printf("║  %-15s : %-19s ║\n", kind, "(disabled)")
		return
	}
	label := name
	if model != "" {
		label = name + "/" + model
	}
	fmt.Printf("║  %-15s : %-19s ║\n", kind, trimTo(label, 19))
}

func trimTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// newLogger builds the process logger plus the level var that config
// reloads adjust at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(level.SlogLevel())
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})), lv
}

// optString reads a string-valued key from a provider options map.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
