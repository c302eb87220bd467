package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"capture": {"deepgram"},
	"synth":   {"openai", "elevenlabs"},
}

// ValidModes lists the assistant modes the backend understands.
var ValidModes = []string{"study", "quick", "quiz", "roadmap", "doubt", "strategy"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Gateway
	if cfg.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("gateway.base_url is required"))
	} else if u, err := url.Parse(cfg.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("gateway.base_url %q is not an absolute URL", cfg.Gateway.BaseURL))
	}
	if cfg.Gateway.UploadTimeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.upload_timeout %s must not be negative", cfg.Gateway.UploadTimeout))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("capture", cfg.Capture.Provider.Name)
	validateProviderName("synth", cfg.Playback.Provider.Name)

	if cfg.Capture.Provider.Name == "" {
		slog.Warn("no capture provider configured; voice input will not be available")
	}
	if cfg.Playback.Provider.Name == "" && cfg.Playback.AutoSpeak {
		errs = append(errs, errors.New("playback.auto_speak requires a playback provider but playback.provider is not configured"))
	}

	// Playback ranges
	if cfg.Playback.Rate != 0 {
		if cfg.Playback.Rate < 0.5 || cfg.Playback.Rate > 2.0 {
			errs = append(errs, fmt.Errorf("playback.rate %.2f is out of range [0.5, 2.0]", cfg.Playback.Rate))
		}
	}
	if cfg.Playback.Pitch != 0 {
		if cfg.Playback.Pitch < 0.5 || cfg.Playback.Pitch > 2.0 {
			errs = append(errs, fmt.Errorf("playback.pitch %.2f is out of range [0.5, 2.0]", cfg.Playback.Pitch))
		}
	}

	// Session
	if cfg.Session.DefaultMode != "" && !slices.Contains(ValidModes, cfg.Session.DefaultMode) {
		errs = append(errs, fmt.Errorf("session.default_mode %q is invalid; valid values: study, quick, quiz, roadmap, doubt, strategy", cfg.Session.DefaultMode))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
