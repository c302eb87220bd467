// Package config provides the configuration schema, loader, and provider registry
// for the VoxTutor study assistant.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML config may use strings like "5m" or
// "90s" as well as plain nanosecond integers.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats d like time.Duration.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// LogLevel controls log verbosity for the VoxTutor client.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l onto the corresponding slog level. Unknown values map to
// info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for VoxTutor.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Identity IdentityConfig `yaml:"identity"`
	Capture  CaptureConfig  `yaml:"capture"`
	Playback PlaybackConfig `yaml:"playback"`
	Session  SessionConfig  `yaml:"session"`
}

// ServerConfig holds logging and observability settings for the client.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics and health
	// endpoints listen on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// GatewayConfig holds connection settings for the study-notes backend.
type GatewayConfig struct {
	// BaseURL is the backend API root (e.g., "http://localhost:5000").
	BaseURL string `yaml:"base_url"`

	// UploadTimeout bounds a single document upload. Uploads can carry
	// large files, so this is separate from the default request timeout.
	// Zero means the built-in default of 5 minutes.
	UploadTimeout Duration `yaml:"upload_timeout"`

	// BreakerEnabled wraps backend calls in a circuit breaker so a dead
	// backend fails fast instead of piling up timeouts.
	BreakerEnabled bool `yaml:"breaker_enabled"`
}

// IdentityConfig controls where the persistent user identity is stored.
type IdentityConfig struct {
	// Path is the file the generated user ID is persisted to.
	// Empty means "voxtutor/identity" under the OS user config directory.
	Path string `yaml:"path"`
}

// CaptureConfig configures the speech-capture pipeline.
type CaptureConfig struct {
	// Provider selects and configures the speech recognition engine.
	Provider ProviderEntry `yaml:"provider"`

	// Language is the BCP-47 recognition language tag (e.g., "en-IN").
	Language string `yaml:"language"`
}

// PlaybackConfig configures spoken answer playback.
type PlaybackConfig struct {
	// Provider selects and configures the speech synthesis engine.
	Provider ProviderEntry `yaml:"provider"`

	// PreferredVoice is a voice name to prefer when the provider's
	// catalogue contains it. When the catalogue has no match the
	// provider default is used.
	PreferredVoice string `yaml:"preferred_voice"`

	// Rate adjusts speaking rate in the range [0.5, 2.0]. 0 means the
	// built-in default of 0.95.
	Rate float64 `yaml:"rate"`

	// Pitch adjusts voice pitch in the range [0.5, 2.0]. 0 means the
	// built-in default of 1.1.
	Pitch float64 `yaml:"pitch"`

	// AutoSpeak controls whether assistant answers are spoken aloud
	// automatically as they arrive.
	AutoSpeak bool `yaml:"auto_speak"`
}

// SessionConfig holds defaults for the study session itself.
type SessionConfig struct {
	// DefaultMode is the assistant mode active at startup
	// (study, quick, quiz, roadmap, doubt, strategy).
	DefaultMode string `yaml:"default_mode"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "deepgram", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "nova-3").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}
