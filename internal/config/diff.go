package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	PlaybackChanged bool
	NewPlayback     PlaybackConfig

	DefaultModeChanged bool
	NewDefaultMode     string
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: log level,
// playback voice settings, and the default assistant mode. Gateway and
// provider changes require a restart and are deliberately ignored.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if playbackTunablesChanged(old.Playback, new.Playback) {
		d.PlaybackChanged = true
		d.NewPlayback = new.Playback
	}

	if old.Session.DefaultMode != new.Session.DefaultMode {
		d.DefaultModeChanged = true
		d.NewDefaultMode = new.Session.DefaultMode
	}

	return d
}

// playbackTunablesChanged compares only the hot-reloadable playback fields.
// Provider changes require a restart, so the Provider entry is excluded.
func playbackTunablesChanged(old, new PlaybackConfig) bool {
	return old.PreferredVoice != new.PreferredVoice ||
		old.Rate != new.Rate ||
		old.Pitch != new.Pitch ||
		old.AutoSpeak != new.AutoSpeak
}
