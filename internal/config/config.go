// Package config provides the configuration schema, loader, and provider
// registry for the NewsBreeze server and CLI.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
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

// Level maps l to its [slog.Level]. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for NewsBreeze.
// It is typically loaded with [Load] or [LoadFromReader] and is not mutated
// after startup.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	News      NewsConfig      `yaml:"news"`
	Summarize SummarizeConfig `yaml:"summarize"`
	TTS       TTSConfig       `yaml:"tts"`
	UI        UIConfig        `yaml:"ui"`
}

// ServerConfig holds network, logging, and error reporting settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":5000").
	// The PORT environment variable overrides it.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// APIURL is the base URL the web UI and the CLI use to reach the API.
	// Empty means the UI calls its own origin.
	APIURL string `yaml:"api_url"`

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxTextRunes caps the text accepted by POST /api/audio.
	MaxTextRunes int `yaml:"max_text_runes"`

	// SentryDSN enables error reporting when set.
	SentryDSN string `yaml:"sentry_dsn"`

	// Environment is reported to Sentry and as deployment.environment.
	Environment string `yaml:"environment"`
}

// NewsConfig selects and configures the headline source.
type NewsConfig struct {
	// Source names the registered headline source ("newsapi" or "feed").
	Source string `yaml:"source"`

	// APIKey authenticates against the headline API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the source's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Feeds lists RSS/Atom URLs for the feed source.
	Feeds []string `yaml:"feeds"`

	// Country is the ISO 3166-1 alpha-2 region for top headlines.
	Country string `yaml:"country"`

	// PageSize is the number of articles per request.
	PageSize int `yaml:"page_size"`

	// Timeout bounds one headline request.
	Timeout time.Duration `yaml:"timeout"`
}

// SummarizeConfig configures the summarization fallback chain.
type SummarizeConfig struct {
	// Backends are tried in order until one returns a summary.
	Backends []ProviderEntry `yaml:"backends"`

	// Timeout bounds each summarization attempt.
	Timeout time.Duration `yaml:"timeout"`

	// TruncateRunes is the length of the truncated fallback summary.
	TruncateRunes int `yaml:"truncate_runes"`
}

// TTSConfig configures the text-to-speech fallback chain. The backend list
// is fixed at process start.
type TTSConfig struct {
	// Backends are tried in order until one returns enough audio.
	Backends []ProviderEntry `yaml:"backends"`

	// Timeout bounds each synthesis attempt.
	Timeout time.Duration `yaml:"timeout"`

	// MinAudioBytes is the payload size a backend must exceed.
	MinAudioBytes int `yaml:"min_audio_bytes"`
}

// UIConfig configures the embedded web UI.
type UIConfig struct {
	// AutoFallback lets the page use browser speech without asking.
	AutoFallback bool `yaml:"auto_fallback"`
}

// ProviderEntry is the common configuration block shared by summarization
// and TTS backends. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "huggingface", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// Option returns the string value of Options[key], or "" when it is absent
// or not a string.
func (e ProviderEntry) Option(key string) string {
	if e.Options == nil {
		return ""
	}
	s, _ := e.Options[key].(string)
	return s
}

// Label returns "name" or "name/model" for logs and metrics.
func (e ProviderEntry) Label() string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + "/" + e.Model
}
