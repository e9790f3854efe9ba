package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr       = ":5000"
	DefaultNewsSource       = "newsapi"
	DefaultCountry          = "us"
	DefaultPageSize         = 5
	DefaultNewsTimeout      = 10 * time.Second
	DefaultSummarizeModel   = "falconsai/text_summarization"
	DefaultSummarizeTimeout = 15 * time.Second
	DefaultTruncateRunes    = 100
	DefaultTTSTimeout       = 30 * time.Second
	DefaultMinAudioBytes    = 1000
	DefaultMaxTextRunes     = 5000
)

// DefaultTTSModels are the Hugging Face models tried when no TTS backend is
// configured.
var DefaultTTSModels = []string{
	"espnet/kan-bayashi_ljspeech_vits",
	"facebook/mms-tts-eng",
}

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"news":      {"newsapi", "feed"},
	"summarize": {"huggingface", "openai", "anyllm"},
	"tts":       {"huggingface", "coqui", "elevenlabs"},
}

// DefaultPath returns the config file used when none is given:
// ./config.yaml when it exists, otherwise
// $XDG_CONFIG_HOME/newsbreeze/config.yaml.
func DefaultPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return filepath.Join(xdg.ConfigHome, "newsbreeze", "config.yaml")
}

// LoadDotEnv loads KEY=value pairs from the given .env files (default:
// ./.env) into the process environment. Variables already set win. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// Load reads the YAML configuration file at path, applies defaults and
// environment overrides, and validates the result. A missing file is not an
// error: the configuration is then built from defaults and the environment
// alone.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults and environment", "path", path)
		return finish(&Config{})
	}
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

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. An empty reader yields
// the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero-valued setting with its default. The backend
// lists are only populated when empty.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if s.MaxTextRunes == 0 {
		s.MaxTextRunes = DefaultMaxTextRunes
	}

	n := &cfg.News
	if n.Source == "" {
		n.Source = DefaultNewsSource
	}
	if n.Country == "" {
		n.Country = DefaultCountry
	}
	if n.PageSize == 0 {
		n.PageSize = DefaultPageSize
	}
	if n.Timeout == 0 {
		n.Timeout = DefaultNewsTimeout
	}

	sum := &cfg.Summarize
	if len(sum.Backends) == 0 {
		sum.Backends = []ProviderEntry{{Name: "huggingface", Model: DefaultSummarizeModel}}
	}
	if sum.Timeout == 0 {
		sum.Timeout = DefaultSummarizeTimeout
	}
	if sum.TruncateRunes == 0 {
		sum.TruncateRunes = DefaultTruncateRunes
	}

	t := &cfg.TTS
	if len(t.Backends) == 0 {
		for _, m := range DefaultTTSModels {
			t.Backends = append(t.Backends, ProviderEntry{Name: "huggingface", Model: m})
		}
	}
	if t.Timeout == 0 {
		t.Timeout = DefaultTTSTimeout
	}
	if t.MinAudioBytes == 0 {
		t.MinAudioBytes = DefaultMinAudioBytes
	}
}

// ApplyEnv applies environment overrides read through getenv.
//
// Scalar settings (PORT, LOG_LEVEL, API_URL, SENTRY_DSN, ENVIRONMENT,
// NEWS_API_KEY) replace the file value. Backend credentials
// (HUGGINGFACE_API_KEY, OPENAI_API_KEY, ELEVENLABS_API_KEY, COQUI_URL) fill
// every matching entry that has none; when no entry of that name exists one
// is appended to the end of its chain.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		cfg.Server.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(v))
	}
	if v := getenv("API_URL"); v != "" {
		cfg.Server.APIURL = v
	}
	if v := getenv("SENTRY_DSN"); v != "" {
		cfg.Server.SentryDSN = v
	}
	if v := getenv("ENVIRONMENT"); v != "" {
		cfg.Server.Environment = v
	}
	if v := getenv("NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}

	if v := getenv("HUGGINGFACE_API_KEY"); v != "" {
		fillAPIKey(cfg.Summarize.Backends, "huggingface", v)
		fillAPIKey(cfg.TTS.Backends, "huggingface", v)
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summarize.Backends = fillOrAppend(cfg.Summarize.Backends, ProviderEntry{Name: "openai", APIKey: v})
	}
	if v := getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.TTS.Backends = fillOrAppend(cfg.TTS.Backends, ProviderEntry{Name: "elevenlabs", APIKey: v})
	}
	if v := getenv("COQUI_URL"); v != "" {
		cfg.TTS.Backends = fillOrAppend(cfg.TTS.Backends, ProviderEntry{Name: "coqui", BaseURL: v})
	}
}

func fillAPIKey(entries []ProviderEntry, name, key string) {
	for i := range entries {
		if entries[i].Name == name && entries[i].APIKey == "" {
			entries[i].APIKey = key
		}
	}
}

// fillOrAppend copies the credential fields of e into every entry named
// e.Name that lacks them, or appends e when there is none.
func fillOrAppend(entries []ProviderEntry, e ProviderEntry) []ProviderEntry {
	found := false
	for i := range entries {
		if entries[i].Name != e.Name {
			continue
		}
		found = true
		if entries[i].APIKey == "" {
			entries[i].APIKey = e.APIKey
		}
		if entries[i].BaseURL == "" {
			entries[i].BaseURL = e.BaseURL
		}
	}
	if !found {
		entries = append(entries, e)
	}
	return entries
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.APIURL != "" {
		if err := checkHTTPURL(cfg.Server.APIURL); err != nil {
			errs = append(errs, fmt.Errorf("server.api_url: %w", err))
		}
	}
	if cfg.Server.MaxTextRunes < 0 {
		errs = append(errs, fmt.Errorf("server.max_text_runes %d must not be negative", cfg.Server.MaxTextRunes))
	}

	// News
	validateProviderName("news", cfg.News.Source)
	if cfg.News.PageSize < 0 || cfg.News.PageSize > 100 {
		errs = append(errs, fmt.Errorf("news.page_size %d is out of range [1, 100]", cfg.News.PageSize))
	}
	if cfg.News.Country != "" && len(cfg.News.Country) != 2 {
		errs = append(errs, fmt.Errorf("news.country %q must be a two-letter country code", cfg.News.Country))
	}
	if cfg.News.Timeout < 0 {
		errs = append(errs, errors.New("news.timeout must not be negative"))
	}
	if cfg.News.Source == "feed" && len(cfg.News.Feeds) == 0 {
		errs = append(errs, errors.New("news.feeds is required when news.source is feed"))
	}
	for i, f := range cfg.News.Feeds {
		if err := checkHTTPURL(f); err != nil {
			errs = append(errs, fmt.Errorf("news.feeds[%d]: %w", i, err))
		}
	}

	// Chains
	errs = append(errs, validateBackends("summarize", cfg.Summarize.Backends)...)
	if cfg.Summarize.Timeout < 0 {
		errs = append(errs, errors.New("summarize.timeout must not be negative"))
	}
	if cfg.Summarize.TruncateRunes < 0 {
		errs = append(errs, fmt.Errorf("summarize.truncate_runes %d must not be negative", cfg.Summarize.TruncateRunes))
	}
	errs = append(errs, validateBackends("tts", cfg.TTS.Backends)...)
	if cfg.TTS.Timeout < 0 {
		errs = append(errs, errors.New("tts.timeout must not be negative"))
	}
	if cfg.TTS.MinAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("tts.min_audio_bytes %d must not be negative", cfg.TTS.MinAudioBytes))
	}

	return errors.Join(errs...)
}

func validateBackends(kind string, entries []ProviderEntry) []error {
	var errs []error
	for i, e := range entries {
		prefix := fmt.Sprintf("%s.backends[%d]", kind, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName(kind, e.Name)
		if e.Name == "huggingface" && kind == "tts" && e.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required for huggingface", prefix))
		}
		if e.BaseURL != "" {
			if err := checkHTTPURL(e.BaseURL); err != nil {
				errs = append(errs, fmt.Errorf("%s.base_url: %w", prefix, err))
			}
		}
	}
	return errs
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
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
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
