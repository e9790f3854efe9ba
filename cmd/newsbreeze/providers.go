package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/newsbreeze/internal/config"
	"github.com/MrWong99/newsbreeze/internal/health"
	"github.com/MrWong99/newsbreeze/internal/news"
	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/internal/resilience"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines/feed"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines/newsapi"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize/anyllm"
	hfsummarize "github.com/MrWong99/newsbreeze/pkg/provider/summarize/huggingface"
	oaisummarize "github.com/MrWong99/newsbreeze/pkg/provider/summarize/openai"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts/coqui"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts/elevenlabs"
	hftts "github.com/MrWong99/newsbreeze/pkg/provider/tts/huggingface"
)

// keylessBackends are any-llm backends that run locally without a credential.
var keylessBackends = []string{"ollama", "llamacpp", "llamafile"}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Factories report [provider.ErrNotConfigured] when a credential is missing
// so the chain builders can leave the backend out.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Headlines ─────────────────────────────────────────────────────────────

	reg.RegisterHeadlines("newsapi", func(cfg config.NewsConfig) (headlines.Provider, error) {
		opts := []newsapi.Option{newsapi.WithTimeout(cfg.Timeout)}
		if cfg.BaseURL != "" {
			opts = append(opts, newsapi.WithBaseURL(cfg.BaseURL))
		}
		return newsapi.New(cfg.APIKey, opts...)
	})

	reg.RegisterHeadlines("feed", func(cfg config.NewsConfig) (headlines.Provider, error) {
		return feed.New(cfg.Feeds, feed.WithTimeout(cfg.Timeout))
	})

	// ── Summarization ─────────────────────────────────────────────────────────

	reg.RegisterSummarizer("huggingface", func(entry config.ProviderEntry) (summarize.Provider, error) {
		if entry.APIKey == "" {
			return nil, fmt.Errorf("huggingface: %w: api key is empty", provider.ErrNotConfigured)
		}
		var opts []hfsummarize.Option
		if entry.Model != "" {
			opts = append(opts, hfsummarize.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, hfsummarize.WithBaseURL(entry.BaseURL))
		}
		return hfsummarize.New(entry.APIKey, opts...), nil
	})

	reg.RegisterSummarizer("openai", func(entry config.ProviderEntry) (summarize.Provider, error) {
		var opts []oaisummarize.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaisummarize.WithBaseURL(entry.BaseURL))
		}
		if org := entry.Option("organization"); org != "" {
			opts = append(opts, oaisummarize.WithOrganization(org))
		}
		return oaisummarize.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSummarizer("anyllm", func(entry config.ProviderEntry) (summarize.Provider, error) {
		backend := strings.ToLower(entry.Option("backend"))
		if backend == "" {
			return nil, errors.New("anyllm: options.backend is required")
		}
		if entry.APIKey == "" && !slices.Contains(keylessBackends, backend) &&
			os.Getenv(strings.ToUpper(backend)+"_API_KEY") == "" {
			return nil, fmt.Errorf("anyllm/%s: %w: api key is empty", backend, provider.ErrNotConfigured)
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(backend, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("huggingface", func(entry config.ProviderEntry) (tts.Provider, error) {
		if entry.APIKey == "" {
			return nil, fmt.Errorf("huggingface: %w: api key is empty", provider.ErrNotConfigured)
		}
		var opts []hftts.Option
		if entry.BaseURL != "" {
			opts = append(opts, hftts.WithBaseURL(entry.BaseURL))
		}
		return hftts.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := entry.Option("language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if speaker := entry.Option("speaker"); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		if mode := entry.Option("api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := entry.Option("voice"); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		if outputFmt := entry.Option("output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithEndpoint(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// services holds everything the HTTP layer needs.
type services struct {
	Aggregator  *news.Aggregator
	Summarizer  *resilience.Summarizer
	Synthesizer *resilience.Synthesizer
	Checkers    []health.Checker
}

// buildServices instantiates the headline source and both fallback chains
// named in cfg using the registry.
func buildServices(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*services, error) {
	source, err := reg.CreateHeadlines(cfg.News)
	sourceErr := err
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		slog.Warn("headline source not configured; /api/news will fail until it is", "source", cfg.News.Source, "err", err)
		source = unconfiguredSource{err: err}
	case err != nil:
		return nil, fmt.Errorf("create headline source %q: %w", cfg.News.Source, err)
	default:
		slog.Info("provider created", "kind", "news", "name", cfg.News.Source)
	}

	summarizers, err := reg.Summarizers(cfg.Summarize.Backends)
	if err != nil {
		return nil, err
	}
	synthesizers, err := reg.Synthesizers(cfg.TTS.Backends)
	if err != nil {
		return nil, err
	}

	sum := resilience.NewSummarizer(resilience.SummarizerConfig{
		Timeout:       cfg.Summarize.Timeout,
		TruncateRunes: cfg.Summarize.TruncateRunes,
		Metrics:       m,
	}, summarizers...)
	syn := resilience.NewSynthesizer(resilience.SynthesizerConfig{
		Timeout:       cfg.TTS.Timeout,
		MinAudioBytes: cfg.TTS.MinAudioBytes,
		Metrics:       m,
	}, synthesizers...)
	if !sum.Configured() {
		slog.Warn("no summarizer configured; articles will carry truncated text")
	}
	if !syn.Configured() {
		slog.Warn("no TTS backend configured; clients will fall back to local speech")
	}

	agg := news.NewAggregator(source, sum,
		news.WithCountry(cfg.News.Country),
		news.WithPageSize(cfg.News.PageSize),
		news.WithSourceName(cfg.News.Source),
		news.WithMetrics(m),
	)

	checkers := []health.Checker{
		{Name: "headlines", Check: func(context.Context) error { return sourceErr }},
		{Name: "summarizer", Optional: true, Check: configured(sum.Configured, "summarize")},
		{Name: "tts", Optional: true, Check: configured(syn.Configured, "tts")},
	}

	return &services{Aggregator: agg, Summarizer: sum, Synthesizer: syn, Checkers: checkers}, nil
}

func configured(ok func() bool, kind string) func(context.Context) error {
	return func(context.Context) error {
		if ok() {
			return nil
		}
		return fmt.Errorf("%s: %w", kind, provider.ErrNotConfigured)
	}
}

// unconfiguredSource stands in for a headline source whose credential is
// missing so the server still starts and reports the problem per request.
type unconfiguredSource struct{ err error }

func (u unconfiguredSource) TopHeadlines(context.Context, headlines.Query) ([]headlines.Headline, error) {
	return nil, u.err
}
