package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/newsbreeze/internal/resilience"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	headlines map[string]func(NewsConfig) (headlines.Provider, error)
	summarize map[string]func(ProviderEntry) (summarize.Provider, error)
	tts       map[string]func(ProviderEntry) (tts.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		headlines: make(map[string]func(NewsConfig) (headlines.Provider, error)),
		summarize: make(map[string]func(ProviderEntry) (summarize.Provider, error)),
		tts:       make(map[string]func(ProviderEntry) (tts.Provider, error)),
	}
}

// RegisterHeadlines registers a headline source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterHeadlines(name string, factory func(NewsConfig) (headlines.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headlines[name] = factory
}

// RegisterSummarizer registers a summarization provider factory under name.
func (r *Registry) RegisterSummarizer(name string, factory func(ProviderEntry) (summarize.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summarize[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// CreateHeadlines instantiates the headline source named by cfg.Source.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateHeadlines(cfg NewsConfig) (headlines.Provider, error) {
	r.mu.RLock()
	factory, ok := r.headlines[cfg.Source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: news/%q", ErrProviderNotRegistered, cfg.Source)
	}
	return factory(cfg)
}

// CreateSummarizer instantiates a summarization provider using the factory registered under entry.Name.
func (r *Registry) CreateSummarizer(entry ProviderEntry) (summarize.Provider, error) {
	r.mu.RLock()
	factory, ok := r.summarize[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: summarize/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Summarizers builds the ordered summarization chain from entries. Entries
// whose factory reports [provider.ErrNotConfigured] are left out, so an
// empty result means no backend has a credential. Any other error aborts.
func (r *Registry) Summarizers(entries []ProviderEntry) ([]resilience.Named[summarize.Provider], error) {
	return buildChain("summarize", entries, r.CreateSummarizer)
}

// Synthesizers builds the ordered TTS chain from entries with the same
// rules as [Registry.Summarizers].
func (r *Registry) Synthesizers(entries []ProviderEntry) ([]resilience.Named[tts.Provider], error) {
	return buildChain("tts", entries, r.CreateTTS)
}

func buildChain[T any](kind string, entries []ProviderEntry, create func(ProviderEntry) (T, error)) ([]resilience.Named[T], error) {
	var out []resilience.Named[T]
	for i, e := range entries {
		p, err := create(e)
		if errors.Is(err, provider.ErrNotConfigured) {
			slog.Info("provider not configured, skipping", "kind", kind, "name", e.Label())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s backend %d (%s): %w", kind, i, e.Label(), err)
		}
		out = append(out, resilience.Named[T]{Name: e.Label(), Provider: p})
		slog.Info("provider created", "kind", kind, "name", e.Label())
	}
	return out, nil
}
