// Package anyllm provides a summarize.Provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	p, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
//	p, err := anyllm.New("ollama", "llama3")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
)

// Compile-time interface assertion.
var _ summarize.Provider = (*Provider)(nil)

const defaultMaxTokens = 120

// Supported lists the backend names accepted by [New].
var Supported = []string{"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// Provider implements summarize.Provider by wrapping any-llm-go.
type Provider struct {
	backend   anyllmlib.Provider
	name      string
	model     string
	maxTokens int
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of [Supported]. opts are any-llm-go configuration
// options (e.g. anyllmlib.WithAPIKey, anyllmlib.WithBaseURL). Without an API
// key option the backend falls back to its usual environment variable
// (ANTHROPIC_API_KEY, GEMINI_API_KEY, ...).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{
		backend:   backend,
		name:      strings.ToLower(providerName),
		model:     model,
		maxTokens: defaultMaxTokens,
	}, nil
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: %s", providerName, strings.Join(Supported, ", "))
	}
}

// Summarize implements summarize.Provider.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := p.backend.Completion(ctx, p.buildParams(text))
	if err != nil {
		return "", provider.Classify("anyllm/"+p.name, fmt.Errorf("anyllm/%s: completion: %w", p.name, err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm/%s: empty choices in response: %w", p.name, provider.ErrMalformedResponse)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if summary == "" {
		return "", fmt.Errorf("anyllm/%s: empty completion: %w", p.name, provider.ErrMalformedResponse)
	}
	return summary, nil
}

// buildParams assembles the completion request for one summarization.
func (p *Provider) buildParams(text string) anyllmlib.CompletionParams {
	mt := p.maxTokens
	return anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: summarize.Prompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		MaxTokens: &mt,
	}
}
