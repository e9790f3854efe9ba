// Package huggingface provides a summarize.Provider backed by a Hugging Face
// summarization model served through the inference API.
//
// Typical usage:
//
//	p := huggingface.New(os.Getenv("HUGGINGFACE_API_KEY"),
//	    huggingface.WithModel("facebook/bart-large-cnn"),
//	)
//	summary, err := p.Summarize(ctx, text)
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/internal/hfapi"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
)

// Compile-time interface assertion.
var _ summarize.Provider = (*Provider)(nil)

const (
	// DefaultModel is a small T5 checkpoint fine-tuned for summarization.
	DefaultModel   = "falconsai/text_summarization"
	defaultTimeout = 15 * time.Second
	providerName   = "huggingface-summarize"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel overrides the model id. Defaults to [DefaultModel].
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the inference endpoint (useful for tests and
// self-hosted inference endpoints).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithTimeout sets the per-request timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithMaxLength asks the model for summaries no longer than n tokens.
func WithMaxLength(n int) Option {
	return func(p *Provider) { p.maxLength = n }
}

// Provider implements summarize.Provider.
type Provider struct {
	apiKey    string
	model     string
	baseURL   string
	timeout   time.Duration
	maxLength int
	client    *hfapi.Client
}

// New creates a Provider. An empty apiKey is accepted; every call then
// fails with [provider.ErrNotConfigured] without touching the network.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   DefaultModel,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	p.client = hfapi.New(providerName, p.apiKey, p.baseURL, p.timeout)
	return p
}

// Model returns the configured model id.
func (p *Provider) Model() string { return p.model }

type summaryItem struct {
	SummaryText string `json:"summary_text"`
}

// Summarize posts text to the model and returns the first summary_text.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	var params map[string]any
	if p.maxLength > 0 {
		params = map[string]any{"max_length": p.maxLength}
	}
	resp, err := p.client.Infer(ctx, p.model, text, params)
	if err != nil {
		return "", err
	}

	var items []summaryItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return "", fmt.Errorf("%s: decode response: %w: %v", providerName, provider.ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("%s: empty result list: %w", providerName, provider.ErrMalformedResponse)
	}
	summary := strings.TrimSpace(items[0].SummaryText)
	if summary == "" {
		return "", fmt.Errorf("%s: empty summary_text: %w", providerName, provider.ErrMalformedResponse)
	}
	return summary, nil
}
