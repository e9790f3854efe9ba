// Package openai provides a summarize.Provider backed by the OpenAI chat
// completions API. Any OpenAI-compatible server can be targeted with
// [WithBaseURL].
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
)

// Compile-time interface assertion.
var _ summarize.Provider = (*Provider)(nil)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 120
	providerName     = "openai"
)

// Provider implements summarize.Provider using the OpenAI API.
type Provider struct {
	client    oai.Client
	model     string
	maxTokens int
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
	maxTokens    int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxTokens caps the completion length. Defaults to 120.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		c.maxTokens = n
	}
}

// New constructs a new OpenAI summarization Provider. An empty model selects
// [DefaultModel].
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w: apiKey must not be empty", provider.ErrNotConfigured)
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{maxTokens: defaultMaxTokens}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The fallback chain moves on to the next summarizer instead.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, maxTokens: cfg.maxTokens}, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.model }

// Summarize implements summarize.Provider.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(text))
	if err != nil {
		return "", convertError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response: %w", provider.ErrMalformedResponse)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("openai: empty completion: %w", provider.ErrMalformedResponse)
	}
	return summary, nil
}

// buildParams assembles the chat request for one summarization.
func (p *Provider) buildParams(text string) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(summarize.Prompt),
			oai.UserMessage(text),
		},
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.maxTokens))
	}
	return params
}

// convertError maps SDK errors onto the provider taxonomy.
func convertError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return &provider.UpstreamError{
			Provider:   providerName,
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return provider.Classify(providerName, fmt.Errorf("openai: chat completion: %w", err))
}
