// Package huggingface provides a tts.Provider backed by a Hugging Face
// text-to-speech model served through the inference API.
//
// The inference API answers with the encoded audio file (WAV or FLAC
// depending on the model). The bytes are returned unchanged.
package huggingface

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/provider/internal/hfapi"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second
	providerName   = "huggingface-tts"
)

// DefaultModels is the ordered list of inference models tried when no model
// list is configured.
var DefaultModels = []string{
	"espnet/kan-bayashi_ljspeech_vits",
	"facebook/mms-tts-eng",
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the inference endpoint.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithTimeout sets the per-request timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements tts.Provider for exactly one model. The fallback chain
// holds one Provider per configured model.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *hfapi.Client
}

// New creates a Provider for model. An empty apiKey is accepted; every call
// then fails with [provider.ErrNotConfigured] without touching the network.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("%s: model must not be empty", providerName)
	}
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	p.client = hfapi.New(providerName, p.apiKey, p.baseURL, p.timeout)
	return p, nil
}

// Model returns the configured model id.
func (p *Provider) Model() string { return p.model }

// Synthesize posts text to the model and returns the audio payload.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := p.client.Infer(ctx, p.model, text, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
