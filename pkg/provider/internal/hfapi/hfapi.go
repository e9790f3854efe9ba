// Package hfapi is the HTTP client shared by the Hugging Face summarization
// and text-to-speech providers.
//
// Both providers talk to the serverless inference API
// (POST {base}/{model} with {"inputs": ...}) and share its error format:
// non-2xx answers carry {"error": "...", "estimated_time": 12.3} where
// estimated_time is present while a cold model is loading.
package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/provider"
)

// DefaultBaseURL is the serverless inference endpoint.
const DefaultBaseURL = "https://api-inference.huggingface.co/models"

// maxErrorBody caps how much of a failed response is read for diagnostics.
const maxErrorBody = 4096

// Client posts inference requests for one provider.
type Client struct {
	Name       string // provider name used in errors (e.g. "huggingface-tts")
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a Client with the given name, key, and timeout. An empty
// baseURL selects [DefaultBaseURL].
func New(name, apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Name:       name,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type inferenceRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

type errorBody struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime float64         `json:"estimated_time"`
}

// Response is a successful inference answer.
type Response struct {
	Body        []byte
	ContentType string
}

// Infer posts inputs to model and returns the raw 2xx body. params is sent
// as the "parameters" object when non-empty.
//
// Errors are [provider.ErrNotConfigured] when APIKey is empty,
// [*provider.UpstreamError] for non-2xx answers, and [provider.ErrTimeout]
// wrapped errors when the deadline expires.
func (c *Client) Infer(ctx context.Context, model, inputs string, params map[string]any) (*Response, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", c.Name, provider.ErrNotConfigured)
	}
	if model == "" {
		return nil, fmt.Errorf("%s: model must not be empty", c.Name)
	}

	data, err := json.Marshal(inferenceRequest{
		Inputs:     inputs,
		Parameters: params,
		Options:    map[string]any{"wait_for_model": false},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", c.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+model, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.Name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, provider.Classify(c.Name, fmt.Errorf("%s: POST %s: %w", c.Name, model, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, upstreamError(c.Name, resp.StatusCode, raw)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Classify(c.Name, fmt.Errorf("%s: read response: %w", c.Name, err))
	}
	return &Response{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// upstreamError builds an UpstreamError from an inference API error body.
// The body's "error" field may be a string or a list of strings.
func upstreamError(name string, status int, raw []byte) *provider.UpstreamError {
	ue := &provider.UpstreamError{Provider: name, StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || len(eb.Error) == 0 {
		ue.Message = provider.Excerpt(string(raw), 200)
		return ue
	}

	var msg string
	if err := json.Unmarshal(eb.Error, &msg); err != nil {
		var msgs []string
		if json.Unmarshal(eb.Error, &msgs) == nil {
			msg = strings.Join(msgs, "; ")
		} else {
			msg = string(eb.Error)
		}
	}
	if eb.EstimatedTime > 0 {
		ue.Code = "model_loading"
		msg = fmt.Sprintf("%s (estimated time %.0fs)", msg, eb.EstimatedTime)
	}
	ue.Message = msg
	return ue
}
