// Package apiclient is a Go client for the NewsBreeze HTTP API, used by the
// CLI subcommands that talk to a running server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/internal/news"
)

const (
	defaultTimeout = 45 * time.Second
	maxErrorBody   = 64 << 10
)

// APIError is a non-2xx answer from the NewsBreeze API.
type APIError struct {
	StatusCode int
	Err        string `json:"error"`
	Message    string `json:"message"`
	Details    string `json:"details"`

	// Fallback is set when the server asks the client to use local speech.
	Fallback bool `json:"fallback"`
}

// Error implements error.
func (e *APIError) Error() string {
	msg := e.Err
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("newsbreeze api: status %d: %s", e.StatusCode, msg)
}

// IsFallback reports whether err is an [*APIError] asking for local speech.
func IsFallback(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Fallback
}

// Option is a functional option for a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// Client calls a NewsBreeze server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("apiclient: base URL must not be empty")
	}
	c := &Client{baseURL: baseURL, http: &http.Client{Timeout: defaultTimeout}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type newsResponse struct {
	Articles []news.Article `json:"articles"`
	Message  string         `json:"message"`
}

// News fetches the current article list. message is set when the server
// found no headlines.
func (c *Client) News(ctx context.Context) (articles []news.Article, message string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/news", nil)
	if err != nil {
		return nil, "", fmt.Errorf("apiclient: create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("apiclient: GET /api/news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeError(resp)
	}
	var body newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("apiclient: decode news: %w", err)
	}
	return body.Articles, body.Message, nil
}

// Audio asks the server to synthesize text and returns the audio bytes.
// Failures the server wants handled with local speech come back as an
// [*APIError] with Fallback set.
func (c *Client) Audio(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("apiclient: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/audio", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("apiclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: POST /api/audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: read audio: %w", err)
	}
	return audio, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ae := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, ae); err != nil {
		ae.Err = strings.TrimSpace(string(raw))
	}
	ae.StatusCode = resp.StatusCode
	return ae
}
