// Package newsapi implements headlines.Provider against the NewsAPI
// top-headlines endpoint (https://newsapi.org/docs/endpoints/top-headlines).
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
)

const (
	// DefaultBaseURL is the NewsAPI v2 root.
	DefaultBaseURL = "https://newsapi.org/v2"

	defaultTimeout = 10 * time.Second
	providerName   = "newsapi"
	maxErrorBody   = 4096

	// removedMarker is what NewsAPI puts in every field of a withdrawn story.
	removedMarker = "[Removed]"
)

// Option is a functional option for configuring a NewsAPI provider.
type Option func(*Provider)

// WithBaseURL overrides the API root (useful for tests and proxies).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// Provider fetches top headlines from NewsAPI.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Ensure Provider implements headlines.Provider at compile time.
var _ headlines.Provider = (*Provider)(nil)

// New creates a NewsAPI provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("newsapi: api key: %w", provider.ErrNotConfigured)
	}
	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type apiResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

type apiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// TopHeadlines implements headlines.Provider.
func (p *Provider) TopHeadlines(ctx context.Context, q headlines.Query) ([]headlines.Headline, error) {
	params := url.Values{}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/top-headlines?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: create request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.Classify(providerName, fmt.Errorf("newsapi: GET top-headlines: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, upstreamError(resp.StatusCode, raw)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, provider.Classify(providerName, fmt.Errorf("newsapi: %w: %w", provider.ErrMalformedResponse, err))
	}
	if body.Status != "ok" {
		return nil, &provider.UpstreamError{
			Provider:   providerName,
			StatusCode: http.StatusBadGateway,
			Code:       body.Code,
			Message:    body.Message,
		}
	}

	out := make([]headlines.Headline, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == removedMarker {
			continue
		}
		out = append(out, headlines.Headline{
			Title:       a.Title,
			Description: headlines.PlainText(a.Description),
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
			Source:      a.Source.Name,
		})
		if q.PageSize > 0 && len(out) == q.PageSize {
			break
		}
	}
	return out, nil
}

// upstreamError converts a NewsAPI error body ({status, code, message}) into
// a [provider.UpstreamError].
func upstreamError(status int, raw []byte) *provider.UpstreamError {
	ue := &provider.UpstreamError{Provider: providerName, StatusCode: status}
	var body apiResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		ue.Code = body.Code
		ue.Message = body.Message
		return ue
	}
	ue.Message = provider.Excerpt(string(raw), 200)
	return ue
}
