// Package headlines defines the Provider interface for top-news sources.
//
// A headline provider returns the current top stories for a region. The
// default backend is the NewsAPI top-headlines endpoint; an RSS/Atom feed
// backend is available for deployments without a NewsAPI key.
//
// Implementations must be safe for concurrent use.
package headlines

import (
	"context"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Query selects which headlines to fetch.
type Query struct {
	// Country is an ISO 3166-1 alpha-2 code (e.g. "us"). Backends that are
	// not region-aware ignore it.
	Country string

	// PageSize caps the number of headlines returned.
	PageSize int
}

// Headline is one upstream news record, copied verbatim from the source
// except for Description, which is reduced to plain text.
type Headline struct {
	Title       string
	Description string
	URL         string
	ImageURL    string

	// PublishedAt is the timestamp string exactly as the source reported it.
	PublishedAt string

	// Source is the publisher name, when known.
	Source string
}

// Provider is the abstraction over any headline source.
type Provider interface {
	// TopHeadlines returns at most q.PageSize headlines in source order.
	// An empty result with a nil error means the source had no stories.
	//
	// A missing credential or feed list is reported as
	// [provider.ErrNotConfigured] before any network call.
	TopHeadlines(ctx context.Context, q Query) ([]Headline, error)
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// PlainText strips every HTML element from s and collapses whitespace.
// Some publishers put markup into descriptions; summaries and speech must
// only ever see text.
func PlainText(s string) string {
	policyOnce.Do(func() { policy = bluemonday.StrictPolicy() })
	out := policy.Sanitize(s)
	out = html.UnescapeString(out)
	return strings.Join(strings.Fields(out), " ")
}
