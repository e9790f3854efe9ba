// Package news assembles the article list served to the UI: it fetches the
// top headlines and summarizes every one of them concurrently.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
)

const (
	// DefaultPageSize is the number of headlines requested per refresh.
	DefaultPageSize = 5

	// DefaultCountry is the region headlines are requested for.
	DefaultCountry = "us"
)

// Article is one news item as served to clients. It is built fresh for every
// request and never stored.
type Article struct {
	// ID is unique within one response and not stable across requests.
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Summary is always set when Title or Description is.
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl,omitempty"`
	PublishedAt string `json:"publishedAt"`
	Source      string `json:"source,omitempty"`
}

// Summarizer produces a summary for one text and never fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Option is a functional option for an [Aggregator].
type Option func(*Aggregator)

// WithPageSize sets how many headlines are requested.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.query.PageSize = n
		}
	}
}

// WithCountry sets the headline region.
func WithCountry(c string) Option {
	return func(a *Aggregator) {
		if c != "" {
			a.query.Country = c
		}
	}
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithSourceName sets the name used for the headline source in logs and
// metrics.
func WithSourceName(name string) Option {
	return func(a *Aggregator) { a.sourceName = name }
}

// Aggregator fetches headlines and attaches summaries.
type Aggregator struct {
	headlines  headlines.Provider
	summarizer Summarizer
	query      headlines.Query
	metrics    *observe.Metrics
	sourceName string
}

// NewAggregator creates an [Aggregator] over the given headline source and
// summarizer.
func NewAggregator(hp headlines.Provider, s Summarizer, opts ...Option) *Aggregator {
	a := &Aggregator{
		headlines:  hp,
		summarizer: s,
		query:      headlines.Query{Country: DefaultCountry, PageSize: DefaultPageSize},
		sourceName: "headlines",
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Query returns the headline query used on every refresh.
func (a *Aggregator) Query() headlines.Query {
	return a.query
}

// TopNews returns the current top headlines, each with a summary, in the
// order the headline source returned them.
//
// A headline failure fails the whole call with the source's error, which
// carries the provider error taxonomy. Zero headlines yield an empty,
// non-nil slice and a nil error. Summaries never fail: each one degrades to
// truncated text on its own.
func (a *Aggregator) TopNews(ctx context.Context) ([]Article, error) {
	ctx, span := observe.StartSpan(ctx, "news.TopNews")
	defer span.End()

	hl, err := a.fetchHeadlines(ctx)
	if err != nil {
		return nil, fmt.Errorf("news: fetch headlines: %w", err)
	}

	articles := make([]Article, len(hl))
	if len(hl) == 0 {
		return articles, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range hl {
		g.Go(func() error {
			articles[i] = Article{
				ID:          uuid.NewString(),
				Title:       h.Title,
				Description: h.Description,
				Summary:     a.summarizer.Summarize(gctx, SummaryInput(h)),
				URL:         h.URL,
				ImageURL:    h.ImageURL,
				PublishedAt: h.PublishedAt,
				Source:      h.Source,
			}
			return nil
		})
	}
	_ = g.Wait()

	a.metrics.ArticlesServed.Add(ctx, int64(len(articles)))
	return articles, nil
}

func (a *Aggregator) fetchHeadlines(ctx context.Context) ([]headlines.Headline, error) {
	ctx, finish := observe.StartProviderSpan(ctx, observe.KindHeadlines, a.sourceName)
	start := time.Now()
	hl, err := a.headlines.TopHeadlines(ctx, a.query)
	a.metrics.RecordAttempt(ctx, a.sourceName, observe.KindHeadlines, time.Since(start), err)
	finish(err)
	return hl, err
}

// SummaryInput is the text handed to the summarizer for one headline:
// title and description joined by ". ". Empty parts are left out.
func SummaryInput(h headlines.Headline) string {
	title := strings.TrimSpace(h.Title)
	desc := strings.TrimSpace(h.Description)
	switch {
	case title == "":
		return desc
	case desc == "":
		return title
	}
	return title + ". " + desc
}
