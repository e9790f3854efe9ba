// Package feed implements headlines.Provider over a list of RSS or Atom feeds
// using gofeed. It needs no credential, which makes it the fallback source
// for deployments without a NewsAPI key.
package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
)

const (
	defaultTimeout = 10 * time.Second
	providerName   = "feed"
)

// Option is a functional option for configuring a feed provider.
type Option func(*Provider)

// WithTimeout sets the HTTP client timeout used for each feed.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithHTTPClient replaces the HTTP client used to download feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// Provider merges items from several feeds, newest first.
type Provider struct {
	urls   []string
	client *http.Client
}

// Ensure Provider implements headlines.Provider at compile time.
var _ headlines.Provider = (*Provider)(nil)

// New creates a feed provider. At least one feed URL is required.
func New(urls []string, opts ...Option) (*Provider, error) {
	var clean []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("feed: feed urls: %w", provider.ErrNotConfigured)
	}
	p := &Provider{
		urls:   clean,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type dated struct {
	headlines.Headline
	at time.Time
}

// TopHeadlines downloads every feed concurrently and returns the newest
// q.PageSize items. q.Country is ignored. Feeds that fail are logged and
// skipped; the call fails only when every feed fails.
func (p *Provider) TopHeadlines(ctx context.Context, q headlines.Query) ([]headlines.Headline, error) {
	var (
		mu      sync.Mutex
		items   []dated
		errs    = make([]error, len(p.urls))
		g, gctx = errgroup.WithContext(ctx)
	)
	for i, u := range p.urls {
		g.Go(func() error {
			got, err := p.fetch(gctx, u)
			if err != nil {
				errs[i] = err
				slog.Warn("feed: fetch failed", "url", u, "error", err)
				return nil
			}
			mu.Lock()
			items = append(items, got...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if failed := countNonNil(errs); failed == len(p.urls) {
		return nil, errors.Join(errs...)
	}

	// Newest first; undated items sink to the end in feed order.
	slices.SortStableFunc(items, func(a, b dated) int {
		switch {
		case a.at.IsZero() && b.at.IsZero():
			return 0
		case a.at.IsZero():
			return 1
		case b.at.IsZero():
			return -1
		}
		return cmp.Compare(b.at.UnixNano(), a.at.UnixNano())
	})

	seen := make(map[string]bool, len(items))
	out := make([]headlines.Headline, 0, len(items))
	for _, it := range items {
		if it.URL != "" && seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		out = append(out, it.Headline)
		if q.PageSize > 0 && len(out) == q.PageSize {
			break
		}
	}
	return out, nil
}

func (p *Provider) fetch(ctx context.Context, u string) ([]dated, error) {
	fp := gofeed.NewParser()
	fp.Client = p.client
	f, err := fp.ParseURLWithContext(u, ctx)
	if err != nil {
		var he gofeed.HTTPError
		if errors.As(err, &he) {
			return nil, &provider.UpstreamError{
				Provider:   providerName,
				StatusCode: he.StatusCode,
				Message:    fmt.Sprintf("%s: %s", u, he.Status),
			}
		}
		return nil, provider.Classify(providerName, fmt.Errorf("feed: %s: %w", u, err))
	}

	out := make([]dated, 0, len(f.Items))
	for _, item := range f.Items {
		h := headlines.Headline{
			Title:       strings.TrimSpace(item.Title),
			Description: headlines.PlainText(item.Description),
			URL:         item.Link,
			ImageURL:    imageURL(item),
			PublishedAt: item.Published,
			Source:      f.Title,
		}
		if h.PublishedAt == "" {
			h.PublishedAt = item.Updated
		}
		d := dated{Headline: h}
		switch {
		case item.PublishedParsed != nil:
			d.at = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			d.at = *item.UpdatedParsed
		}
		out = append(out, d)
	}
	return out, nil
}

// imageURL picks the item image, then the first image enclosure, then a
// media:thumbnail. Only http(s) URLs are returned.
func imageURL(item *gofeed.Item) string {
	if item.Image != nil && isHTTP(item.Image.URL) {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && isHTTP(enc.URL) {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, thumb := range media["thumbnail"] {
			if u := thumb.Attrs["url"]; isHTTP(u) {
				return u
			}
		}
	}
	return ""
}

func isHTTP(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func countNonNil(errs []error) int {
	n := 0
	for _, e := range errs {
		if e != nil {
			n++
		}
	}
	return n
}
