// Package mock provides a test double for the headlines.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/newsbreeze/pkg/provider/headlines"
)

// TopHeadlinesCall records a single invocation of TopHeadlines.
type TopHeadlinesCall struct {
	// Ctx is the context passed to TopHeadlines.
	Ctx context.Context
	// Query is the query passed to TopHeadlines.
	Query headlines.Query
}

// Provider is a mock implementation of headlines.Provider.
type Provider struct {
	mu sync.Mutex

	// Headlines is returned by TopHeadlines when Err is nil.
	Headlines []headlines.Headline

	// Err, if non-nil, is returned as the error from TopHeadlines.
	Err error

	// TopHeadlinesCalls records every call to TopHeadlines in order.
	TopHeadlinesCalls []TopHeadlinesCall
}

// TopHeadlines records the call and returns Headlines, Err.
func (p *Provider) TopHeadlines(ctx context.Context, q headlines.Query) ([]headlines.Headline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TopHeadlinesCalls = append(p.TopHeadlinesCalls, TopHeadlinesCall{Ctx: ctx, Query: q})
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]headlines.Headline, len(p.Headlines))
	copy(out, p.Headlines)
	return out, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TopHeadlinesCalls = nil
}

// Ensure Provider implements headlines.Provider at compile time.
var _ headlines.Provider = (*Provider)(nil)
