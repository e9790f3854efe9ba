// Package mock provides a test double for the summarize.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Summary: "Short version."}
//	s, err := p.Summarize(ctx, "Long headline. Longer description.")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
)

// SummarizeCall records a single invocation of Summarize.
type SummarizeCall struct {
	// Ctx is the context passed to Summarize.
	Ctx context.Context
	// Text is the input text passed to Summarize.
	Text string
}

// Provider is a mock implementation of summarize.Provider.
// Zero values cause Summarize to return "" and a nil error.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Summary is returned by Summarize when Err is nil and SummaryFunc is nil.
	Summary string

	// SummaryFunc, if set, computes the summary from the input text.
	SummaryFunc func(text string) (string, error)

	// Err, if non-nil, is returned as the error from Summarize.
	Err error

	// Delay, if positive, makes Summarize wait this long (or until ctx is done).
	Delay time.Duration

	// --- Call records ---

	// SummarizeCalls records every call to Summarize in order.
	SummarizeCalls []SummarizeCall
}

// Summarize records the call and returns the configured response.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	p.SummarizeCalls = append(p.SummarizeCalls, SummarizeCall{Ctx: ctx, Text: text})
	summary, fn, err, delay := p.Summary, p.SummaryFunc, p.Err, p.Delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return "", err
	}
	if fn != nil {
		return fn(text)
	}
	return summary, nil
}

// CallCount returns the number of Summarize calls so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SummarizeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SummarizeCalls = nil
}

// Ensure Provider implements summarize.Provider at compile time.
var _ summarize.Provider = (*Provider)(nil)
