package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/summarize"
)

const (
	// DefaultTruncateRunes is the character budget of the truncation fallback.
	DefaultTruncateRunes = 100

	// DefaultSummarizeTimeout bounds a single summarization attempt.
	DefaultSummarizeTimeout = 15 * time.Second

	// Ellipsis is appended to truncated summaries.
	Ellipsis = "…"
)

// Named pairs a provider with the name used in logs and metrics.
type Named[T any] struct {
	Name     string
	Provider T
}

// SummarizerConfig configures a [Summarizer]. Zero values select the defaults.
type SummarizerConfig struct {
	// Timeout bounds each attempt. Default: [DefaultSummarizeTimeout].
	Timeout time.Duration

	// TruncateRunes is the fallback character budget. Default: [DefaultTruncateRunes].
	TruncateRunes int

	// Metrics receives attempt and fallback counters. Default: [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Summarizer produces a short summary for a text. It never fails: when every
// configured backend errors, or none is configured, it returns the truncated
// input instead.
//
// Summarizer is safe for concurrent use.
type Summarizer struct {
	group   *FallbackGroup[summarize.Provider]
	timeout time.Duration
	n       int
	metrics *observe.Metrics
}

// NewSummarizer builds a [Summarizer] that tries backends in the given order.
// With no backends every call returns the truncation without touching the
// network.
func NewSummarizer(cfg SummarizerConfig, backends ...Named[summarize.Provider]) *Summarizer {
	s := &Summarizer{
		timeout: cfg.Timeout,
		n:       cfg.TruncateRunes,
		metrics: cfg.Metrics,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSummarizeTimeout
	}
	if s.n <= 0 {
		s.n = DefaultTruncateRunes
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	for _, b := range backends {
		if s.group == nil {
			s.group = NewFallbackGroup(b.Provider, b.Name)
			continue
		}
		s.group.AddFallback(b.Name, b.Provider)
	}
	return s
}

// Configured reports whether at least one backend is available.
func (s *Summarizer) Configured() bool {
	return s.group.Len() > 0
}

// Backends returns the backend names in the order they are tried.
func (s *Summarizer) Backends() []string {
	return s.group.Names()
}

// Summarize returns a remote summary of text, or [Truncate](text) followed by
// [Ellipsis] when no backend produces one. Empty input yields "".
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !s.Configured() {
		s.metrics.RecordSummaryFallback(ctx, "not_configured")
		return s.fallback(text)
	}

	summary, err := ExecuteWithResult(ctx, s.group, func(ctx context.Context, name string, p summarize.Provider) (string, error) {
		return attempt(ctx, s.metrics, observe.KindSummarize, name, s.timeout, func(ctx context.Context) (string, error) {
			out, err := p.Summarize(ctx, text)
			if err != nil {
				return "", err
			}
			out = strings.TrimSpace(out)
			if out == "" {
				return "", provider.ErrMalformedResponse
			}
			return out, nil
		})
	})
	if err != nil {
		reason := fallbackReason(err)
		observe.Logger(ctx).Warn("summarization failed, using truncated text",
			slog.String("reason", reason),
			slog.String("text", provider.Excerpt(text, 60)),
			slog.Any("error", err),
		)
		s.metrics.RecordSummaryFallback(ctx, reason)
		return s.fallback(text)
	}
	return summary
}

func (s *Summarizer) fallback(text string) string {
	return Truncate(text, s.n) + Ellipsis
}

// Truncate returns the first n runes of text with surrounding whitespace
// removed. Text of n runes or fewer is returned whole.
func Truncate(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if n < 0 || len(r) <= n {
		return text
	}
	return string(r[:n])
}

// fallbackReason maps a chain error onto a bounded metric label.
func fallbackReason(err error) string {
	var ue *provider.UpstreamError
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, provider.ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &ue):
		return "upstream"
	default:
		return "error"
	}
}
