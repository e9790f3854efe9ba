// Package resilience implements the ordered fallback chains used for the
// remote summarization and text-to-speech services.
//
// The building block is [FirstSuccess]: an ordered list of named steps is
// tried strictly in sequence and the first success wins. [FallbackGroup]
// holds a primary backend plus fallbacks of the same provider type and feeds
// them through [FirstSuccess]. [Summarizer] and [Synthesizer] layer the
// degradation rules for each service on top.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrAllFailed is returned when every step in a chain fails.
	ErrAllFailed = errors.New("all providers failed")

	// ErrNoProviders is returned when a chain has nothing to try.
	ErrNoProviders = errors.New("no providers configured")
)

// Step is one named, capability-equivalent strategy in an ordered chain.
type Step[R any] struct {
	Name string
	Run  func(ctx context.Context) (R, error)
}

// FirstSuccess runs steps strictly in order and returns the result of the
// first one that succeeds. Each failure is logged and remembered; when the
// list is exhausted the returned error wraps both [ErrAllFailed] and the last
// failure, so errors.Is works against either.
//
// A cancelled ctx stops iteration before the next step is started.
func FirstSuccess[R any](ctx context.Context, steps []Step[R]) (R, error) {
	var zero R
	if len(steps) == 0 {
		return zero, ErrNoProviders
	}

	var lastErr error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		out, err := step.Run(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		slog.Warn("provider failed, trying next",
			"provider", step.Name, "error", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

// fallbackEntry pairs a provider value with the name used in logs and metrics.
type fallbackEntry[T any] struct {
	name  string
	value T
}

// FallbackGroup wraps a primary and zero or more fallback instances of the same
// provider type. Entries are tried in registration order.
//
// A FallbackGroup must not be modified after it is first executed.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string) *FallbackGroup[T] {
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{{name: primaryName, value: primary}},
	}
}

// AddFallback appends a fallback provider. Fallbacks are tried in the order they
// are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.entries = append(fg.entries, fallbackEntry[T]{name: name, value: fallback})
}

// Len returns the number of registered entries. A nil group has none.
func (fg *FallbackGroup[T]) Len() int {
	if fg == nil {
		return 0
	}
	return len(fg.entries)
}

// Names returns the entry names in the order they are tried.
func (fg *FallbackGroup[T]) Names() []string {
	if fg == nil {
		return nil
	}
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// ExecuteWithResult tries fn against each entry in the group until one succeeds.
// fn receives the entry name alongside the value so callers can label spans
// and metrics. This is a package-level function because Go does not support
// method-level type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(ctx context.Context, name string, v T) (R, error)) (R, error) {
	if fg == nil {
		var zero R
		return zero, ErrNoProviders
	}
	steps := make([]Step[R], len(fg.entries))
	for i, e := range fg.entries {
		steps[i] = Step[R]{
			Name: e.name,
			Run: func(ctx context.Context) (R, error) {
				return fn(ctx, e.name, e.value)
			},
		}
	}
	return FirstSuccess(ctx, steps)
}
