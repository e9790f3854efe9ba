package resilience

import (
	"context"
	"time"

	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/pkg/provider"
)

// attempt runs fn once under its own deadline, inside a provider span, and
// records the outcome to metrics. Transport timeouts are classified as
// [provider.ErrTimeout].
func attempt[R any](ctx context.Context, m *observe.Metrics, kind, name string, timeout time.Duration, fn func(ctx context.Context) (R, error)) (R, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, finish := observe.StartProviderSpan(ctx, kind, name)

	start := time.Now()
	out, err := fn(ctx)
	err = provider.Classify(name, err)

	m.RecordAttempt(ctx, name, kind, time.Since(start), err)
	finish(err)
	return out, err
}
