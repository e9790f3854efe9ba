// Package observe provides application-wide observability primitives for
// NewsBreeze: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all NewsBreeze metrics.
const meterName = "github.com/MrWong99/newsbreeze"

// Provider kinds used as the "kind" attribute.
const (
	KindHeadlines = "headlines"
	KindSummarize = "summarize"
	KindTTS       = "tts"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per provider kind ---

	// HeadlinesDuration tracks headline retrieval latency.
	HeadlinesDuration metric.Float64Histogram

	// SummarizeDuration tracks per-attempt summarization latency.
	SummarizeDuration metric.Float64Histogram

	// TTSDuration tracks per-attempt text-to-speech latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// SummaryFallbacks counts summaries replaced by the truncated text. Use
	// with attribute.String("reason", ...).
	SummaryFallbacks metric.Int64Counter

	// TTSUnavailable counts synthesis requests that produced no audio. Use
	// with attribute.String("reason", ...).
	TTSUnavailable metric.Int64Counter

	// ArticlesServed counts articles returned by the aggregator.
	ArticlesServed metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote inference calls, which routinely take several seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.HeadlinesDuration, err = m.Float64Histogram("newsbreeze.headlines.duration",
		metric.WithDescription("Latency of headline retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SummarizeDuration, err = m.Float64Histogram("newsbreeze.summarize.duration",
		metric.WithDescription("Latency of one summarization attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("newsbreeze.tts.duration",
		metric.WithDescription("Latency of one text-to-speech attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("newsbreeze.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("newsbreeze.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SummaryFallbacks, err = m.Int64Counter("newsbreeze.summary.fallbacks",
		metric.WithDescription("Summaries replaced by truncated source text, by reason."),
	); err != nil {
		return nil, err
	}
	if met.TTSUnavailable, err = m.Int64Counter("newsbreeze.tts.unavailable",
		metric.WithDescription("Speech requests that produced no audio, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ArticlesServed, err = m.Int64Counter("newsbreeze.articles.served",
		metric.WithDescription("Total articles returned to clients."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("newsbreeze.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordAttempt records one provider call: the request counter, the error
// counter on failure, and the per-kind latency histogram.
func (m *Metrics) RecordAttempt(ctx context.Context, provider, kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, kind)
	}
	m.RecordProviderRequest(ctx, provider, kind, status)

	attrs := metric.WithAttributes(attribute.String("provider", provider))
	switch kind {
	case KindHeadlines:
		m.HeadlinesDuration.Record(ctx, elapsed.Seconds(), attrs)
	case KindSummarize:
		m.SummarizeDuration.Record(ctx, elapsed.Seconds(), attrs)
	case KindTTS:
		m.TTSDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// RecordSummaryFallback counts one summary replaced by truncated text.
func (m *Metrics) RecordSummaryFallback(ctx context.Context, reason string) {
	m.SummaryFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordTTSUnavailable counts one synthesis request that produced no audio.
func (m *Metrics) RecordTTSUnavailable(ctx context.Context, reason string) {
	m.TTSUnavailable.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
