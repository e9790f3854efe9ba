package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
)

const (
	// DefaultMinAudioBytes is the payload size a backend must exceed for its
	// audio to be accepted.
	DefaultMinAudioBytes = 1000

	// DefaultSynthesizeTimeout bounds a single synthesis attempt.
	DefaultSynthesizeTimeout = 30 * time.Second
)

// UnavailableReason says why a [Synthesizer] produced no audio.
type UnavailableReason string

const (
	// ReasonNotConfigured means no backend had the credential it needs. No
	// network call was made.
	ReasonNotConfigured UnavailableReason = "not_configured"

	// ReasonAllBackendsFailed means every backend errored or returned an
	// undersized payload.
	ReasonAllBackendsFailed UnavailableReason = "all_backends_failed"

	// ReasonTimeout means the last backend tried ran out of time.
	ReasonTimeout UnavailableReason = "timeout"
)

// SynthesisResult is either [Audio] or [Unavailable].
type SynthesisResult interface {
	synthesisResult()
}

// Audio carries a synthesized payload.
type Audio struct {
	Bytes    []byte
	MIMEType string
}

// Unavailable reports that no backend produced usable audio.
type Unavailable struct {
	Reason UnavailableReason

	// Detail is a human-readable description of the last failure.
	Detail string

	// Err is the underlying chain error, if any.
	Err error
}

func (Audio) synthesisResult()       {}
func (Unavailable) synthesisResult() {}

// SynthesizerConfig configures a [Synthesizer]. Zero values select the defaults.
type SynthesizerConfig struct {
	// Timeout bounds each attempt. Default: [DefaultSynthesizeTimeout].
	Timeout time.Duration

	// MinAudioBytes is the exclusive lower bound on accepted payload size.
	// Default: [DefaultMinAudioBytes].
	MinAudioBytes int

	// Metrics receives attempt and unavailability counters. Default:
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Synthesizer turns text into speech by trying a fixed, ordered list of TTS
// backends one at a time. The first payload larger than MinAudioBytes wins;
// later backends are not called.
//
// Synthesizer is safe for concurrent use.
type Synthesizer struct {
	group    *FallbackGroup[tts.Provider]
	timeout  time.Duration
	minBytes int
	metrics  *observe.Metrics
}

// NewSynthesizer builds a [Synthesizer] over backends in priority order. Pass
// only backends that have their credentials; with none, every call reports
// [ReasonNotConfigured].
func NewSynthesizer(cfg SynthesizerConfig, backends ...Named[tts.Provider]) *Synthesizer {
	s := &Synthesizer{
		timeout:  cfg.Timeout,
		minBytes: cfg.MinAudioBytes,
		metrics:  cfg.Metrics,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSynthesizeTimeout
	}
	if s.minBytes <= 0 {
		s.minBytes = DefaultMinAudioBytes
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
func (s *Synthesizer) Configured() bool {
	return s.group.Len() > 0
}

// Backends returns the backend names in the order they are tried.
func (s *Synthesizer) Backends() []string {
	return s.group.Names()
}

// MinAudioBytes returns the exclusive lower bound on accepted payload size.
func (s *Synthesizer) MinAudioBytes() int {
	return s.minBytes
}

// Synthesize returns [Audio] from the first backend that produces a large
// enough payload, or [Unavailable] describing why none did.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) SynthesisResult {
	if !s.Configured() {
		s.metrics.RecordTTSUnavailable(ctx, string(ReasonNotConfigured))
		return Unavailable{
			Reason: ReasonNotConfigured,
			Detail: "no text-to-speech backend is configured",
			Err:    provider.ErrNotConfigured,
		}
	}

	audio, err := ExecuteWithResult(ctx, s.group, func(ctx context.Context, name string, p tts.Provider) ([]byte, error) {
		return attempt(ctx, s.metrics, observe.KindTTS, name, s.timeout, func(ctx context.Context) ([]byte, error) {
			b, err := p.Synthesize(ctx, text)
			if err != nil {
				return nil, err
			}
			if len(b) <= s.minBytes {
				return nil, fmt.Errorf("%s: %w: %d bytes of audio, need more than %d",
					name, provider.ErrMalformedResponse, len(b), s.minBytes)
			}
			return b, nil
		})
	})
	if err == nil {
		return Audio{Bytes: audio, MIMEType: wav.MIMEType}
	}

	reason := ReasonAllBackendsFailed
	if errors.Is(err, provider.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonTimeout
	}
	observe.Logger(ctx).Warn("text-to-speech unavailable",
		slog.String("reason", string(reason)),
		slog.Any("backends", s.Backends()),
		slog.String("text", provider.Excerpt(text, 60)),
		slog.Any("error", err),
	)
	s.metrics.RecordTTSUnavailable(ctx, string(reason))
	return Unavailable{Reason: reason, Detail: lastFailure(err), Err: err}
}

// lastFailure strips the chain wrapper so Detail names only the last backend
// error.
func lastFailure(err error) string {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range u.Unwrap() {
			if !errors.Is(e, ErrAllFailed) {
				return e.Error()
			}
		}
	}
	return err.Error()
}
