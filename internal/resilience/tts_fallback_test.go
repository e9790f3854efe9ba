package resilience

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
	ttsmock "github.com/MrWong99/newsbreeze/pkg/provider/tts/mock"
)

func backend(name string, p tts.Provider) Named[tts.Provider] {
	return Named[tts.Provider]{Name: name, Provider: p}
}

func TestSynthesizer_FirstAboveThresholdWins(t *testing.T) {
	m, _ := newTestMetrics(t)
	a := &ttsmock.Provider{Audio: bytes.Repeat([]byte{1}, 50)}
	b := &ttsmock.Provider{Audio: bytes.Repeat([]byte{2}, 5000)}
	c := &ttsmock.Provider{Audio: bytes.Repeat([]byte{3}, 5000)}
	s := NewSynthesizer(SynthesizerConfig{Metrics: m},
		backend("a", a), backend("b", b), backend("c", c))

	res := s.Synthesize(context.Background(), "Breaking news")
	audio, ok := res.(Audio)
	if !ok {
		t.Fatalf("result = %#v, want Audio", res)
	}
	if len(audio.Bytes) != 5000 || audio.Bytes[0] != 2 {
		t.Errorf("got %d bytes starting %d, want B's payload", len(audio.Bytes), audio.Bytes[0])
	}
	if audio.MIMEType != wav.MIMEType {
		t.Errorf("MIMEType = %q, want %q", audio.MIMEType, wav.MIMEType)
	}
	if a.CallCount() != 1 || b.CallCount() != 1 {
		t.Errorf("calls a=%d b=%d, want 1 each", a.CallCount(), b.CallCount())
	}
	if c.CallCount() != 0 {
		t.Errorf("c called %d times, want 0", c.CallCount())
	}
}

func TestSynthesizer_ThresholdIsExclusive(t *testing.T) {
	m, _ := newTestMetrics(t)
	p := &ttsmock.Provider{Audio: bytes.Repeat([]byte{1}, DefaultMinAudioBytes)}
	s := NewSynthesizer(SynthesizerConfig{Metrics: m}, backend("exact", p))

	res := s.Synthesize(context.Background(), "hi")
	u, ok := res.(Unavailable)
	if !ok {
		t.Fatalf("result = %#v, want Unavailable", res)
	}
	if u.Reason != ReasonAllBackendsFailed {
		t.Errorf("Reason = %q, want %q", u.Reason, ReasonAllBackendsFailed)
	}
	if !errors.Is(u.Err, provider.ErrMalformedResponse) {
		t.Errorf("Err = %v, want ErrMalformedResponse", u.Err)
	}

	p.Audio = append(p.Audio, 0)
	if _, ok := s.Synthesize(context.Background(), "hi").(Audio); !ok {
		t.Error("payload of MinAudioBytes+1 should be accepted")
	}
}

func TestSynthesizer_NotConfigured(t *testing.T) {
	m, reader := newTestMetrics(t)
	s := NewSynthesizer(SynthesizerConfig{Metrics: m})

	res := s.Synthesize(context.Background(), "hello")
	u, ok := res.(Unavailable)
	if !ok {
		t.Fatalf("result = %#v, want Unavailable", res)
	}
	if u.Reason != ReasonNotConfigured {
		t.Errorf("Reason = %q, want %q", u.Reason, ReasonNotConfigured)
	}
	if !errors.Is(u.Err, provider.ErrNotConfigured) {
		t.Errorf("Err = %v, want ErrNotConfigured", u.Err)
	}
	if n := counterValue(t, reader, "newsbreeze.provider.requests", "kind", "tts"); n != 0 {
		t.Errorf("provider requests = %d, want 0", n)
	}
	if n := counterValue(t, reader, "newsbreeze.tts.unavailable", "reason", "not_configured"); n != 1 {
		t.Errorf("not_configured = %d, want 1", n)
	}
}

func TestSynthesizer_AllBackendsFailed(t *testing.T) {
	m, reader := newTestMetrics(t)
	a := &ttsmock.Provider{Err: &provider.UpstreamError{Provider: "a", StatusCode: 503, Message: "model loading"}}
	b := &ttsmock.Provider{Audio: []byte("tiny")}
	s := NewSynthesizer(SynthesizerConfig{Metrics: m}, backend("a", a), backend("b", b))

	res := s.Synthesize(context.Background(), "hello")
	u, ok := res.(Unavailable)
	if !ok {
		t.Fatalf("result = %#v, want Unavailable", res)
	}
	if u.Reason != ReasonAllBackendsFailed {
		t.Errorf("Reason = %q, want %q", u.Reason, ReasonAllBackendsFailed)
	}
	if !strings.Contains(u.Detail, "4 bytes") {
		t.Errorf("Detail = %q, want the last backend's failure", u.Detail)
	}
	if strings.Contains(u.Detail, ErrAllFailed.Error()) {
		t.Errorf("Detail = %q, should not repeat the chain wrapper", u.Detail)
	}
	if n := counterValue(t, reader, "newsbreeze.tts.unavailable", "reason", "all_backends_failed"); n != 1 {
		t.Errorf("all_backends_failed = %d, want 1", n)
	}
	if n := counterValue(t, reader, "newsbreeze.provider.requests", "status", "error"); n != 2 {
		t.Errorf("failed attempts = %d, want 2", n)
	}
}

func TestSynthesizer_FinalTimeout(t *testing.T) {
	m, _ := newTestMetrics(t)
	a := &ttsmock.Provider{Err: errors.New("connection reset")}
	b := &ttsmock.Provider{Audio: bytes.Repeat([]byte{1}, 2000), Delay: time.Second}
	s := NewSynthesizer(SynthesizerConfig{Metrics: m, Timeout: 20 * time.Millisecond},
		backend("a", a), backend("b", b))

	res := s.Synthesize(context.Background(), "hello")
	u, ok := res.(Unavailable)
	if !ok {
		t.Fatalf("result = %#v, want Unavailable", res)
	}
	if u.Reason != ReasonTimeout {
		t.Errorf("Reason = %q, want %q", u.Reason, ReasonTimeout)
	}
	if !errors.Is(u.Err, provider.ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", u.Err)
	}
}

func TestSynthesizer_EarlierTimeoutCollapsesToAllFailed(t *testing.T) {
	m, _ := newTestMetrics(t)
	a := &ttsmock.Provider{Audio: bytes.Repeat([]byte{1}, 2000), Delay: time.Second}
	b := &ttsmock.Provider{Err: errors.New("bad gateway")}
	s := NewSynthesizer(SynthesizerConfig{Metrics: m, Timeout: 20 * time.Millisecond},
		backend("a", a), backend("b", b))

	u, ok := s.Synthesize(context.Background(), "hello").(Unavailable)
	if !ok {
		t.Fatal("want Unavailable")
	}
	if u.Reason != ReasonAllBackendsFailed {
		t.Errorf("Reason = %q, want %q", u.Reason, ReasonAllBackendsFailed)
	}
	if b.CallCount() != 1 {
		t.Errorf("b called %d times, want 1", b.CallCount())
	}
}

func TestSynthesizer_Backends(t *testing.T) {
	m, _ := newTestMetrics(t)
	s := NewSynthesizer(SynthesizerConfig{Metrics: m},
		backend("huggingface/espnet", &ttsmock.Provider{}),
		backend("coqui", &ttsmock.Provider{}))

	got := s.Backends()
	if len(got) != 2 || got[0] != "huggingface/espnet" || got[1] != "coqui" {
		t.Errorf("Backends = %v", got)
	}
	if s.MinAudioBytes() != DefaultMinAudioBytes {
		t.Errorf("MinAudioBytes = %d, want %d", s.MinAudioBytes(), DefaultMinAudioBytes)
	}
}
