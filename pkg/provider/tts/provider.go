// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps one speech synthesis service (a Hugging Face inference
// model, a local Coqui server, or ElevenLabs) and turns a complete piece of
// text into a single playable audio payload. Backends that produce raw PCM
// wrap it into WAV before returning, so every payload can be served as
// audio/wav.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into audio bytes.
	//
	// Implementations return [provider.ErrNotConfigured] without touching the
	// network when a required credential or endpoint is missing, an
	// [*provider.UpstreamError] for non-2xx answers, and an error wrapping
	// [provider.ErrTimeout] when ctx or the HTTP client deadline expires.
	//
	// The payload size is not validated here; the fallback chain decides
	// whether a payload is large enough to be real audio.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
