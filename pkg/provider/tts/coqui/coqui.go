// Package coqui provides a tts.Provider backed by a locally running Coqui TTS
// server (standard server or XTTS v2 API server) via its REST API.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): targets the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via GET /api/tts with
//     URL query parameters; model details are retrieved from GET /details.
//
//   - APIModeXTTS: targets the Coqui XTTS v2 API server. Synthesis is performed
//     via POST /tts_to_audio/ with a JSON body; speakers are retrieved from
//     GET /studio_speakers.
//
// Both servers answer with a complete WAV file, which is returned as-is.
//
// Typical usage:
//
//	p, err := coqui.New("http://localhost:5002", coqui.WithLanguage("en"))
//	audio, err := p.Synthesize(ctx, "Good morning, here are the headlines.")
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// ---- constants ----

const (
	providerName           = "coqui"
	defaultLanguage        = "en"
	defaultTimeout         = 30 * time.Second
	ttsEndpoint            = "/tts_to_audio/"
	studioSpeakersEndpoint = "/studio_speakers"
	apiTTSEndpoint         = "/api/tts"
	detailsEndpoint        = "/details"
	maxErrorBody           = 1024
)

// ---- APIMode ----

// APIMode selects which Coqui server API the provider will target.
type APIMode string

const (
	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	// A speaker is required in this mode.
	APIModeXTTS APIMode = "xtts"

	// APIModeStandard targets the standard Coqui TTS server (/api/tts).
	// This is the default mode.
	APIModeStandard APIMode = "standard"
)

// ---- options ----

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the language code sent to the TTS server (e.g., "en",
// "de", "fr"). Defaults to "en" if not set.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithSpeaker selects the speaker id (standard mode, multi-speaker models) or
// the studio speaker / reference wav (XTTS mode).
func WithSpeaker(id string) Option {
	return func(p *Provider) {
		p.speaker = id
	}
}

// WithTimeout sets the per-request HTTP timeout for calls to the TTS server.
// Defaults to 30 s if not set.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithAPIMode sets the server API mode. Use APIModeStandard (default) for the
// standard Coqui TTS Docker image or APIModeXTTS for the XTTS v2 API server.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) {
		p.apiMode = mode
	}
}

// ---- Provider ----

// Provider implements tts.Provider backed by a Coqui TTS server.
// It is safe for concurrent use.
type Provider struct {
	serverURL  string
	language   string
	speaker    string
	httpClient *http.Client
	apiMode    APIMode
}

// New creates a new Coqui Provider that targets the TTS server at serverURL
// (e.g., "http://localhost:5002"). An empty serverURL yields
// [provider.ErrNotConfigured].
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("coqui: %w: serverURL must not be empty", provider.ErrNotConfigured)
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  defaultLanguage,
		apiMode:   APIModeStandard,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	if p.apiMode == APIModeXTTS && p.speaker == "" {
		return nil, errors.New("coqui: a speaker is required in XTTS mode")
	}
	return p, nil
}

// ttsRequest is the JSON body sent to POST /tts_to_audio/ (XTTS mode).
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// studioSpeakersResponse represents the raw map[name]any returned by GET /studio_speakers.
type studioSpeakersResponse map[string]json.RawMessage

// detailsResponse is the JSON body returned by GET /details (standard mode).
type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// ---- Synthesize ----

// Synthesize renders text with the configured server and returns the WAV file.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req, endpoint, err := p.newSynthesisRequest(ctx, text)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", wav.MIMEType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(providerName, fmt.Errorf("coqui: %s %s: %w", req.Method, endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &provider.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    provider.Excerpt(string(raw), 200),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Classify(providerName, fmt.Errorf("coqui: read WAV response: %w", err))
	}
	return data, nil
}

// newSynthesisRequest builds the mode-specific synthesis request.
func (p *Provider) newSynthesisRequest(ctx context.Context, text string) (*http.Request, string, error) {
	if p.apiMode == APIModeXTTS {
		data, err := json.Marshal(ttsRequest{
			Text:       text,
			SpeakerWav: p.speaker,
			Language:   p.language,
		})
		if err != nil {
			return nil, "", fmt.Errorf("coqui: marshal tts request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+ttsEndpoint, bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("coqui: create tts request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, ttsEndpoint, nil
	}

	params := url.Values{}
	params.Set("text", text)
	if p.speaker != "" {
		params.Set("speaker_id", p.speaker)
	}
	if p.language != "" {
		params.Set("language_id", p.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("coqui: create tts request: %w", err)
	}
	return req, apiTTSEndpoint, nil
}

// ---- Voices ----

// Voices lists the speakers the server offers. It doubles as a reachability
// probe for readiness checks.
//
// In APIModeXTTS it calls GET /studio_speakers. In APIModeStandard it calls
// GET /details and returns the speaker list for multi-speaker models or the
// model name for single-speaker models.
func (p *Provider) Voices(ctx context.Context) ([]string, error) {
	endpoint := detailsEndpoint
	if p.apiMode == APIModeXTTS {
		endpoint = studioSpeakersEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create list-voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(providerName, fmt.Errorf("coqui: GET %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode}
	}

	var names []string
	if p.apiMode == APIModeXTTS {
		var raw studioSpeakersResponse
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("coqui: decode studio speakers: %w", err)
		}
		for name := range raw {
			names = append(names, name)
		}
	} else {
		var details detailsResponse
		if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
			return nil, fmt.Errorf("coqui: decode details response: %w", err)
		}
		names = append(names, details.Speakers...)
		if len(names) == 0 {
			name := details.ModelName
			if name == "" {
				name = "default"
			}
			names = []string{name}
		}
	}

	// Sort for deterministic output.
	sort.Strings(names)
	return names, nil
}
