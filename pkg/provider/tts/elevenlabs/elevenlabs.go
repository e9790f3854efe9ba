// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs streaming WebSocket API. It implements the tts.Provider interface.
//
// The stream-input socket emits base64 PCM frames as they are generated.
// Synthesize collects them until the final frame and wraps the PCM in a WAV
// container so the result is directly playable.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	"github.com/MrWong99/newsbreeze/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	providerName     = "elevenlabs"
	defaultEndpoint  = "wss://api.elevenlabs.io"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "pcm_16000"

	// DefaultVoice is the stock "Rachel" narration voice.
	DefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoice sets the voice ID. Defaults to [DefaultVoice].
func WithVoice(id string) Option {
	return func(p *Provider) {
		p.voice = id
	}
}

// WithOutputFormat sets the PCM output format ("pcm_16000", "pcm_22050",
// "pcm_24000", "pcm_44100").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithEndpoint overrides the WebSocket origin (scheme and host), e.g. for a
// regional endpoint or a local test server.
func WithEndpoint(origin string) Option {
	return func(p *Provider) {
		p.endpoint = strings.TrimRight(origin, "/")
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	voice        string
	outputFormat string
	endpoint     string
	sampleRate   int
}

// New creates a new ElevenLabs Provider. An empty apiKey yields
// [provider.ErrNotConfigured].
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w: apiKey must not be empty", provider.ErrNotConfigured)
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		voice:        DefaultVoice,
		outputFormat: defaultOutputFmt,
		endpoint:     defaultEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	rate, err := sampleRateOf(p.outputFormat)
	if err != nil {
		return nil, err
	}
	p.sampleRate = rate
	return p, nil
}

// sampleRateOf extracts the rate from a "pcm_<rate>" output format. Encoded
// formats (mp3, ulaw) are rejected because the PCM is wrapped into WAV.
func sampleRateOf(format string) (int, error) {
	rateStr, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0, fmt.Errorf("elevenlabs: unsupported output format %q; want pcm_<rate>", format)
	}
	rate, err := strconv.Atoi(rateStr)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("elevenlabs: invalid sample rate in output format %q", format)
	}
	return rate, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for each text fragment.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// audioResponse is the JSON message received from ElevenLabs over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"` // error or info
	Error   string `json:"error,omitempty"`
}

// boiMessage is used for the initial "begin of input" handshake.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// streamURL builds the stream-input URL for the configured voice and model.
func (p *Provider) streamURL() string {
	q := url.Values{}
	q.Set("model_id", p.model)
	q.Set("output_format", p.outputFormat)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", p.endpoint, url.PathEscape(p.voice), q.Encode())
}

// Synthesize opens a WebSocket to ElevenLabs, sends text followed by the
// flush command, collects PCM until the final frame, and returns it as WAV.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	conn, resp, err := websocket.Dial(ctx, p.streamURL(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &provider.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode}
		}
		return nil, provider.Classify(providerName, fmt.Errorf("elevenlabs: dial: %w", err))
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 22)

	msgs := []any{
		boiMessage{
			Text: " ", // ElevenLabs requires a non-empty first text value
			VoiceSettings: &voiceSettings{
				Stability:       0.5,
				SimilarityBoost: 0.75,
			},
			XiAPIKey: p.apiKey,
		},
		textMessage{Text: ensureTrailingSpace(text)},
		textMessage{Text: ""}, // flush
	}
	for _, m := range msgs {
		data, _ := json.Marshal(m)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return nil, provider.Classify(providerName, fmt.Errorf("elevenlabs: send: %w", err))
		}
	}

	var pcm bytes.Buffer
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			if cs := websocket.CloseStatus(err); cs != -1 {
				var ce websocket.CloseError
				errors.As(err, &ce)
				return nil, &provider.UpstreamError{
					Provider:   providerName,
					StatusCode: http.StatusBadGateway,
					Code:       strconv.Itoa(int(cs)),
					Message:    ce.Reason,
				}
			}
			return nil, provider.Classify(providerName, fmt.Errorf("elevenlabs: read: %w", err))
		}

		var ar audioResponse
		if err := json.Unmarshal(msg, &ar); err != nil {
			continue
		}
		if ar.Error != "" || (ar.Message != "" && ar.Audio == "" && !ar.IsFinal) {
			return nil, &provider.UpstreamError{
				Provider:   providerName,
				StatusCode: http.StatusBadGateway,
				Code:       ar.Error,
				Message:    ar.Message,
			}
		}
		if ar.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(ar.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: %w: bad audio frame: %v", provider.ErrMalformedResponse, err)
			}
			pcm.Write(chunk)
		}
		if ar.IsFinal {
			break
		}
	}
	if pcm.Len() == 0 {
		return nil, fmt.Errorf("elevenlabs: %w: no audio received", provider.ErrMalformedResponse)
	}
	return wav.Encode(pcm.Bytes(), wav.Format{SampleRate: p.sampleRate, Channels: 1, BitsPerSample: 16}), nil
}

// ensureTrailingSpace appends the space the stream-input API expects at the
// end of every text chunk.
func ensureTrailingSpace(s string) string {
	if strings.HasSuffix(s, " ") {
		return s
	}
	return s + " "
}
