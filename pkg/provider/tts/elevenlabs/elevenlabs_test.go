package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
)

// fakeServer is a minimal stream-input endpoint. It records every text frame
// it receives and, once the flush frame arrives, answers with replies.
type fakeServer struct {
	mu       sync.Mutex
	path     string
	query    string
	received []map[string]any
	replies  []audioResponse
	closeErr *websocket.CloseError
}

func (f *fakeServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.path = r.URL.Path
		f.query = r.URL.RawQuery
		f.mu.Unlock()

		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer c.CloseNow()

		ctx := r.Context()
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			var m map[string]any
			_ = json.Unmarshal(data, &m)
			f.mu.Lock()
			f.received = append(f.received, m)
			f.mu.Unlock()
			if m["text"] == "" {
				break
			}
		}

		if f.closeErr != nil {
			c.Close(f.closeErr.Code, f.closeErr.Reason)
			return
		}
		for _, rep := range f.replies {
			data, _ := json.Marshal(rep)
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
		// Keep the connection open until the client goes away.
		_, _, _ = c.Read(ctx)
	}
}

func start(t *testing.T, f *fakeServer) string {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestNew(t *testing.T) {
	if _, err := New(""); !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("empty key: err = %v, want ErrNotConfigured", err)
	}
	if _, err := New("k", WithOutputFormat("mp3_44100_128")); err == nil {
		t.Fatal("expected error for non-PCM output format")
	}
	if _, err := New("k", WithOutputFormat("pcm_abc")); err == nil {
		t.Fatal("expected error for bad sample rate")
	}
	p, err := New("k", WithOutputFormat("pcm_24000"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.sampleRate != 24000 {
		t.Errorf("sampleRate = %d, want 24000", p.sampleRate)
	}
}

func TestStreamURL(t *testing.T) {
	p, _ := New("k", WithVoice("voice-abc"), WithModel("eleven_turbo_v2"))
	got := p.streamURL()
	want := "wss://api.elevenlabs.io/v1/text-to-speech/voice-abc/stream-input?model_id=eleven_turbo_v2&output_format=pcm_16000"
	if got != want {
		t.Errorf("streamURL = %q\nwant        %q", got, want)
	}
}

func TestSynthesize_CollectsPCMIntoWAV(t *testing.T) {
	part1 := bytes.Repeat([]byte{1, 0}, 300)
	part2 := bytes.Repeat([]byte{2, 0}, 300)
	f := &fakeServer{replies: []audioResponse{
		{Audio: b64(part1)},
		{Audio: b64(part2)},
		{IsFinal: true},
	}}
	origin := start(t, f)

	p, err := New("xi-key", WithEndpoint(origin), WithVoice("v1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := p.Synthesize(context.Background(), "Top story")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	pcm := append(append([]byte{}, part1...), part2...)
	want := wav.Encode(pcm, wav.Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16})
	if !bytes.Equal(out, want) {
		t.Errorf("output is not the 16 kHz mono WAV of the streamed pcm: got %d bytes, want %d", len(out), len(want))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.path != "/v1/text-to-speech/v1/stream-input" {
		t.Errorf("path = %q", f.path)
	}
	if len(f.received) != 3 {
		t.Fatalf("received %d frames, want 3 (boi, text, flush)", len(f.received))
	}
	if f.received[0]["xi_api_key"] != "xi-key" {
		t.Errorf("boi = %v", f.received[0])
	}
	if f.received[1]["text"] != "Top story " {
		t.Errorf("text frame = %v", f.received[1])
	}
}

func TestSynthesize_ErrorMessage(t *testing.T) {
	f := &fakeServer{replies: []audioResponse{
		{Message: "Invalid API key", Error: "auth_error"},
	}}
	p, _ := New("bad", WithEndpoint(start(t, f)))

	_, err := p.Synthesize(context.Background(), "x")
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.Message != "Invalid API key" || ue.Code != "auth_error" {
		t.Errorf("UpstreamError = %+v", ue)
	}
}

func TestSynthesize_PolicyClose(t *testing.T) {
	f := &fakeServer{closeErr: &websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "quota exceeded"}}
	p, _ := New("k", WithEndpoint(start(t, f)))

	_, err := p.Synthesize(context.Background(), "x")
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.Message != "quota exceeded" {
		t.Errorf("message = %q", ue.Message)
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	f := &fakeServer{replies: []audioResponse{{IsFinal: true}}}
	p, _ := New("k", WithEndpoint(start(t, f)))

	_, err := p.Synthesize(context.Background(), "x")
	if !errors.Is(err, provider.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestEnsureTrailingSpace(t *testing.T) {
	if got := ensureTrailingSpace("a"); got != "a " {
		t.Errorf("got %q", got)
	}
	if got := ensureTrailingSpace("a "); got != "a " {
		t.Errorf("got %q", got)
	}
}
