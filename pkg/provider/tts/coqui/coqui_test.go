package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/MrWong99/newsbreeze/pkg/audio/wav"
	"github.com/MrWong99/newsbreeze/pkg/provider"
)

// ---- test helpers ----

// testWAV returns a mono 16 kHz WAV file carrying n bytes of 0x33.
func testWAV(n int) []byte {
	return wav.Encode(bytes.Repeat([]byte{0x33}, n), wav.Format{SampleRate: 16000})
}

// mustNew is a test helper that calls New and fails the test on error.
func mustNew(t *testing.T, serverURL string, opts ...Option) *Provider {
	t.Helper()
	p, err := New(serverURL, opts...)
	if err != nil {
		t.Fatalf("New(%q): unexpected error: %v", serverURL, err)
	}
	return p
}

// ---- Provider creation ----

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := mustNew(t, "http://localhost:5002/")
		if p.serverURL != "http://localhost:5002" {
			t.Errorf("serverURL = %q, want trailing slash trimmed", p.serverURL)
		}
		if p.language != defaultLanguage {
			t.Errorf("language = %q, want %q", p.language, defaultLanguage)
		}
		if p.apiMode != APIModeStandard {
			t.Errorf("apiMode = %q, want %q", p.apiMode, APIModeStandard)
		}
		if p.httpClient.Timeout != defaultTimeout {
			t.Errorf("timeout = %v, want %v", p.httpClient.Timeout, defaultTimeout)
		}
	})

	t.Run("empty url is not configured", func(t *testing.T) {
		_, err := New("")
		if !errors.Is(err, provider.ErrNotConfigured) {
			t.Fatalf("err = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("xtts needs speaker", func(t *testing.T) {
		if _, err := New("http://x", WithAPIMode(APIModeXTTS)); err == nil {
			t.Fatal("expected error without speaker")
		}
		p := mustNew(t, "http://x", WithAPIMode(APIModeXTTS), WithSpeaker("Ana Florence"), WithTimeout(5*time.Second))
		if p.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v", p.httpClient.Timeout)
		}
	})
}

// ---- Synthesize ----

func TestSynthesize_StandardAPI(t *testing.T) {
	t.Parallel()

	wavData := testWAV(2000)
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiTTSEndpoint || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wavData)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithSpeaker("p225"), WithLanguage("en"))
	got, err := p.Synthesize(context.Background(), "Hello world.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(got, wavData) {
		t.Errorf("audio = %d bytes, want the server's %d bytes", len(got), len(wavData))
	}
	want := map[string][]string{
		"text":        {"Hello world."},
		"speaker_id":  {"p225"},
		"language_id": {"en"},
	}
	if !reflect.DeepEqual(gotQuery, want) {
		t.Errorf("query = %v, want %v", gotQuery, want)
	}
}

func TestSynthesize_XTTS(t *testing.T) {
	t.Parallel()

	wavData := testWAV(1500)
	var body ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ttsEndpoint || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write(wavData)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithAPIMode(APIModeXTTS), WithSpeaker("Ana Florence"), WithLanguage("de"))
	got, err := p.Synthesize(context.Background(), "Guten Morgen.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(got) != len(wavData) {
		t.Errorf("len = %d, want %d", len(got), len(wavData))
	}
	want := ttsRequest{Text: "Guten Morgen.", SpeakerWav: "Ana Florence", Language: "de"}
	if body != want {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := mustNew(t, srv.URL).Synthesize(context.Background(), "x")
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusInternalServerError || ue.Message != "model crashed" {
		t.Errorf("UpstreamError = %+v", ue)
	}
}

func TestSynthesize_ReturnsBodyUnchecked(t *testing.T) {
	t.Parallel()

	body := []byte("definitely not audio")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	got, err := mustNew(t, srv.URL).Synthesize(context.Background(), "x")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body = %q, want %q", got, body)
	}
}

func TestSynthesize_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := mustNew(t, srv.URL).Synthesize(ctx, "x")
	if !errors.Is(err, provider.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

// ---- Voices ----

func TestVoices_StandardAPI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		details detailsResponse
		want    []string
	}{
		{
			name:    "multi-speaker model",
			details: detailsResponse{ModelName: "tts_models/en/vctk/vits", Speakers: []string{"p227", "p225", "p226"}},
			want:    []string{"p225", "p226", "p227"},
		},
		{
			name:    "single-speaker model",
			details: detailsResponse{ModelName: "tts_models/en/ljspeech/vits"},
			want:    []string{"tts_models/en/ljspeech/vits"},
		},
		{
			name: "no model name",
			want: []string{"default"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := json.Marshal(tt.details)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != detailsEndpoint {
					http.NotFound(w, r)
					return
				}
				_, _ = w.Write(data)
			}))
			defer srv.Close()

			got, err := mustNew(t, srv.URL).Voices(context.Background())
			if err != nil {
				t.Fatalf("Voices: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Voices = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVoices_XTTS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != studioSpeakersEndpoint {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"Claribel Dervla":{},"Ana Florence":{}}`))
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithAPIMode(APIModeXTTS), WithSpeaker("Ana Florence"))
	got, err := p.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	want := []string{"Ana Florence", "Claribel Dervla"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Voices = %v, want %v", got, want)
	}
}

func TestVoices_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := mustNew(t, srv.URL).Voices(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
