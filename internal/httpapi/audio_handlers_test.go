package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/MrWong99/newsbreeze/internal/resilience"
)

func TestAudio_Success(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, 4096)
	sp := &fakeSpeech{result: resilience.Audio{Bytes: payload, MIMEType: "audio/wav"}}
	h := newTestRouter(t, Config{Speech: sp})

	rec := do(t, h, "POST", "/api/audio", `{"text":"  Hello world  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4096" {
		t.Errorf("Content-Length = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Error("body does not match synthesized audio")
	}
	if len(sp.calls) != 1 || sp.calls[0] != "Hello world" {
		t.Errorf("synthesize calls = %q", sp.calls)
	}
}

func TestAudio_TextRequired(t *testing.T) {
	for _, body := range []string{"", "{}", `{"text":""}`, `{"text":"   "}`, "not json"} {
		sp := &fakeSpeech{}
		h := newTestRouter(t, Config{Speech: sp})
		rec := do(t, h, "POST", "/api/audio", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
			continue
		}
		if got := decode[errorBody](t, rec); got.Error != "Text is required" {
			t.Errorf("body %q: error = %q", body, got.Error)
		}
		if len(sp.calls) != 0 {
			t.Errorf("body %q: synthesizer called", body)
		}
	}
}

func TestAudio_TextTooLong(t *testing.T) {
	sp := &fakeSpeech{}
	h := newTestRouter(t, Config{Speech: sp, MaxTextRunes: 10})
	rec := do(t, h, "POST", "/api/audio", `{"text":"`+strings.Repeat("é", 11)+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if len(sp.calls) != 0 {
		t.Error("synthesizer called for oversized text")
	}
	body := decode[errorBody](t, rec)
	if !body.Fallback {
		t.Error("fallback = false, want true so clients can speak the text locally")
	}
	if body.Error == "" || body.Message == "" || body.Details == "" {
		t.Errorf("body = %+v, want error, message and details", body)
	}
}

func TestAudio_TextAtLimit(t *testing.T) {
	sp := &fakeSpeech{result: resilience.Audio{Bytes: make([]byte, 2000), MIMEType: "audio/wav"}}
	h := newTestRouter(t, Config{Speech: sp, MaxTextRunes: 10})
	rec := do(t, h, "POST", "/api/audio", `{"text":"`+strings.Repeat("é", 10)+`"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(sp.calls) != 1 {
		t.Errorf("synthesizer calls = %d, want 1", len(sp.calls))
	}
}

func TestAudio_Unavailable(t *testing.T) {
	tests := []struct {
		name       string
		res        resilience.Unavailable
		wantStatus int
		wantDetail string
	}{
		{"timeout", resilience.Unavailable{Reason: resilience.ReasonTimeout}, http.StatusRequestTimeout, ""},
		{"not configured", resilience.Unavailable{Reason: resilience.ReasonNotConfigured}, http.StatusInternalServerError, ""},
		{"all failed", resilience.Unavailable{Reason: resilience.ReasonAllBackendsFailed, Detail: "coqui: upstream status 500"}, http.StatusInternalServerError, "coqui: upstream status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, Config{Speech: &fakeSpeech{result: tt.res}})
			rec := do(t, h, "POST", "/api/audio", `{"text":"hi"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decode[errorBody](t, rec)
			if !body.Fallback {
				t.Error("fallback = false, want true")
			}
			if body.Error == "" || body.Message == "" {
				t.Errorf("body = %+v, want error and message", body)
			}
			if body.Details != tt.wantDetail {
				t.Errorf("details = %q, want %q", body.Details, tt.wantDetail)
			}
		})
	}
}

func TestAudio_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, Config{})
	if rec := do(t, h, "GET", "/api/audio", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
