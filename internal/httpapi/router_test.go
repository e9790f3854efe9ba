package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/newsbreeze/internal/health"
	"github.com/MrWong99/newsbreeze/internal/news"
	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/internal/resilience"
	"github.com/MrWong99/newsbreeze/pkg/provider"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type fakeNews struct {
	articles []news.Article
	err      error
	panics   bool
}

func (f *fakeNews) TopNews(context.Context) ([]news.Article, error) {
	if f.panics {
		panic("boom")
	}
	return f.articles, f.err
}

type fakeSpeech struct {
	result resilience.SynthesisResult
	calls  []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) resilience.SynthesisResult {
	f.calls = append(f.calls, text)
	return f.result
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.News == nil {
		cfg.News = &fakeNews{}
	}
	if cfg.Speech == nil {
		cfg.Speech = &fakeSpeech{result: resilience.Unavailable{Reason: resilience.ReasonNotConfigured}}
	}
	cfg.Observe = testMetrics(t)
	return NewRouter(cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, Config{})
	rec := do(t, h, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "OK" || body["message"] != "NewsBreeze API is running" {
		t.Errorf("body = %v", body)
	}
}

func TestReadyz_UsesCheckers(t *testing.T) {
	h := newTestRouter(t, Config{Health: health.New(health.Checker{
		Name:  "headlines",
		Check: func(context.Context) error { return provider.ErrNotConfigured },
	})})
	if rec := do(t, h, "GET", "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, Config{})
	rec := do(t, h, "OPTIONS", "/api/audio", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}

	restricted := newTestRouter(t, Config{AllowedOrigins: []string{"https://news.example"}})
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q, want empty", got)
	}

	req.Header.Set("Origin", "https://news.example")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://news.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := newTestRouter(t, Config{News: &fakeNews{panics: true}})
	rec := do(t, h, "GET", "/api/news", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Error != "internal server error" {
		t.Errorf("body = %+v", body)
	}
}

func TestOptionalRoutes(t *testing.T) {
	ui := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>ui</html>")) })
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })

	h := newTestRouter(t, Config{UI: ui, Metrics: metrics})
	if rec := do(t, h, "GET", "/", ""); rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("ui")) {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, "GET", "/metrics", ""); rec.Body.String() != "# metrics" {
		t.Errorf("GET /metrics = %q", rec.Body.String())
	}
	if rec := do(t, h, "GET", "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}

	bare := newTestRouter(t, Config{})
	if rec := do(t, bare, "GET", "/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET / without UI = %d, want 404", rec.Code)
	}
}

func TestCaptureError_NoClient(t *testing.T) {
	// Without a Sentry client configured, capturing must be a silent no-op.
	captureError(httptest.NewRequest("GET", "/api/news", nil), errors.New("x"), "msg")
}
