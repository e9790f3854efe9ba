// Package httpapi exposes NewsBreeze over HTTP: the JSON news and audio
// endpoints, health probes, Prometheus metrics, and the browser UI.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/MrWong99/newsbreeze/internal/health"
	"github.com/MrWong99/newsbreeze/internal/news"
	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/internal/resilience"
)

// DefaultMaxTextRunes caps the text accepted by POST /api/audio.
const DefaultMaxTextRunes = 5000

// maxRequestBody caps the size of JSON request bodies.
const maxRequestBody = 1 << 20

// NewsSource returns the current article list.
type NewsSource interface {
	TopNews(ctx context.Context) ([]news.Article, error)
}

// SpeechSynthesizer turns text into audio or reports why it could not.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) resilience.SynthesisResult
}

// Config wires the router's collaborators.
type Config struct {
	News   NewsSource
	Speech SpeechSynthesizer

	// Health serves /health and /readyz. Default: a handler with no checkers.
	Health *health.Handler

	// UI serves GET /. Optional.
	UI http.Handler

	// Metrics serves GET /metrics. Optional.
	Metrics http.Handler

	// Observe receives request metrics. Default: [observe.DefaultMetrics].
	Observe *observe.Metrics

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// MaxTextRunes caps POST /api/audio input. Default: [DefaultMaxTextRunes].
	MaxTextRunes int
}

// Router routes requests to the NewsBreeze handlers.
type Router struct {
	cfg Config
	mux *http.ServeMux
}

// NewRouter builds the full handler chain: Sentry panic recovery, CORS, and
// the observe middleware around the route mux.
func NewRouter(cfg Config) http.Handler {
	if cfg.Health == nil {
		cfg.Health = health.New()
	}
	if cfg.Observe == nil {
		cfg.Observe = observe.DefaultMetrics()
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = DefaultMaxTextRunes
	}

	r := &Router{cfg: cfg, mux: http.NewServeMux()}
	r.routes()
	return withSentryRecovery(withCORS(cfg.AllowedOrigins, observe.Middleware(cfg.Observe)(r.mux)))
}

func (r *Router) routes() {
	r.mux.HandleFunc("GET /api/news", r.handleNews)
	r.mux.HandleFunc("POST /api/audio", r.handleAudio)
	r.cfg.Health.Register(r.mux)

	if r.cfg.Metrics != nil {
		r.mux.Handle("GET /metrics", r.cfg.Metrics)
	}
	if r.cfg.UI != nil {
		r.mux.Handle("GET /{$}", r.cfg.UI)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Details  string `json:"details,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				observe.Logger(req.Context()).Error("panic in handler", "path", req.URL.Path, "panic", err)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		switch {
		case len(allowed) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context.
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		if cid := observe.CorrelationID(req.Context()); cid != "" {
			scope.SetTag("trace_id", cid)
		}
		sentry.CaptureException(err)
	})
}

// trimmedRunes reports the rune count of s after trimming.
func trimmedRunes(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
