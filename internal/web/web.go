// Package web serves the embedded NewsBreeze browser UI.
//
// The page is a single HTML document whose script mirrors the playback
// controller in internal/playback: one article plays at a time, server audio
// is used when it is large enough, and the browser's speechSynthesis takes
// over when the server asks for a fallback.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
)

//go:embed static/index.html
var files embed.FS

var indexTmpl = template.Must(template.ParseFS(files, "static/index.html"))

// Options configures the rendered page.
type Options struct {
	// APIBaseURL is the origin the page calls for /api/*. Empty means the
	// page's own origin.
	APIBaseURL string

	// MinAudioBytes mirrors the server-side audio size threshold.
	MinAudioBytes int

	// AutoFallback speaks with the browser voice without asking first.
	AutoFallback bool
}

type pageData struct {
	APIBaseURL    string
	MinAudioBytes int
	AutoFallback  bool
}

// Handler renders the page once and serves it from memory.
func Handler(opts Options) (http.Handler, error) {
	if opts.MinAudioBytes <= 0 {
		opts.MinAudioBytes = 1000
	}
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, pageData{
		APIBaseURL:    strings.TrimRight(opts.APIBaseURL, "/"),
		MinAudioBytes: opts.MinAudioBytes,
		AutoFallback:  opts.AutoFallback,
	})
	if err != nil {
		return nil, err
	}
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(page)))
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(page)
	}), nil
}
