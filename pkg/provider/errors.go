// Package provider holds the error taxonomy shared by every remote service
// adapter (headlines, summarization, text-to-speech).
//
// Adapters report failures through these types so callers can tell a missing
// credential apart from an upstream rejection or a timeout without inspecting
// error strings:
//
//   - [ErrNotConfigured]: the adapter has no credential or endpoint; no network
//     call was attempted.
//   - [*UpstreamError]: the remote service answered with a non-2xx status.
//   - [ErrTimeout]: the bounded wait for the remote service was exceeded.
//   - [ErrMalformedResponse]: a 2xx answer whose payload failed validation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrNotConfigured is returned when a provider lacks the credential or
	// endpoint it needs. It is always returned before any network call.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrTimeout is returned when an outbound call exceeds its deadline.
	ErrTimeout = errors.New("provider timed out")

	// ErrMalformedResponse is returned when a provider answers successfully but
	// the payload does not have the expected shape or size.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// UpstreamError describes a non-2xx answer from a remote service.
type UpstreamError struct {
	// Provider names the adapter that made the call (e.g. "newsapi").
	Provider string

	// StatusCode is the HTTP status returned by the remote service.
	StatusCode int

	// Code is an optional machine-readable error code from the response body.
	Code string

	// Message is the human-readable error from the response body, or the
	// status text when the body carried none.
	Message string
}

// Error implements error.
func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, msg)
}

// IsUnauthorized reports whether err is an [*UpstreamError] with a 401 or 403 status.
func IsUnauthorized(err error) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	return ue.StatusCode == http.StatusUnauthorized || ue.StatusCode == http.StatusForbidden
}

// IsRateLimited reports whether err is an [*UpstreamError] with a 429 status.
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusTooManyRequests
}

// Classify wraps transport-level timeouts with [ErrTimeout] so callers can
// use errors.Is regardless of whether the deadline came from a context or
// from the http.Client. Other errors are returned unchanged.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", name, ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w: %w", name, ErrTimeout, err)
	}
	return err
}

// Excerpt shortens s to at most n runes for log lines.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
