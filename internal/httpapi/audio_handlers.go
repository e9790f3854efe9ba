package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/internal/resilience"
)

type audioRequest struct {
	Text string `json:"text"`
}

func (r *Router) handleAudio(w http.ResponseWriter, req *http.Request) {
	var body audioRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Text is required", Details: err.Error()})
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Text is required"})
		return
	}
	// Over-long text never reaches the backends, but the client can still
	// read it with local speech.
	if n := trimmedRunes(text); n > r.cfg.MaxTextRunes {
		observe.Logger(req.Context()).Warn("audio text over limit", "runes", n, "limit", r.cfg.MaxTextRunes)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:    "Audio generation failed",
			Message:  "Text is too long for the text-to-speech service",
			Details:  fmt.Sprintf("text has %d characters, the limit is %d", n, r.cfg.MaxTextRunes),
			Fallback: true,
		})
		return
	}

	switch res := r.cfg.Speech.Synthesize(req.Context(), text).(type) {
	case resilience.Audio:
		w.Header().Set("Content-Type", res.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Bytes)

	case resilience.Unavailable:
		observe.Logger(req.Context()).Warn("audio generation failed",
			"reason", string(res.Reason), "detail", res.Detail)
		status, resp := unavailableError(res)
		writeJSON(w, status, resp)

	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:    "Audio generation failed",
			Message:  "Text-to-speech service is currently unavailable",
			Fallback: true,
		})
	}
}

// unavailableError maps an [resilience.Unavailable] result onto the HTTP
// status and body sent to the UI. Every variant asks the client to fall back
// to local speech.
func unavailableError(u resilience.Unavailable) (int, errorBody) {
	switch u.Reason {
	case resilience.ReasonTimeout:
		return http.StatusRequestTimeout, errorBody{
			Error:    "Audio generation timed out",
			Message:  "Text-to-speech service took too long to respond",
			Fallback: true,
		}
	case resilience.ReasonNotConfigured:
		return http.StatusInternalServerError, errorBody{
			Error:    "Audio generation failed",
			Message:  "Text-to-speech service is not configured",
			Fallback: true,
		}
	default:
		return http.StatusInternalServerError, errorBody{
			Error:    "Audio generation failed",
			Message:  "Text-to-speech service is currently unavailable",
			Details:  u.Detail,
			Fallback: true,
		}
	}
}
