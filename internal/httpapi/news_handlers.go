package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrWong99/newsbreeze/internal/news"
	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/pkg/provider"
)

// noHeadlinesMessage accompanies an empty article list.
const noHeadlinesMessage = "No news articles found"

type newsResponse struct {
	Articles []news.Article `json:"articles"`
	Message  string         `json:"message,omitempty"`
}

func (r *Router) handleNews(w http.ResponseWriter, req *http.Request) {
	articles, err := r.cfg.News.TopNews(req.Context())
	if err != nil {
		status, body := headlineError(err)
		observe.Logger(req.Context()).Error("failed to fetch news",
			"status", status, "error", err)
		if status >= http.StatusInternalServerError {
			captureError(req, err, body.Error)
		}
		writeJSON(w, status, body)
		return
	}

	if len(articles) == 0 {
		writeJSON(w, http.StatusOK, newsResponse{Articles: []news.Article{}, Message: noHeadlinesMessage})
		return
	}
	writeJSON(w, http.StatusOK, newsResponse{Articles: articles})
}

// headlineError maps a headline failure onto the HTTP status and body sent
// to the UI.
func headlineError(err error) (int, errorBody) {
	var ue *provider.UpstreamError
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		return http.StatusInternalServerError, errorBody{
			Error:   "News source not configured",
			Message: "No headline API key or feed is configured on the server",
		}
	case provider.IsUnauthorized(err):
		return http.StatusUnauthorized, errorBody{
			Error:   "Invalid API key",
			Message: "The headline API rejected the configured credentials",
			Details: upstreamMessage(err),
		}
	case provider.IsRateLimited(err):
		return http.StatusTooManyRequests, errorBody{
			Error:   "Rate limit exceeded",
			Message: "Too many requests to the headline API, try again later",
			Details: upstreamMessage(err),
		}
	case errors.Is(err, provider.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{
			Error:   "Failed to fetch news",
			Message: "The headline API did not answer in time",
		}
	case errors.As(err, &ue):
		status := http.StatusBadGateway
		if ue.StatusCode >= http.StatusInternalServerError {
			status = ue.StatusCode
		}
		return status, errorBody{
			Error:   "Failed to fetch news",
			Message: "The headline API answered with status " + strconv.Itoa(ue.StatusCode),
			Details: ue.Message,
		}
	default:
		return http.StatusBadGateway, errorBody{
			Error:   "Failed to fetch news",
			Message: "The headline API could not be reached",
			Details: err.Error(),
		}
	}
}

func upstreamMessage(err error) string {
	var ue *provider.UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return ""
}
