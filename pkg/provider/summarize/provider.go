// Package summarize defines the Provider interface for text summarization
// backends.
//
// A summarization provider condenses a short piece of news text (a headline
// plus its description) into one or two sentences. Backends include the
// Hugging Face inference API and chat-completion LLMs prompted to summarize.
//
// Implementations must be safe for concurrent use; the news aggregator calls
// Summarize for every headline in parallel.
package summarize

import "context"

// Provider is the abstraction over any summarization backend.
type Provider interface {
	// Summarize returns a summary of text.
	//
	// An empty or whitespace-only summary is never returned with a nil error;
	// implementations report it as [provider.ErrMalformedResponse].
	// A missing credential is reported as [provider.ErrNotConfigured] before
	// any network call is made.
	Summarize(ctx context.Context, text string) (string, error)
}

// Prompt is the system instruction used by chat-completion backends.
const Prompt = "You summarize news articles. Reply with one or two plain sentences " +
	"that capture the key facts. Do not add commentary, headings, or quotation marks."
