package chat

import "context"

// CompletionProvider abstracts an OpenAI-style completion API (e.g., OpenAI,
// OpenRouter). Implementations perform a single attempt per call and report
// failures through the typed errors in this package.
type CompletionProvider interface {
	Complete(ctx context.Context, model string, temperature float64, messages []UpstreamMessage) (*Completion, error)
}
