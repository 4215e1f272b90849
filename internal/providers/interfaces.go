package providers

import "context"

// CompleteRequest is a single-turn chat completion.
type CompleteRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// ChatProvider produces free-text completions (summaries, key-idea lists).
type ChatProvider interface {
	Complete(ctx context.Context, req CompleteRequest) (string, error)
	Name() string
}

// EmbeddingProvider turns texts into fixed-dimension vectors, one per input,
// positionally aligned.
type EmbeddingProvider interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Name() string
}
