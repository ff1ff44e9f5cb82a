package domain

import "context"

// LLMProvider is a synchronous chat completion backend.
type LLMProvider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// StreamDelta is one incremental chunk of a streaming chat response.
// Tool call deltas are positional: the first delta for a slot carries
// ID and Name, later deltas append raw bytes to Arguments.
type StreamDelta struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *Usage
	Done      bool
}

// StreamingLLMProvider is an LLMProvider that can stream deltas.
type StreamingLLMProvider interface {
	LLMProvider
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)
}
