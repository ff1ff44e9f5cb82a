package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool for the LLM function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents an LLM's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool.
//
// Content is the text fed back to the LLM as the tool-result turn.
// Navigation and Places carry the structured payloads that the
// orchestrator forwards to the client as tool_data events; a nil field
// means the tool produced no payload of that kind.
type ToolResult struct {
	ToolCallID string            `json:"tool_call_id"`
	Content    string            `json:"content"`
	IsError    bool              `json:"is_error"`
	Navigation *NavigationResult `json:"navigation,omitempty"`
	Places     []PlaceResult     `json:"places,omitempty"`
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup and execution.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
}
