package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProvider(baseURL string) *AnthropicProvider {
	return NewAnthropicProvider(config.LLMConfig{
		Provider: "anthropic",
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Model:    "claude-sonnet-4-20250514",
	}, newTestLogger())
}

func TestAnthropicChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req anthropicRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req.System == "" {
			t.Error("system prompt not extracted from messages")
		}
		fmt.Fprint(w, `{
			"id": "msg_1", "model": "claude-sonnet-4-20250514", "role": "assistant",
			"content": [{"type":"text","text":"The Bund is by the river."}],
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`)
	}))
	defer server.Close()

	provider := testProvider(server.URL)
	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are a travel assistant."},
			{Role: domain.RoleUser, Content: "Where is the Bund?"},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "The Bund is by the river." {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 19 {
		t.Errorf("total tokens = %d, want 19", resp.Usage.TotalTokens)
	}
}

func TestAnthropicChatToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "msg_2", "model": "m", "role": "assistant",
			"content": [
				{"type":"text","text":"Let me look that up."},
				{"type":"tool_use","id":"tu_1","name":"get_navigation","input":{"destination":"The Bund"}}
			],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	}))
	defer server.Close()

	provider := testProvider(server.URL)
	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "Navigate to the Bund"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.Name != "get_navigation" || tc.ID != "tu_1" {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestAnthropicChatStreamTextAndToolInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("unexpected Accept: %s", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		events := []string{
			`data: {"type":"message_start"}`,
			`data: {"type":"content_block_start","content_block":{"type":"text"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Checking"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":" routes"}}`,
			`data: {"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_9","name":"get_navigation"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"destination\":"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"\"外滩\"}"}}`,
			`data: {"type":"message_delta","usage":{"input_tokens":5,"output_tokens":2}}`,
			`data: {"type":"message_stop"}`,
		}
		for _, e := range events {
			fmt.Fprintln(w, e)
			fmt.Fprintln(w)
			flusher.Flush()
		}
	}))
	defer server.Close()

	provider := testProvider(server.URL)
	ch, err := provider.ChatStream(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "navigate"}},
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var content, args string
	var id, name string
	var gotDone bool
	for delta := range ch {
		content += delta.Content
		for _, tc := range delta.ToolCalls {
			if tc.ID != "" {
				id = tc.ID
			}
			if tc.Name != "" {
				name = tc.Name
			}
			args += string(tc.Arguments)
		}
		if delta.Done {
			gotDone = true
		}
	}

	if content != "Checking routes" {
		t.Errorf("content = %q", content)
	}
	if id != "tu_9" || name != "get_navigation" {
		t.Errorf("tool call id=%q name=%q", id, name)
	}
	if args != `{"destination":"外滩"}` {
		t.Errorf("arguments = %q", args)
	}
	if !gotDone {
		t.Error("expected Done=true")
	}
}

func TestAnthropicChatStreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	provider := testProvider(server.URL)
	_, err := provider.ChatStream(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "test"}},
	})
	if err == nil {
		t.Fatal("expected error from HTTP error")
	}
}

func TestToAnthropicRequestToolResultTurn(t *testing.T) {
	req := toAnthropicRequest(domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "go"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "tu_1", Name: "get_navigation", Arguments: json.RawMessage(`{}`)}}},
			{Role: domain.RoleTool, Content: `{"ok":true}`, ToolCalls: []domain.ToolCall{{ID: "tu_1", Name: "get_navigation"}}},
		},
	})

	if len(req.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(req.Messages))
	}
	toolTurn := req.Messages[2]
	if toolTurn.Role != "user" {
		t.Errorf("tool result role = %q, want user", toolTurn.Role)
	}
	if toolTurn.Content[0].Type != "tool_result" || toolTurn.Content[0].ToolUseID != "tu_1" {
		t.Errorf("tool result block = %+v", toolTurn.Content[0])
	}
}

func TestToAnthropicRequestImageBlock(t *testing.T) {
	req := toAnthropicRequest(domain.ChatRequest{
		Messages: []domain.Message{{
			Role:    domain.RoleUser,
			Content: "what does this sign say?",
			Image:   &domain.Image{Base64: "aGk=", MediaType: "image/jpeg"},
		}},
	})

	blocks := req.Messages[0].Content
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want image + text", len(blocks))
	}
	if blocks[0].Type != "image" || blocks[0].Source == nil || blocks[0].Source.MediaType != "image/jpeg" {
		t.Errorf("image block = %+v", blocks[0])
	}
}

func TestToAnthropicRequestImageWithoutText(t *testing.T) {
	req := toAnthropicRequest(domain.ChatRequest{
		Messages: []domain.Message{{
			Role:  domain.RoleUser,
			Image: &domain.Image{Base64: "aGk=", MediaType: "image/png"},
		}},
	})

	blocks := req.Messages[0].Content
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want image only", len(blocks))
	}
	if blocks[0].Type != "image" {
		t.Errorf("block type = %q, want image", blocks[0].Type)
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusBadGateway, domain.ErrProviderError},
		{http.StatusInternalServerError, domain.ErrProviderError},
	}
	for _, tt := range tests {
		err := mapHTTPError(tt.status, []byte("boom"))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: %v not wrapped in %v", tt.status, err, tt.want)
		}
	}
}
