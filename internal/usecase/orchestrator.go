// Package usecase drives one chat turn: it runs the model across one
// or two generation passes, executes at most one tool call in between
// and pushes the whole answer as an ordered event stream.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/tracer"
)

// EmitFunc pushes one event to the turn's consumer. A non-nil error
// means the consumer is gone and the turn should stop producing.
type EmitFunc func(domain.StreamEvent) error

// toolLabels are the human progress labels shown while a tool runs.
var toolLabels = map[string]string{
	"get_navigation":       "正在规划路线...",
	"search_nearby_places": "正在搜索附近地点...",
}

const fallbackErrorMessage = "抱歉，我暂时无法回答，请稍后再试。"

// Deps are the orchestrator's collaborators.
type Deps struct {
	LLM          domain.StreamingLLMProvider
	Tools        domain.ToolExecutor
	Enricher     *Enricher // optional
	Logger       *slog.Logger
	DefaultCity  string
	SystemPrompt string // optional override of the built-in prompt
	MaxTokens    int    // per-pass generation cap, 0 for provider default
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator creates a turn orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// RunTurn executes one chat turn and emits its event stream through
// emit. The stream always terminates with exactly one done event, on
// success and on failure alike; internal faults surface as an error
// event with a user-safe message first. The returned error is for the
// caller's logs only.
//
// The turn is: stream a first generation pass; if it requested a tool,
// run the first requested tool, publish its structured data, clear any
// provisional text and stream a second pass that sees the tool result.
func (o *Orchestrator) RunTurn(ctx context.Context, req domain.TurnRequest, emit EmitFunc) error {
	ctx, span := tracer.StartSpan(ctx, "chat.run_turn",
		trace.WithAttributes(tracer.IntAttr("chat.messages", len(req.Messages))),
	)
	defer span.End()

	emitted := 0
	send := func(ev domain.StreamEvent) error {
		if err := emit(ev); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStreamClosed, err)
		}
		emitted++
		return nil
	}

	doneSent := false
	sendDone := func() {
		if doneSent {
			return
		}
		doneSent = true
		_ = send(domain.StreamEvent{Kind: domain.EventDone, Data: "{}"})
	}
	defer sendDone()

	err := o.runTurn(ctx, req, send)
	if err != nil {
		tracer.RecordError(span, err)
		if errors.Is(err, domain.ErrStreamClosed) {
			// Consumer disappeared mid-turn; nothing left to tell it.
			o.deps.Logger.Debug("turn consumer gone", "events", emitted, "error", err)
			return err
		}
		o.deps.Logger.Error("turn failed", "error", err)
		ev, _ := domain.JSONEvent(domain.EventError, domain.ErrorPayload{Message: fallbackErrorMessage})
		_ = send(ev)
		return err
	}

	tracer.SetOK(span)
	return nil
}

func (o *Orchestrator) runTurn(ctx context.Context, req domain.TurnRequest, send EmitFunc) error {
	city := req.City
	if city == "" {
		city = o.deps.DefaultCity
	}

	tc := domain.TurnContext{City: city, Nav: req.NavContext}
	if req.Origin != "" {
		if loc, err := domain.ParseLngLat(req.Origin); err == nil {
			tc.Origin = &loc
		}
	}
	ctx = domain.ContextWithTurn(ctx, tc)

	messages := o.buildMessages(req, city)
	chatReq := domain.ChatRequest{
		Messages:  messages,
		Tools:     o.deps.Tools.Schemas(),
		MaxTokens: o.deps.MaxTokens,
		Stream:    true,
	}

	start := time.Now()
	first, preToolText, err := o.generate(ctx, chatReq, send)
	if err != nil {
		return err
	}

	if len(first.ToolCalls) == 0 {
		// The already-streamed text stands as final.
		o.deps.Logger.Info("turn completed without tool",
			"duration", time.Since(start), "chars", len(first.Content))
		return nil
	}

	call := first.ToolCalls[0]
	result := o.executeTool(ctx, call)
	extras := first.ToolCalls[1:]

	if err := o.emitToolEvents(call, result, preToolText, send); err != nil {
		return err
	}

	var enriched <-chan domain.StreamEvent
	if o.deps.Enricher != nil && len(result.Places) > 0 {
		enriched = o.deps.Enricher.Enrich(ctx, result.Places)
	}

	// Second pass: the model sees its own tool request and the result.
	messages = append(messages, first)
	messages = append(messages, domain.Message{
		Role:      domain.RoleTool,
		Content:   result.Content,
		Name:      call.Name,
		ToolCalls: []domain.ToolCall{{ID: call.ID}},
	})
	for _, extra := range extras {
		messages = append(messages, domain.Message{
			Role:      domain.RoleTool,
			Content:   "only one tool action per message is supported",
			Name:      extra.Name,
			ToolCalls: []domain.ToolCall{{ID: extra.ID}},
		})
	}

	chatReq.Messages = messages
	second, _, err := o.generate(ctx, chatReq, send)
	if err != nil {
		return err
	}

	if enriched != nil {
		select {
		case ev, ok := <-enriched:
			if ok {
				if err := send(ev); err != nil {
					return err
				}
			}
		case <-ctx.Done():
		}
	}

	o.deps.Logger.Info("turn completed with tool",
		"tool", call.Name,
		"duration", time.Since(start),
		"chars", len(second.Content))
	return nil
}

// generate streams one pass, forwarding text deltas as they arrive,
// and returns the accumulated assistant message plus whether any text
// was emitted.
func (o *Orchestrator) generate(ctx context.Context, req domain.ChatRequest, send EmitFunc) (domain.Message, bool, error) {
	ctx, span := tracer.StartSpan(ctx, "chat.generate")
	defer span.End()

	deltaCh, err := o.deps.LLM.ChatStream(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.Message{}, false, fmt.Errorf("llm stream: %w", err)
	}

	acc := newStreamAccumulator()
	textEmitted := false
	for delta := range deltaCh {
		acc.addDelta(delta)
		if delta.Content != "" {
			if err := send(domain.TextEvent(delta.Content)); err != nil {
				// Drain so the provider goroutine can finish.
				for range deltaCh {
				}
				return domain.Message{}, textEmitted, err
			}
			textEmitted = true
		}
	}

	msg := acc.build()
	span.SetAttributes(tracer.IntAttr("chat.tool_calls", len(msg.ToolCalls)))
	tracer.SetOK(span)
	return msg, textEmitted, nil
}

// executeTool runs one tool call. Faults never abort the turn: they
// come back as an error result the second pass can explain.
func (o *Orchestrator) executeTool(ctx context.Context, call domain.ToolCall) *domain.ToolResult {
	t, err := o.deps.Tools.Get(call.Name)
	if err != nil {
		o.deps.Logger.Warn("unknown tool requested", "tool", call.Name)
		return &domain.ToolResult{
			ToolCallID: call.ID,
			IsError:    true,
			Content:    fmt.Sprintf("unknown tool %q", call.Name),
		}
	}

	result, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		o.deps.Logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return &domain.ToolResult{
			ToolCallID: call.ID,
			IsError:    true,
			Content:    "the tool failed to run; apologize briefly and answer from general knowledge",
		}
	}
	result.ToolCallID = call.ID
	return result
}

// emitToolEvents publishes tool_start, the tool_data payloads that
// exist and, when provisional text was streamed, a text_clear.
func (o *Orchestrator) emitToolEvents(call domain.ToolCall, result *domain.ToolResult, preToolText bool, send EmitFunc) error {
	label, ok := toolLabels[call.Name]
	if !ok {
		label = "正在使用工具..."
	}
	ev, err := domain.JSONEvent(domain.EventToolStart, domain.ToolStartPayload{Tool: call.Name, Label: label})
	if err != nil {
		return fmt.Errorf("marshal tool_start: %w", err)
	}
	if err := send(ev); err != nil {
		return err
	}

	// Navigation and places go out as separate tool_data events; a
	// payload that is absent never appears as an empty key.
	if result.Navigation != nil {
		ev, err := domain.JSONEvent(domain.EventToolData, domain.ToolDataPayload{NavigationData: result.Navigation})
		if err != nil {
			return fmt.Errorf("marshal tool_data: %w", err)
		}
		if err := send(ev); err != nil {
			return err
		}
	}
	if len(result.Places) > 0 {
		ev, err := domain.JSONEvent(domain.EventToolData, domain.ToolDataPayload{PlacesData: result.Places})
		if err != nil {
			return fmt.Errorf("marshal tool_data: %w", err)
		}
		if err := send(ev); err != nil {
			return err
		}
	}

	if preToolText {
		if err := send(domain.StreamEvent{Kind: domain.EventTextClear, Data: "{}"}); err != nil {
			return err
		}
	}
	return nil
}

// buildMessages prefixes the system prompt and attaches the request's
// image to the last user message.
func (o *Orchestrator) buildMessages(req domain.TurnRequest, city string) []domain.Message {
	prompt := o.deps.SystemPrompt
	if prompt == "" {
		prompt = systemPrompt(city, req.Origin)
	}

	messages := make([]domain.Message, 0, len(req.Messages)+1)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: prompt})
	messages = append(messages, req.Messages...)

	if req.Image != nil {
		for i := len(messages) - 1; i > 0; i-- {
			if messages[i].Role == domain.RoleUser {
				messages[i].Image = req.Image
				break
			}
		}
	}
	return messages
}

// maxToolCallSlots bounds the accumulator against malformed deltas
// claiming absurd positional indices.
const maxToolCallSlots = 16

// streamAccumulator collects incremental deltas into a complete
// message. Tool calls are positional: the first delta for a slot
// carries ID and Name, later deltas append raw bytes to Arguments.
type streamAccumulator struct {
	content   strings.Builder
	toolCalls []domain.ToolCall
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{}
}

func (acc *streamAccumulator) addDelta(delta domain.StreamDelta) {
	acc.content.WriteString(delta.Content)

	for idx, tc := range delta.ToolCalls {
		if idx >= maxToolCallSlots {
			break
		}
		for len(acc.toolCalls) <= idx {
			acc.toolCalls = append(acc.toolCalls, domain.ToolCall{})
		}

		slot := &acc.toolCalls[idx]
		if tc.ID != "" {
			slot.ID = tc.ID
		}
		if tc.Name != "" {
			slot.Name = tc.Name
		}
		if len(tc.Arguments) > 0 {
			slot.Arguments = append(slot.Arguments, tc.Arguments...)
		}
	}
}

func (acc *streamAccumulator) build() domain.Message {
	calls := acc.toolCalls
	// Drop slots that never received a name; they cannot be executed.
	kept := calls[:0]
	for _, c := range calls {
		if c.Name != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	return domain.Message{
		Role:      domain.RoleAssistant,
		Content:   acc.content.String(),
		ToolCalls: kept,
		Timestamp: time.Now(),
	}
}
