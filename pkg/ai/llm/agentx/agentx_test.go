package agentx_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/agentx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx"
)

type scriptedStream struct {
	chunks []llm.Message
	pos    int
}

func (s *scriptedStream) Next() (llm.Message, error) {
	if s.pos >= len(s.chunks) {
		return llm.Message{}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *scriptedStream) Close() error { return nil }

// scriptedProvider replays one scripted stream per ChatStream call
type scriptedProvider struct {
	scripts [][]llm.Message
	calls   int
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	if p.calls >= len(p.scripts) {
		return nil, errors.New("no more scripted responses")
	}
	script := p.scripts[p.calls]
	p.calls++
	return &scriptedStream{chunks: script}, nil
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	stream, err := p.ChatStream(ctx, messages, opts...)
	if err != nil {
		return llm.Response{}, err
	}
	var content strings.Builder
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return llm.Response{}, err
		}
		content.WriteString(chunk.Content)
	}
	return llm.Response{Message: llm.NewAssistantMessage(content.String())}, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (echoTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	return map[string]string{"echo": input.Text}, nil
}

type brokenTool struct{}

func (brokenTool) Name() string        { return "broken" }
func (brokenTool) Description() string { return "always fails" }
func (brokenTool) Parameters() any     { return map[string]any{"type": "object"} }
func (brokenTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return nil, errors.New("backend unavailable")
}

func textChunks(parts ...string) []llm.Message {
	chunks := make([]llm.Message, len(parts))
	for i, p := range parts {
		chunks[i] = llm.Message{Role: llm.RoleAssistant, Content: p}
	}
	return chunks
}

func toolCallChunk(id, name, args string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:   id,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      name,
				Arguments: args,
			},
		}},
	}
}

func collect(t *testing.T, events <-chan agentx.Event) []agentx.Event {
	t.Helper()
	var out []agentx.Event
	for event := range events {
		out = append(out, event)
	}
	return out
}

func TestEvents_TextOnly(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.Message{
		textChunks("hel", "lo ", "world"),
	}}
	agent := agentx.New(llm.NewClient(provider), memoryx.NewInMemoryMemory())

	events := collect(t, agent.Events(context.Background(), []llm.Message{llm.NewUserMessage("hi")}))

	if len(events) != 3 {
		t.Fatalf("expected 3 text events, got %d: %+v", len(events), events)
	}
	var full strings.Builder
	for i, event := range events {
		if event.Type != agentx.EventText {
			t.Fatalf("event %d: expected text, got %s", i, event.Type)
		}
		full.WriteString(event.Content)
	}
	if full.String() != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", full.String())
	}
}

func TestEvents_ToolLoop(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.Message{
		{toolCallChunk("call_1", "echo", `{"text":"ping"}`)},
		textChunks("pong"),
	}}
	tools := toolx.NewToolxClient(echoTool{})
	agent := agentx.New(llm.NewClient(provider), memoryx.NewInMemoryMemory(), agentx.WithTools(tools))

	events := collect(t, agent.Events(context.Background(), []llm.Message{llm.NewUserMessage("ping me")}))

	want := []agentx.EventType{agentx.EventToolCall, agentx.EventToolResult, agentx.EventText}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, events[i].Type)
		}
	}

	call := events[0]
	if call.ToolName != "echo" || call.ToolCallID != "call_1" {
		t.Fatalf("unexpected tool call event: %+v", call)
	}

	result := events[1]
	if result.Failed {
		t.Fatalf("tool result should not be failed: %+v", result)
	}
	if !strings.Contains(result.ToolOutput, `"echo":"ping"`) {
		t.Fatalf("unexpected tool output: %q", result.ToolOutput)
	}
}

func TestEvents_ToolFailureIsNotFatal(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.Message{
		{toolCallChunk("call_1", "broken", `{}`)},
		textChunks("the tool is down"),
	}}
	tools := toolx.NewToolxClient(brokenTool{})
	agent := agentx.New(llm.NewClient(provider), memoryx.NewInMemoryMemory(), agentx.WithTools(tools))

	events := collect(t, agent.Events(context.Background(), []llm.Message{llm.NewUserMessage("try it")}))

	want := []agentx.EventType{agentx.EventToolCall, agentx.EventToolResult, agentx.EventText}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}

	result := events[1]
	if !result.Failed {
		t.Fatalf("expected failed tool result, got %+v", result)
	}
	if !strings.Contains(result.ToolOutput, "error") {
		t.Fatalf("failed result should carry an error payload, got %q", result.ToolOutput)
	}

	if events[2].Content != "the tool is down" {
		t.Fatalf("loop should continue after tool failure, got %+v", events[2])
	}
}

func TestEvents_IterationLimit(t *testing.T) {
	// Provider that always asks for another tool call
	scripts := make([][]llm.Message, 0, 8)
	for i := 0; i < 8; i++ {
		scripts = append(scripts, []llm.Message{toolCallChunk("call", "echo", `{"text":"again"}`)})
	}
	provider := &scriptedProvider{scripts: scripts}
	tools := toolx.NewToolxClient(echoTool{})
	agent := agentx.New(llm.NewClient(provider), memoryx.NewInMemoryMemory(),
		agentx.WithTools(tools),
		agentx.WithMaxTotalIterations(2),
	)

	events := collect(t, agent.Events(context.Background(), []llm.Message{llm.NewUserMessage("loop")}))

	last := events[len(events)-1]
	if last.Type != agentx.EventError {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
	if !strings.Contains(last.Err.Error(), "maximum iterations") {
		t.Fatalf("unexpected error: %v", last.Err)
	}
}

func TestRun_ConcatenatesDeltas(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.Message{
		textChunks("a ", "short ", "poem"),
	}}
	agent := agentx.New(llm.NewClient(provider), memoryx.NewInMemoryMemory())

	reply, err := agent.Run(context.Background(), []llm.Message{llm.NewUserMessage("write")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "a short poem" {
		t.Fatalf("expected %q, got %q", "a short poem", reply)
	}
}
