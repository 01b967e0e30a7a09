package agentx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

// Agent runs the LLM loop with memory and tool capabilities
type Agent struct {
	client             *llm.Client
	tools              *toolx.ToolxClient
	memory             memoryx.Memory
	options            []llm.Option
	maxAutoIterations  int // Max iterations with "auto" tool choice
	maxTotalIterations int // Hard limit to prevent infinite loops
}

// AgentOption configures an Agent
type AgentOption func(*Agent)

// WithOptions adds LLM options to the agent
func WithOptions(options ...llm.Option) AgentOption {
	return func(a *Agent) {
		a.options = append(a.options, options...)
	}
}

// WithTools adds tools to the agent
func WithTools(tools *toolx.ToolxClient) AgentOption {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithMaxAutoIterations sets the maximum number of "auto" tool choice iterations
func WithMaxAutoIterations(max int) AgentOption {
	return func(a *Agent) {
		a.maxAutoIterations = max
	}
}

// WithMaxTotalIterations sets the hard limit for total iterations
func WithMaxTotalIterations(max int) AgentOption {
	return func(a *Agent) {
		a.maxTotalIterations = max
	}
}

// New creates a new agent
func New(client llm.Client, memory memoryx.Memory, opts ...AgentOption) *Agent {
	agent := &Agent{
		client:             &client,
		memory:             memory,
		maxAutoIterations:  3,
		maxTotalIterations: 10,
	}

	for _, opt := range opts {
		opt(agent)
	}

	return agent
}

// Events runs the full agent loop for the given input messages and returns a
// lazy event sequence. The channel is closed when the loop finishes, fails,
// or the context is cancelled. Tool execution failures surface as
// EventToolResult events with Failed set, never as loop aborts.
func (a *Agent) Events(ctx context.Context, input []llm.Message) <-chan Event {
	ch := make(chan Event)

	go func() {
		defer close(ch)

		for _, msg := range input {
			if err := a.memory.Add(msg); err != nil {
				a.emit(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("failed to add input message: %w", err)})
				return
			}
		}

		for iteration := 0; iteration < a.maxTotalIterations; iteration++ {
			messages, err := a.memory.Messages()
			if err != nil {
				a.emit(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("failed to retrieve messages: %w", err)})
				return
			}

			stream, err := a.client.ChatStream(ctx, messages, a.buildOptions(iteration)...)
			if err != nil {
				a.emit(ctx, ch, Event{Type: EventError, Err: err})
				return
			}

			assistantMsg, err := a.consumeStream(ctx, stream, ch)
			stream.Close()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					a.emit(ctx, ch, Event{Type: EventError, Err: err})
				}
				return
			}

			// Persist the full assistant message (text + any tool_calls)
			if err := a.memory.Add(assistantMsg); err != nil {
				a.emit(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("failed to add assistant message: %w", err)})
				return
			}

			if len(assistantMsg.ToolCalls) == 0 || a.tools == nil {
				return
			}

			if !a.executeAndEmitTools(ctx, assistantMsg.ToolCalls, ch) {
				return
			}

			// Loop: call the LLM again with tool results in memory
		}

		a.emit(ctx, ch, Event{
			Type: EventError,
			Err:  fmt.Errorf("maximum iterations (%d) exceeded", a.maxTotalIterations),
		})
	}()

	return ch
}

// Run processes the input messages and returns the final text response,
// draining the event sequence without exposing it
func (a *Agent) Run(ctx context.Context, input []llm.Message) (string, error) {
	var (
		reply   strings.Builder
		loopErr error
	)

	for event := range a.Events(ctx, input) {
		switch event.Type {
		case EventText:
			reply.WriteString(event.Content)
		case EventError:
			loopErr = event.Err
		}
	}

	if loopErr != nil {
		return "", loopErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply.String(), nil
}

// ClearMemory resets the conversation but keeps the system prompt
func (a *Agent) ClearMemory() error {
	return a.memory.Clear()
}

// AddMessage adds a message to memory
func (a *Agent) AddMessage(message llm.Message) error {
	return a.memory.Add(message)
}

// Messages returns all messages in memory
func (a *Agent) Messages() ([]llm.Message, error) {
	return a.memory.Messages()
}

// consumeStream drains a Stream, forwards text chunks as EventText events,
// and returns the fully-assembled assistant message
func (a *Agent) consumeStream(ctx context.Context, stream llm.Stream, ch chan<- Event) (llm.Message, error) {
	var (
		contentBuf strings.Builder
		toolCalls  []llm.ToolCall // final snapshot from the stream's accumulator
	)

	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return llm.Message{}, err
		}

		if chunk.Content != "" {
			contentBuf.WriteString(chunk.Content)
			if !a.emit(ctx, ch, Event{Type: EventText, Content: chunk.Content}) {
				return llm.Message{}, context.Canceled
			}
		}

		if len(chunk.ToolCalls) > 0 {
			toolCalls = chunk.ToolCalls
		}
	}

	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   contentBuf.String(),
		ToolCalls: toolCalls,
	}, nil
}

// executeAndEmitTools runs every tool call sequentially, emits before/after
// events, and adds each result to memory so the next LLM call has full
// context. Returns false when the context is cancelled.
func (a *Agent) executeAndEmitTools(ctx context.Context, toolCalls []llm.ToolCall, ch chan<- Event) bool {
	for _, tc := range toolCalls {
		if !a.emit(ctx, ch, Event{
			Type:       EventToolCall,
			ToolCallID: tc.ID,
			ToolName:   tc.Function.Name,
			ToolInput:  tc.Function.Arguments,
		}) {
			return false
		}

		toolMsg, err := a.tools.Call(ctx, tc)
		failed := err != nil
		if failed {
			// Feed the failure back to the model instead of aborting
			logx.WithError(err).WithField("tool", tc.Function.Name).Warn("tool execution failed")
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			toolMsg = llm.NewToolMessage(tc.ID, string(payload))
		}

		if !a.emit(ctx, ch, Event{
			Type:       EventToolResult,
			ToolCallID: tc.ID,
			ToolName:   tc.Function.Name,
			ToolOutput: toolMsg.Content,
			Failed:     failed,
		}) {
			return false
		}

		if err := a.memory.Add(toolMsg); err != nil {
			a.emit(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("failed to add tool result: %w", err)})
			return false
		}
	}
	return true
}

// buildOptions constructs the LLM option slice for a given iteration.
// After maxAutoIterations it forces tool_choice=none to break the loop.
func (a *Agent) buildOptions(iteration int) []llm.Option {
	options := append([]llm.Option(nil), a.options...) // copy

	if a.tools == nil {
		return options
	}

	toolList := a.tools.GetTools()
	if len(toolList) == 0 {
		return options
	}

	options = append(options, llm.WithTools(toolList))

	if iteration >= a.maxAutoIterations {
		options = append(options, llm.WithToolChoice("none"))
	} else {
		options = append(options, llm.WithToolChoice("auto"))
	}

	return options
}

// emit sends an event unless the context is cancelled
func (a *Agent) emit(ctx context.Context, ch chan<- Event, event Event) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
