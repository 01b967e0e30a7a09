package toolx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relay-labs/chatrelay/pkg/ai/llm"
)

// Tool is a callable capability the agent can expose to the model
type Tool interface {
	// Name is the unique tool identifier used in tool_calls
	Name() string

	// Description tells the model when to use the tool
	Description() string

	// Parameters returns the JSON Schema for the tool's arguments
	Parameters() any

	// Call executes the tool with the raw JSON arguments from the model.
	// Implementations should return recoverable failures inside the result
	// payload (an error-shaped value) and reserve the error return for
	// conditions the agent loop cannot feed back to the model.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolxClient is a registry of tools with dispatch by name
type ToolxClient struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolxClient creates an empty registry
func NewToolxClient(tools ...Tool) *ToolxClient {
	c := &ToolxClient{tools: make(map[string]Tool)}
	for _, t := range tools {
		c.Register(t)
	}
	return c
}

// Register adds a tool, replacing any previous tool with the same name
func (c *ToolxClient) Register(tool Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tools[tool.Name()]; !exists {
		c.order = append(c.order, tool.Name())
	}
	c.tools[tool.Name()] = tool
}

// Get returns the tool registered under name
func (c *ToolxClient) Get(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

// GetTools returns the registered tools in LLM-compatible format,
// in registration order
func (c *ToolxClient) GetTools() []llm.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]llm.Tool, 0, len(c.order))
	for _, name := range c.order {
		t := c.tools[name]
		tools = append(tools, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return tools
}

// Call dispatches a model tool call to the matching tool and wraps the
// result as a tool message ready to feed back to the model
func (c *ToolxClient) Call(ctx context.Context, tc llm.ToolCall) (llm.Message, error) {
	tool, ok := c.Get(tc.Function.Name)
	if !ok {
		return llm.Message{}, fmt.Errorf("unknown tool %q", tc.Function.Name)
	}

	args := json.RawMessage(tc.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		return llm.Message{}, fmt.Errorf("tool %q: %w", tc.Function.Name, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return llm.Message{}, fmt.Errorf("tool %q: marshal result: %w", tc.Function.Name, err)
	}

	return llm.NewToolMessage(tc.ID, string(payload)), nil
}
