package llm

import "context"

// Response is a complete (non-streaming) chat result
type Response struct {
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
}

// Stream yields incremental chat deltas. Next returns io.EOF when the
// stream is exhausted. Message.Content carries the text delta for the
// current tick; Message.ToolCalls carries the accumulated tool-call
// snapshot so far (providers merge argument fragments internally).
type Stream interface {
	Next() (Message, error)
	Close() error
}

// Provider is implemented by each model backend
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error)
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error)
}

// Client wraps a Provider with default options applied to every request
type Client struct {
	provider Provider
	defaults []Option
}

// NewClient creates a client over the given provider
func NewClient(provider Provider, defaults ...Option) Client {
	return Client{provider: provider, defaults: defaults}
}

// Chat sends a complete chat request
func (c *Client) Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error) {
	return c.provider.Chat(ctx, messages, c.merge(opts)...)
}

// ChatStream opens a streaming chat request
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error) {
	return c.provider.ChatStream(ctx, messages, c.merge(opts)...)
}

func (c *Client) merge(opts []Option) []Option {
	if len(c.defaults) == 0 {
		return opts
	}
	merged := make([]Option, 0, len(c.defaults)+len(opts))
	merged = append(merged, c.defaults...)
	merged = append(merged, opts...)
	return merged
}
