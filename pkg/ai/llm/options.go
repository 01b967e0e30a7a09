package llm

// ChatOptions holds the per-request chat parameters
type ChatOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Stop        []string
	Tools       []Tool
	ToolChoice  string
	User        string
}

// Option configures a chat request
type Option func(*ChatOptions)

// NewChatOptions applies opts over the zero options
func NewChatOptions(opts ...Option) *ChatOptions {
	options := &ChatOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithModel selects the model to use
func WithModel(model string) Option {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) Option {
	return func(o *ChatOptions) {
		o.Temperature = &temperature
	}
}

// WithMaxTokens caps the completion length
func WithMaxTokens(maxTokens int) Option {
	return func(o *ChatOptions) {
		o.MaxTokens = &maxTokens
	}
}

// WithTopP sets nucleus sampling
func WithTopP(topP float64) Option {
	return func(o *ChatOptions) {
		o.TopP = &topP
	}
}

// WithStop sets stop sequences
func WithStop(stop ...string) Option {
	return func(o *ChatOptions) {
		o.Stop = stop
	}
}

// WithTools exposes tools to the model
func WithTools(tools []Tool) Option {
	return func(o *ChatOptions) {
		o.Tools = tools
	}
}

// WithToolChoice controls tool selection ("auto", "none", or a tool name)
func WithToolChoice(choice string) Option {
	return func(o *ChatOptions) {
		o.ToolChoice = choice
	}
}

// WithUser tags the request with an end-user identifier
func WithUser(user string) Option {
	return func(o *ChatOptions) {
		o.User = user
	}
}
