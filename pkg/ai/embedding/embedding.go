package embedding

import "context"

// Embedder converts text into vector representations
type Embedder interface {
	// EmbedDocuments embeds a batch of texts, one vector per input, in order
	EmbedDocuments(ctx context.Context, texts []string, opts ...Option) ([][]float32, error)

	// EmbedQuery embeds a single query string
	EmbedQuery(ctx context.Context, text string, opts ...Option) ([]float32, error)
}

// Options holds embedding request parameters
type Options struct {
	Model      string
	Dimensions *int
	User       string
}

// Option configures an embedding request
type Option func(*Options)

// NewOptions applies opts over the zero options
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithModel selects the embedding model
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithDimensions requests reduced-dimension vectors
func WithDimensions(dims int) Option {
	return func(o *Options) {
		o.Dimensions = &dims
	}
}

// WithUser tags the request with an end-user identifier
func WithUser(user string) Option {
	return func(o *Options) {
		o.User = user
	}
}
