package vstore

// Options for vector store operations
type Options struct {
	// Namespace/partition
	Namespace string

	// TopK results to return
	TopK int

	// IncludeValues in search results
	IncludeValues bool

	// IncludeMetadata in search results
	IncludeMetadata bool

	// MinScore threshold for results
	MinScore float32
}

type Option func(*Options)

func WithNamespace(namespace string) Option {
	return func(o *Options) {
		o.Namespace = namespace
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithIncludeValues(include bool) Option {
	return func(o *Options) {
		o.IncludeValues = include
	}
}

func WithIncludeMetadata(include bool) Option {
	return func(o *Options) {
		o.IncludeMetadata = include
	}
}

func WithMinScore(score float32) Option {
	return func(o *Options) {
		o.MinScore = score
	}
}

// DefaultOptions returns default options
func DefaultOptions() *Options {
	return &Options{
		TopK:            10,
		IncludeMetadata: true,
	}
}

// ApplyOptions applies options over the defaults
func ApplyOptions(opts ...Option) *Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
