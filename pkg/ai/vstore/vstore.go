package vstore

import "context"

// VectorStorer is the vector store contract all providers implement
type VectorStorer interface {
	// Upsert inserts or updates vectors
	Upsert(ctx context.Context, vectors []Vector, opts ...Option) error

	// Query performs similarity search
	Query(ctx context.Context, vector []float32, opts ...Option) (*QueryResult, error)

	// Delete removes vectors by IDs
	Delete(ctx context.Context, ids []string, opts ...Option) error

	// Fetch retrieves vectors by IDs
	Fetch(ctx context.Context, ids []string, opts ...Option) ([]Vector, error)
}

// Vector represents a dense vector with metadata
type Vector struct {
	// ID is the unique identifier
	ID string

	// Values is the dense vector
	Values []float32

	// Metadata is arbitrary key-value data
	Metadata map[string]any
}

// QueryResult contains search results
type QueryResult struct {
	// Matches is the list of similar vectors, best first
	Matches []Match

	// Namespace where results came from
	Namespace string
}

// Match represents a single search result
type Match struct {
	// ID of the matched vector
	ID string

	// Score (similarity)
	Score float32

	// Values of the vector (if requested)
	Values []float32

	// Metadata associated with the vector
	Metadata map[string]any
}
