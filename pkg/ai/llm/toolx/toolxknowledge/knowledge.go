package toolxknowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

const defaultTopK = 4

// KnowledgeTool retrieves relevant snippets from the vector store. It is
// the RAG entry point: uploaded documents become searchable through it.
type KnowledgeTool struct {
	embedder  embedding.Embedder
	store     vstore.VectorStorer
	topK      int
	embedOpts []embedding.Option
}

// Option configures a KnowledgeTool
type Option func(*KnowledgeTool)

// WithTopK sets how many snippets a search returns by default
func WithTopK(k int) Option {
	return func(t *KnowledgeTool) {
		t.topK = k
	}
}

// WithEmbeddingOptions sets options forwarded to every query embedding,
// such as the model name. It must match what indexed the documents.
func WithEmbeddingOptions(opts ...embedding.Option) Option {
	return func(t *KnowledgeTool) {
		t.embedOpts = opts
	}
}

// NewKnowledgeTool creates the retrieval tool
func NewKnowledgeTool(embedder embedding.Embedder, store vstore.VectorStorer, opts ...Option) *KnowledgeTool {
	tool := &KnowledgeTool{
		embedder: embedder,
		store:    store,
		topK:     defaultTopK,
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

// Name implements toolx.Tool
func (t *KnowledgeTool) Name() string { return "knowledge_search" }

// Description implements toolx.Tool
func (t *KnowledgeTool) Description() string {
	return "Search the uploaded knowledge base for passages relevant to a question. " +
		"Use it when the user asks about previously uploaded documents."
}

// Parameters implements toolx.Tool
func (t *KnowledgeTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Question or keywords to look up",
			},
			"top_k": map[string]any{
				"type":        "integer",
				"description": "How many passages to return",
				"minimum":     1,
				"maximum":     20,
			},
		},
		"required": []string{"query"},
	}
}

type searchArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type errorResult struct {
	Error string `json:"error"`
}

// Snippet is one retrieved passage
type Snippet struct {
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
	Score  float32 `json:"score"`
}

// Call implements toolx.Tool
func (t *KnowledgeTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var input searchArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if input.Query == "" {
		return errorResult{Error: "query is required"}, nil
	}

	topK := input.TopK
	if topK < 1 || topK > 20 {
		topK = t.topK
	}

	vector, err := t.embedder.EmbedQuery(ctx, input.Query, t.embedOpts...)
	if err != nil {
		logx.WithError(err).Error("knowledge search: embedding failed")
		return errorResult{Error: fmt.Sprintf("embedding failed: %v", err)}, nil
	}

	result, err := t.store.Query(ctx, vector, vstore.WithTopK(topK))
	if err != nil {
		logx.WithError(err).Error("knowledge search: store query failed")
		return errorResult{Error: fmt.Sprintf("vector search failed: %v", err)}, nil
	}

	snippets := make([]Snippet, 0, len(result.Matches))
	for _, match := range result.Matches {
		snippet := Snippet{Score: match.Score}
		if text, ok := match.Metadata["text"].(string); ok {
			snippet.Text = text
		}
		if source, ok := match.Metadata["source"].(string); ok {
			snippet.Source = source
		}
		snippets = append(snippets, snippet)
	}

	return map[string]any{
		"query":   input.Query,
		"results": snippets,
	}, nil
}
