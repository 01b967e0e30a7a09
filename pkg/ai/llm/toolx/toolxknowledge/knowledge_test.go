package toolxknowledge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore/providers/vstmemory"
)

// keywordEmbedder maps known phrases to fixed unit vectors
type keywordEmbedder struct {
	vectors   map[string][]float32
	lastModel string
}

func (e *keywordEmbedder) EmbedDocuments(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(ctx context.Context, text string, opts ...embedding.Option) ([]float32, error) {
	e.lastModel = embedding.NewOptions(opts...).Model
	return e.embed(text), nil
}

func (e *keywordEmbedder) embed(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{0, 0, 1}
}

func TestCall_ReturnsRankedSnippets(t *testing.T) {
	embedder := &keywordEmbedder{vectors: map[string][]float32{
		"deployment steps": {1, 0, 0},
		"doc about deploys": {0.9, 0.1, 0},
		"doc about billing": {0, 1, 0},
	}}

	store := vstmemory.NewMemoryVectorStore(3)
	ctx := context.Background()

	err := store.Upsert(ctx, []vstore.Vector{
		{ID: "a", Values: embedder.embed("doc about deploys"), Metadata: map[string]any{"text": "run make deploy", "source": "runbook.md"}},
		{ID: "b", Values: embedder.embed("doc about billing"), Metadata: map[string]any{"text": "invoices are monthly", "source": "billing.md"}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tool := NewKnowledgeTool(embedder, store, WithTopK(2))

	result, err := tool.Call(ctx, json.RawMessage(`{"query":"deployment steps","top_k":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	snippets, ok := payload["results"].([]Snippet)
	if !ok {
		t.Fatalf("unexpected results type %T", payload["results"])
	}
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	if snippets[0].Text != "run make deploy" || snippets[0].Source != "runbook.md" {
		t.Fatalf("wrong snippet retrieved: %+v", snippets[0])
	}
}

func TestCall_ForwardsEmbeddingOptions(t *testing.T) {
	embedder := &keywordEmbedder{}
	tool := NewKnowledgeTool(embedder, vstmemory.NewMemoryVectorStore(3),
		WithEmbeddingOptions(embedding.WithModel("text-embedding-3-small")))

	if _, err := tool.Call(context.Background(), json.RawMessage(`{"query":"anything"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.lastModel != "text-embedding-3-small" {
		t.Fatalf("embedding model not forwarded: %q", embedder.lastModel)
	}
}

func TestCall_EmptyQueryIsErrorShaped(t *testing.T) {
	tool := NewKnowledgeTool(&keywordEmbedder{}, vstmemory.NewMemoryVectorStore(3))

	result, err := tool.Call(context.Background(), json.RawMessage(`{"query":""}`))
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if er, ok := result.(errorResult); !ok || er.Error == "" {
		t.Fatalf("expected error-shaped result, got %#v", result)
	}
}
