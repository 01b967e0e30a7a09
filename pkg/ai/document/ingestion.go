package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
	"github.com/relay-labs/chatrelay/pkg/asyncx"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
	defaultBatchSize    = 64
	defaultWorkers      = 4
)

// Ingestor turns raw documents into stored vectors: split into chunks,
// embed in batches, upsert into the vector store. The chunk text rides
// along in metadata so retrieval can return it without a second lookup.
type Ingestor struct {
	splitter  Splitter
	embedder  embedding.Embedder
	store     vstore.VectorStorer
	batchSize int
	workers   int
	embedOpts []embedding.Option
}

// IngestorOption configures an Ingestor
type IngestorOption func(*Ingestor)

// WithSplitter overrides the default recursive splitter
func WithSplitter(splitter Splitter) IngestorOption {
	return func(ing *Ingestor) {
		ing.splitter = splitter
	}
}

// WithBatchSize sets how many chunks are embedded and upserted per call
func WithBatchSize(n int) IngestorOption {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are embedded concurrently
func WithWorkers(n int) IngestorOption {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.workers = n
		}
	}
}

// WithEmbeddingOptions sets options forwarded to every embedding call,
// such as the model name
func WithEmbeddingOptions(opts ...embedding.Option) IngestorOption {
	return func(ing *Ingestor) {
		ing.embedOpts = opts
	}
}

// NewIngestor creates an ingestor
func NewIngestor(embedder embedding.Embedder, store vstore.VectorStorer, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		splitter:  NewRecursiveTextSplitter(defaultChunkSize, defaultChunkOverlap),
		embedder:  embedder,
		store:     store,
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestionResult reports what one ingestion run stored
type IngestionResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// Ingest splits, embeds and stores one document. A missing ID gets a
// generated one; the returned result carries the ID chunks are filed under.
func (ing *Ingestor) Ingest(ctx context.Context, doc *Document) (*IngestionResult, error) {
	if doc == nil || doc.Content == "" {
		return nil, fmt.Errorf("document has no content")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	chunks := ing.splitter.Split(doc)
	if len(chunks) == 0 {
		return &IngestionResult{DocumentID: doc.ID}, nil
	}

	var batches [][]*Document
	for start := 0; start < len(chunks); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}

	// Chunk IDs are deterministic, so batches can land in any order
	if _, err := asyncx.Pool(ctx, ing.workers, batches, ing.ingestBatch); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"document_id": doc.ID,
		"chunks":      len(chunks),
	}).Info("document ingested")

	return &IngestionResult{
		DocumentID: doc.ID,
		ChunkCount: len(chunks),
	}, nil
}

func (ing *Ingestor) ingestBatch(ctx context.Context, chunks []*Document) (int, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := ing.embedder.EmbedDocuments(ctx, texts, ing.embedOpts...)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	vectors := make([]vstore.Vector, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]any, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		metadata[MetadataText] = chunk.Content

		vectors[i] = vstore.Vector{
			ID:       chunk.ID,
			Values:   embeddings[i],
			Metadata: metadata,
		}
	}

	if err := ing.store.Upsert(ctx, vectors); err != nil {
		return 0, fmt.Errorf("failed to store vectors: %w", err)
	}
	return len(vectors), nil
}

// Delete removes every stored chunk of a document
func (ing *Ingestor) Delete(ctx context.Context, documentID string, chunkCount int) error {
	ids := make([]string, chunkCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s_chunk_%d", documentID, i)
	}
	return ing.store.Delete(ctx, ids)
}
