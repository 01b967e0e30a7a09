package vstmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
)

// MemoryVectorStore is an in-memory cosine-similarity vector store.
// It backs the knowledge tool in tests and single-instance deployments.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	vectors    map[string]*storedVector
	namespaces map[string][]string
	dimension  int
}

type storedVector struct {
	id        string
	values    []float32
	metadata  map[string]any
	namespace string
}

// NewMemoryVectorStore creates an in-memory store for vectors of the given dimension
func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{
		vectors:    make(map[string]*storedVector),
		namespaces: make(map[string][]string),
		dimension:  dimension,
	}
}

// Upsert inserts or updates vectors
func (m *MemoryVectorStore) Upsert(ctx context.Context, vectors []vstore.Vector, opts ...vstore.Option) error {
	if len(vectors) == 0 {
		return nil
	}

	options := vstore.ApplyOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range vectors {
		if len(v.Values) != m.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", m.dimension, len(v.Values))
		}

		namespace := options.Namespace

		if existing, exists := m.vectors[v.ID]; exists && existing.namespace != namespace {
			m.removeFromNamespace(existing.namespace, v.ID)
		}

		stored := &storedVector{
			id:        v.ID,
			values:    make([]float32, len(v.Values)),
			metadata:  make(map[string]any),
			namespace: namespace,
		}
		copy(stored.values, v.Values)
		for k, val := range v.Metadata {
			stored.metadata[k] = val
		}

		m.vectors[v.ID] = stored
		m.addToNamespace(namespace, v.ID)
	}

	return nil
}

// Query performs cosine similarity search
func (m *MemoryVectorStore) Query(ctx context.Context, vector []float32, opts ...vstore.Option) (*vstore.QueryResult, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", m.dimension, len(vector))
	}

	options := vstore.ApplyOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidateIDs []string
	if options.Namespace != "" {
		candidateIDs = m.namespaces[options.Namespace]
	} else {
		candidateIDs = make([]string, 0, len(m.vectors))
		for id := range m.vectors {
			candidateIDs = append(candidateIDs, id)
		}
	}

	type scoredVector struct {
		id    string
		score float32
	}

	scores := make([]scoredVector, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		stored := m.vectors[id]
		if stored == nil {
			continue
		}
		score := cosineSimilarity(vector, stored.values)
		if score >= options.MinScore {
			scores = append(scores, scoredVector{id: id, score: score})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	topK := options.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK > len(scores) {
		topK = len(scores)
	}

	matches := make([]vstore.Match, topK)
	for i := 0; i < topK; i++ {
		stored := m.vectors[scores[i].id]
		match := vstore.Match{
			ID:       stored.id,
			Score:    scores[i].score,
			Metadata: make(map[string]any),
		}
		if options.IncludeValues {
			match.Values = make([]float32, len(stored.values))
			copy(match.Values, stored.values)
		}
		if options.IncludeMetadata {
			for k, v := range stored.metadata {
				match.Metadata[k] = v
			}
		}
		matches[i] = match
	}

	return &vstore.QueryResult{
		Matches:   matches,
		Namespace: options.Namespace,
	}, nil
}

// Delete removes vectors by IDs
func (m *MemoryVectorStore) Delete(ctx context.Context, ids []string, opts ...vstore.Option) error {
	if len(ids) == 0 {
		return nil
	}

	options := vstore.ApplyOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		stored, exists := m.vectors[id]
		if !exists {
			continue
		}
		if options.Namespace != "" && stored.namespace != options.Namespace {
			continue
		}
		m.removeFromNamespace(stored.namespace, id)
		delete(m.vectors, id)
	}

	return nil
}

// Fetch retrieves vectors by IDs
func (m *MemoryVectorStore) Fetch(ctx context.Context, ids []string, opts ...vstore.Option) ([]vstore.Vector, error) {
	if len(ids) == 0 {
		return []vstore.Vector{}, nil
	}

	options := vstore.ApplyOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	vectors := make([]vstore.Vector, 0, len(ids))
	for _, id := range ids {
		stored, exists := m.vectors[id]
		if !exists {
			continue
		}
		if options.Namespace != "" && stored.namespace != options.Namespace {
			continue
		}

		v := vstore.Vector{
			ID:       stored.id,
			Values:   make([]float32, len(stored.values)),
			Metadata: make(map[string]any),
		}
		copy(v.Values, stored.values)
		for k, val := range stored.metadata {
			v.Metadata[k] = val
		}
		vectors = append(vectors, v)
	}

	return vectors, nil
}

// Clear removes all vectors
func (m *MemoryVectorStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vectors = make(map[string]*storedVector)
	m.namespaces = make(map[string][]string)
}

// Count returns the total number of vectors
func (m *MemoryVectorStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

func (m *MemoryVectorStore) addToNamespace(namespace, id string) {
	ids := m.namespaces[namespace]
	for _, existingID := range ids {
		if existingID == id {
			return
		}
	}
	m.namespaces[namespace] = append(ids, id)
}

func (m *MemoryVectorStore) removeFromNamespace(namespace, id string) {
	ids := m.namespaces[namespace]
	newIDs := make([]string, 0, len(ids))
	for _, existingID := range ids {
		if existingID != id {
			newIDs = append(newIDs, existingID)
		}
	}
	m.namespaces[namespace] = newIDs
}

func cosineSimilarity(v1, v2 []float32) float32 {
	if len(v1) != len(v2) {
		return 0
	}

	var dot, normA, normB float32
	for i := range v1 {
		dot += v1[i] * v2[i]
		normA += v1[i] * v1[i]
		normB += v2[i] * v2[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
