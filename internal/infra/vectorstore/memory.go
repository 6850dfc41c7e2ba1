package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
)

type memoryEntry struct {
	document   string
	attributes map[string]any
	embedding  []float32
}

// MemoryStore is an in-memory VectorStore used for tests/dev.
type MemoryStore struct {
	embedder qacache.Embedder

	mu          sync.RWMutex
	collections map[string]map[string]memoryEntry
}

// NewMemoryStore constructs a store backed by memory.
func NewMemoryStore(embedder qacache.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string]map[string]memoryEntry),
	}
}

// EnsureCollection implements qacache.VectorStore.
func (s *MemoryStore) EnsureCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]memoryEntry)
	}
	return nil
}

// Upsert implements qacache.VectorStore.
func (s *MemoryStore) Upsert(ctx context.Context, collection, id, document string, attributes map[string]any) error {
	embedding, err := s.embedder.Embed(ctx, document)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.collections[collection]
	if !ok {
		entries = make(map[string]memoryEntry)
		s.collections[collection] = entries
	}
	cloned := make(map[string]any, len(attributes))
	for k, v := range attributes {
		cloned[k] = v
	}
	entries[id] = memoryEntry{
		document:   document,
		attributes: cloned,
		embedding:  append([]float32(nil), embedding...),
	}
	return nil
}

// Query implements qacache.VectorStore.
func (s *MemoryStore) Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]qacache.RawMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	if topK > qacache.MaxTopK {
		topK = qacache.MaxTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.collections[collection]

	matches := make([]qacache.RawMatch, 0, len(entries))
	for _, entry := range entries {
		if !attributesMatch(entry.attributes, filter) {
			continue
		}
		matches = append(matches, qacache.RawMatch{
			Document:   entry.document,
			Attributes: entry.attributes,
			Distance:   cosineDistance(embedding, entry.embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count implements qacache.VectorStore.
func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.collections[collection])), nil
}

// Drop implements qacache.VectorStore.
func (s *MemoryStore) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

func attributesMatch(attributes map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		value, ok := attributes[key]
		if !ok || fmt.Sprint(value) != want {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	length := len(a)
	if len(b) < length {
		length = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < length; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ qacache.VectorStore = (*MemoryStore)(nil)
