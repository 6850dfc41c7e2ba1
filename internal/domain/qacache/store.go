package qacache

import "context"

// MaxTopK bounds the number of raw matches a single query may request.
const MaxTopK = 10

// RawMatch is one backend result before distance-to-score normalization.
type RawMatch struct {
	Document   string
	Attributes map[string]any
	Distance   float64
}

// VectorStore is the embedding-indexed document store behind the cache.
// Implementations own persistence, collection lifecycle and embedding
// computation; collection creation must be idempotent and race-safe.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection, id, document string, attributes map[string]any) error
	Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]RawMatch, error)
	Count(ctx context.Context, collection string) (int64, error)
	Drop(ctx context.Context, collection string) error
}

// Embedder converts text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
