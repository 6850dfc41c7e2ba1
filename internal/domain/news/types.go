package news

import (
	"context"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
)

// SearchRequest parameterizes one external news search.
type SearchRequest struct {
	Query      string
	Topic      string
	TimeRange  string
	Days       int
	MaxResults int
}

// Searcher is the external news search capability.
type Searcher interface {
	SearchNews(ctx context.Context, req SearchRequest) ([]pipeline.Article, error)
}

// Sink is the durable output destination for finished digests. Write
// returns the destination the content landed at.
type Sink interface {
	Write(ctx context.Context, filename, content string) (string, error)
}

// Config holds runtime knobs for the news pipeline.
type Config struct {
	Provider            string
	Model               string
	SimilarityThreshold float64
	SearchLimit         int
	MaxArticles         int
	EmbeddingModel      string
}

// Request asks for a digest covering the given timeframe.
type Request struct {
	Timeframe      string `json:"timeframe"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Result is returned to the HTTP transport.
type Result struct {
	Summary   string `json:"summary"`
	SavedFile string `json:"saved_file,omitempty"`
	FromCache bool   `json:"from_cache"`
}
