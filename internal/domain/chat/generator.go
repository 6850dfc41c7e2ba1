package chat

import (
	"context"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
)

// WebSearcher is the search capability backing the tool-augmented chatbot.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]pipeline.Article, error)
}
