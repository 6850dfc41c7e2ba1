package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
)

// WebAugmentedGenerator runs a web search on the latest user message and
// feeds the results to the wrapped generator as grounding context.
type WebAugmentedGenerator struct {
	inner      pipeline.Generator
	searcher   WebSearcher
	maxResults int
	logger     *slog.Logger
}

// NewWebAugmentedGenerator wraps a generator with search grounding.
func NewWebAugmentedGenerator(inner pipeline.Generator, searcher WebSearcher, maxResults int, logger *slog.Logger) *WebAugmentedGenerator {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebAugmentedGenerator{
		inner:      inner,
		searcher:   searcher,
		maxResults: maxResults,
		logger:     logger.With("component", "chat.webgenerator"),
	}
}

func (g *WebAugmentedGenerator) Model() string { return g.inner.Model() }

// Generate searches the web for the latest user message, then asks the
// inner generator to answer with the results prepended as context. Search
// failure degrades to a plain generation, it never fails the request.
func (g *WebAugmentedGenerator) Generate(ctx context.Context, messages []pipeline.Message) (string, error) {
	query := latestContent(messages)
	if query == "" {
		return g.inner.Generate(ctx, messages)
	}

	results, err := g.searcher.Search(ctx, query, g.maxResults)
	if err != nil {
		g.logger.Warn("web search failed, answering without context", "error", err)
		return g.inner.Generate(ctx, messages)
	}
	if len(results) == 0 {
		return g.inner.Generate(ctx, messages)
	}

	var builder strings.Builder
	builder.WriteString("Use the following web search results when they are relevant to the question:\n")
	for i, result := range results {
		fmt.Fprintf(&builder, "%d. %s (%s)\n", i+1, result.Content, result.URL)
	}

	augmented := make([]pipeline.Message, 0, len(messages)+1)
	augmented = append(augmented, pipeline.StructuredMessage("system", builder.String()))
	augmented = append(augmented, messages...)
	return g.inner.Generate(ctx, augmented)
}

func latestContent(messages []pipeline.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content()
}

var _ pipeline.Generator = (*WebAugmentedGenerator)(nil)
