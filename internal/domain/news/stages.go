package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

const newsSearchQuery = "Top Artificial Intelligence (AI) technology news India and globally"

const summaryPrompt = `Summarize AI news articles into markdown format. For each item include:
- Date in **YYYY-MM-DD** format in IST timezone
- Concise sentences summary from latest news
- Sort news by date wise (latest first)
- Source URL as link
Use format:
### [Date]
- [Summary](URL)`

// fetchStage resolves the article list, preferring a cached prior fetch for
// a similar request over a fresh call to the search capability.
type fetchStage struct {
	cache     qacache.Cache
	searcher  Searcher
	threshold float64
	limit     int
	max       int
	logger    *slog.Logger
}

func (s fetchStage) Name() string { return "fetch_news" }

func (s fetchStage) Run(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	query, ok := state.LatestText()
	if !ok {
		query = state.UserQuery
	}
	if query == "" {
		query = "latest AI news"
	}

	matches := s.cache.Search(ctx, query, string(pipeline.UseCaseAINews), s.limit, s.threshold)
	if len(matches) > 0 {
		var cached []pipeline.Article
		if err := json.Unmarshal([]byte(matches[0].Answer), &cached); err == nil {
			s.logger.Info("serving cached news fetch", "score", matches[0].Score, "articles", len(cached))
			state.Articles = cached
			state.FromCache = true
			state.CacheHitScore = matches[0].Score
			return state, nil
		}
		s.logger.Warn("could not decode cached news payload, refetching")
	}

	articles, err := s.searcher.SearchNews(ctx, SearchRequest{
		Query:      newsSearchQuery,
		Topic:      "news",
		TimeRange:  timeRangeByFrequency[state.Frequency],
		Days:       daysByFrequency[state.Frequency],
		MaxResults: s.max,
	})
	if err != nil {
		return state, apperrors.Wrap(apperrors.CodeSearch, "news search failed", err)
	}
	s.logger.Info("fetched news articles", "count", len(articles))
	state.Articles = articles

	payload := "No news data available"
	if len(articles) > 0 {
		if encoded, err := json.Marshal(articles); err == nil {
			payload = string(encoded)
		}
	}
	s.cache.Store(ctx, query, payload, string(pipeline.UseCaseAINews), map[string]any{
		"type":       "news_fetch",
		"from_cache": false,
	})

	return state, nil
}

// summarizeStage turns the article list into a markdown digest and caches
// the digest under its own derived key.
type summarizeStage struct {
	cache     qacache.Cache
	generator pipeline.Generator
	logger    *slog.Logger
}

func (s summarizeStage) Name() string { return "summarize_news" }

func (s summarizeStage) Run(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	var builder strings.Builder
	for i, article := range state.Articles {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(&builder, "Content: %s\nURL: %s\nDate: %s", article.Content, article.URL, article.PublishedDate)
	}

	messages := []pipeline.Message{
		pipeline.StructuredMessage("system", summaryPrompt),
		pipeline.StructuredMessage("user", "Articles:\n"+builder.String()),
	}
	summary, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return state, err
	}
	state.Summary = summary

	if summary != "" {
		frequency := state.Frequency
		if frequency == "" {
			frequency = "recent"
		}
		s.cache.Store(ctx, "AI news summary for "+frequency, summary, string(pipeline.UseCaseAINews), map[string]any{
			"type":       "news_summary",
			"from_cache": state.FromCache,
		})
	}
	return state, nil
}

// persistStage writes the digest through the durable output sink. A sink
// failure is logged only; the summary already computed still stands.
type persistStage struct {
	sink   Sink
	logger *slog.Logger
}

func (s persistStage) Name() string { return "save_result" }

func (s persistStage) Run(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	filename := state.Frequency + "_summary.md"
	content := fmt.Sprintf("# %s AI News Summary\n\n%s", capitalize(state.Frequency), state.Summary)

	destination, err := s.sink.Write(ctx, filename, content)
	if err != nil {
		s.logger.Error("digest write failed", "filename", filename, "error", err)
		return state, nil
	}
	s.logger.Info("digest saved", "destination", destination)
	state.SavedFile = destination
	return state, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var (
	_ pipeline.Stage = fetchStage{}
	_ pipeline.Stage = summarizeStage{}
	_ pipeline.Stage = persistStage{}
)
