package unit

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	"github.com/yanqian/ai-chatbot/internal/infra/statsstore"
	"github.com/yanqian/ai-chatbot/internal/infra/vectorstore"
)

// textEmbedder maps distinct texts onto orthogonal axes so similarity is
// exactly 1 for repeats and 0 otherwise.
type textEmbedder struct {
	axes map[string]int
}

func (e *textEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.axes == nil {
		e.axes = make(map[string]int)
	}
	axis, ok := e.axes[text]
	if !ok {
		axis = len(e.axes)
		e.axes[text] = axis
	}
	vector := make([]float32, 16)
	vector[axis%16] = 1
	return vector, nil
}

type countingGenerator struct {
	answer string
	calls  int
}

func (g *countingGenerator) Generate(context.Context, []pipeline.Message) (string, error) {
	g.calls++
	return g.answer, nil
}

func (g *countingGenerator) Model() string { return "test-model" }

type singletonFactory struct {
	generator pipeline.Generator
}

func (f singletonFactory) Generator(string, string) (pipeline.Generator, error) {
	return f.generator, nil
}

type noSearch struct{}

func (noSearch) Search(context.Context, string, int) ([]pipeline.Article, error) {
	return nil, nil
}

func TestChatCachesAnswerAcrossRequests(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := vectorstore.NewMemoryStore(&textEmbedder{})
	cache := qacache.NewCache(qacache.Config{
		Collection:     "qa_collection",
		EmbeddingModel: "stub",
	}, store, logger)

	generator := &countingGenerator{answer: "Go is a compiled language from Google."}
	usage := statsstore.NewMemoryStore()
	svc := chat.NewService(chat.Config{
		SimilarityThreshold: 0.8,
		SearchLimit:         3,
		WebSearchResults:    3,
	}, cache, singletonFactory{generator}, noSearch{}, usage, logger)

	req := chat.Request{
		Provider: "groq",
		Model:    "test-model",
		Usecase:  "Basic Chatbot",
		Message:  "What is Go?",
	}

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.Equal(t, generator.answer, first.Content)
	require.Equal(t, 1, generator.calls)

	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Contains(t, second.Content, generator.answer)
	require.Contains(t, second.Content, chat.ProvenanceMarker)
	require.Equal(t, 1, generator.calls, "repeat question must be served from cache")

	// A different question misses and generates again.
	third, err := svc.Run(context.Background(), chat.Request{
		Provider: "groq",
		Model:    "test-model",
		Usecase:  "Basic Chatbot",
		Message:  "Who created Unix?",
	})
	require.NoError(t, err)
	require.False(t, third.FromCache)
	require.Equal(t, 2, generator.calls)

	lookups, err := usage.Lookups(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, lookups["Basic Chatbot"].Hits)
	require.EqualValues(t, 2, lookups["Basic Chatbot"].Misses)
}

func TestChatUseCasesArePartitioned(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := vectorstore.NewMemoryStore(&textEmbedder{})
	cache := qacache.NewCache(qacache.Config{
		Collection:     "qa_collection",
		EmbeddingModel: "stub",
	}, store, logger)

	generator := &countingGenerator{answer: "answer"}
	svc := chat.NewService(chat.Config{
		SimilarityThreshold: 0.8,
		SearchLimit:         3,
		WebSearchResults:    3,
	}, cache, singletonFactory{generator}, noSearch{}, statsstore.NewMemoryStore(), logger)

	req := chat.Request{Provider: "groq", Model: "m", Usecase: "Basic Chatbot", Message: "same question"}
	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	// The same question under a different use case must not hit the
	// basic chatbot's entry.
	webReq := req
	webReq.Usecase = "Chatbot With Web"
	resp, err := svc.Run(context.Background(), webReq)
	require.NoError(t, err)
	require.False(t, resp.FromCache)
	require.False(t, strings.Contains(resp.Content, chat.ProvenanceMarker))
	require.Equal(t, 2, generator.calls)
}
