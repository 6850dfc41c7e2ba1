package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

type fakeFactory struct {
	generator pipeline.Generator
	err       error
	provider  string
	model     string
}

func (f *fakeFactory) Generator(provider, model string) (pipeline.Generator, error) {
	f.provider = provider
	f.model = model
	return f.generator, f.err
}

type fakeSearcher struct {
	results []pipeline.Article
	calls   int
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]pipeline.Article, error) {
	f.calls++
	return f.results, nil
}

func newServiceUnderTest(cache qacache.Cache, factory pipeline.GeneratorFactory, searcher WebSearcher) Service {
	cfg := Config{SimilarityThreshold: 0.8, SearchLimit: 3, WebSearchResults: 5}
	return NewService(cfg, cache, factory, searcher, nil, discard())
}

func TestServiceRejectsUnknownUsecase(t *testing.T) {
	svc := newServiceUnderTest(&fakeCache{}, &fakeFactory{}, &fakeSearcher{})

	_, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "Translator", Message: "hi"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestServiceRejectsNewsUsecase(t *testing.T) {
	svc := newServiceUnderTest(&fakeCache{}, &fakeFactory{}, &fakeSearcher{})

	_, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "AI News", Message: "hi"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestServiceRejectsEmptyMessage(t *testing.T) {
	svc := newServiceUnderTest(&fakeCache{}, &fakeFactory{}, &fakeSearcher{})

	_, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "Basic Chatbot", Message: "  "})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestServiceRejectsMismatchedEmbeddingModel(t *testing.T) {
	cfg := Config{SimilarityThreshold: 0.8, SearchLimit: 3, EmbeddingModel: "text-embedding-3-small"}
	svc := NewService(cfg, &fakeCache{}, &fakeFactory{}, &fakeSearcher{}, nil, discard())

	_, err := svc.Run(context.Background(), Request{
		Provider:       "groq",
		Model:          "m",
		Usecase:        "Basic Chatbot",
		Message:        "hi",
		EmbeddingModel: "text-embedding-ada-002",
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
}

func TestServiceFactoryErrorPropagates(t *testing.T) {
	factory := &fakeFactory{err: apperrors.Wrap(apperrors.CodeConfig, "missing GROQ_API_KEY", nil)}
	svc := newServiceUnderTest(&fakeCache{}, factory, &fakeSearcher{})

	_, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "Basic Chatbot", Message: "hi"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
}

func TestServiceFreshAnswerNotFromCache(t *testing.T) {
	cache := &fakeCache{storeOK: true}
	factory := &fakeFactory{generator: &fakeGenerator{answer: "a fresh answer"}}
	svc := newServiceUnderTest(cache, factory, &fakeSearcher{})

	resp, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "llama3-8b-8192", Usecase: "Basic Chatbot", Message: "What is AI?"})
	require.NoError(t, err)
	require.Equal(t, "a fresh answer", resp.Content)
	require.False(t, resp.FromCache)
	require.NotNil(t, resp.TokenUsage)
	require.Positive(t, resp.TokenUsage.TotalTokens)
}

func TestServiceDetectsCacheProvenance(t *testing.T) {
	cache := &fakeCache{matches: []qacache.SearchMatch{{Answer: "AI is...", Score: 0.93}}}
	factory := &fakeFactory{generator: &fakeGenerator{answer: "unused"}}
	svc := newServiceUnderTest(cache, factory, &fakeSearcher{})

	resp, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "Basic Chatbot", Message: "What is AI?"})
	require.NoError(t, err)
	require.True(t, resp.FromCache)
	require.Contains(t, resp.Content, ProvenanceMarker)
	require.Contains(t, resp.Content, "AI is...")
}

func TestServiceWebUsecaseSearches(t *testing.T) {
	cache := &fakeCache{storeOK: true}
	searcher := &fakeSearcher{results: []pipeline.Article{{Content: "news", URL: "https://example.com"}}}
	gen := &fakeGenerator{answer: "grounded answer"}
	svc := newServiceUnderTest(cache, &fakeFactory{generator: gen}, searcher)

	resp, err := svc.Run(context.Background(), Request{Provider: "groq", Model: "m", Usecase: "Chatbot With Web", Message: "latest Go release?"})
	require.NoError(t, err)
	require.Equal(t, "grounded answer", resp.Content)
	require.Equal(t, 1, searcher.calls)

	// The searcher's output is prepended as a system message.
	role, ok := gen.seen[0].Role()
	require.True(t, ok)
	require.Equal(t, "system", role)
	require.Contains(t, gen.seen[0].Content(), "https://example.com")
}

func TestNormalizeQuestion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  string
	}{
		{name: "trims and lowers", in: "  What Is AI?  ", out: "what is ai"},
		{name: "collapses punctuation", in: "what's,  the--deal?", out: "what s the deal"},
	}

	for _, tc := range cases {
		if got := normalizeQuestion(tc.in); got != tc.out {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.out, got)
		}
	}
}
