package qacache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries    map[string]map[string]any // id -> attributes
	queryOut   []RawMatch
	queryErr   error
	upsertErr  error
	dropped    int
	ensured    int
	lastFilter map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]map[string]any)}
}

func (f *fakeStore) EnsureCollection(context.Context, string) error {
	f.ensured++
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, _, id, _ string, attributes map[string]any) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.entries[id] = attributes
	return nil
}

func (f *fakeStore) Query(_ context.Context, _, _ string, filter map[string]string, _ int) ([]RawMatch, error) {
	f.lastFilter = filter
	return f.queryOut, f.queryErr
}

func (f *fakeStore) Count(context.Context, string) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeStore) Drop(context.Context, string) error {
	f.dropped++
	f.entries = make(map[string]map[string]any)
	f.queryOut = nil
	return nil
}

func newCacheUnderTest(store VectorStore) Cache {
	cfg := Config{Collection: "qa_collection", EmbeddingModel: "nomic-embed-text"}
	return NewCache(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStoreBuildsReservedAttributes(t *testing.T) {
	store := newFakeStore()
	cache := newCacheUnderTest(store)

	ok := cache.Store(context.Background(), "What is AI?", "AI is...", "Basic Chatbot", map[string]any{
		"method": "llm_generated",
		"answer": "spoofed", // reserved, must be dropped
	})
	require.True(t, ok)

	attrs := store.entries[EntryID("What is AI?", "Basic Chatbot")]
	require.NotNil(t, attrs)
	require.Equal(t, "What is AI?", attrs[AttrQuestion])
	require.Equal(t, "AI is...", attrs[AttrAnswer])
	require.Equal(t, "Basic Chatbot", attrs[AttrUsecase])
	require.Equal(t, "llm_generated", attrs["method"])

	ts, ok := attrs[AttrTimestamp].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
}

func TestStoreOverwritesSamePair(t *testing.T) {
	store := newFakeStore()
	cache := newCacheUnderTest(store)
	ctx := context.Background()

	require.True(t, cache.Store(ctx, "q", "first", "Basic Chatbot", nil))
	require.True(t, cache.Store(ctx, "q", "second", "Basic Chatbot", nil))

	require.Len(t, store.entries, 1)
	require.Equal(t, "second", store.entries[EntryID("q", "Basic Chatbot")][AttrAnswer])
}

func TestStoreFailureReturnsFalse(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("backend down")
	cache := newCacheUnderTest(store)

	require.False(t, cache.Store(context.Background(), "q", "a", "Basic Chatbot", nil))
}

func TestSearchScoreBoundsAndOrdering(t *testing.T) {
	store := newFakeStore()
	store.queryOut = []RawMatch{
		{Attributes: map[string]any{AttrQuestion: "a", AttrAnswer: "ans-a", AttrUsecase: "u"}, Distance: 0.5},
		{Attributes: map[string]any{AttrQuestion: "b", AttrAnswer: "ans-b", AttrUsecase: "u"}, Distance: 1.4},
		{Attributes: map[string]any{AttrQuestion: "c", AttrAnswer: "ans-c", AttrUsecase: "u"}, Distance: -0.2},
		{Attributes: map[string]any{AttrQuestion: "d", AttrAnswer: "ans-d", AttrUsecase: "u"}, Distance: 0.25},
	}
	cache := newCacheUnderTest(store)

	matches := cache.Search(context.Background(), "query", "u", 5, 0.0)
	require.Len(t, matches, 4)
	for i, m := range matches {
		require.GreaterOrEqual(t, m.Score, 0.0)
		require.LessOrEqual(t, m.Score, 1.0)
		if i > 0 {
			require.LessOrEqual(t, m.Score, matches[i-1].Score)
		}
	}
	require.Equal(t, "c", matches[0].Question) // clamped to 1
	require.Equal(t, 0.0, matches[3].Score)    // clamped to 0
}

func TestSearchThresholdIsInclusive(t *testing.T) {
	store := newFakeStore()
	store.queryOut = []RawMatch{
		{Attributes: map[string]any{AttrQuestion: "edge", AttrAnswer: "a"}, Distance: 0.2},
	}
	cache := newCacheUnderTest(store)

	matches := cache.Search(context.Background(), "query", "u", 3, 0.8)
	require.Len(t, matches, 1, "score equal to threshold stays in the result list")
}

func TestSearchFiltersByUsecase(t *testing.T) {
	store := newFakeStore()
	cache := newCacheUnderTest(store)

	cache.Search(context.Background(), "query", "AI News", 3, 0.8)
	require.Equal(t, map[string]string{AttrUsecase: "AI News"}, store.lastFilter)
}

func TestSearchFailOpen(t *testing.T) {
	store := newFakeStore()
	store.queryErr = errors.New("backend unreachable")
	cache := newCacheUnderTest(store)

	matches := cache.Search(context.Background(), "query", "u", 3, 0.8)
	require.Empty(t, matches)
}

func TestSearchStripsTextFromMetadata(t *testing.T) {
	store := newFakeStore()
	store.queryOut = []RawMatch{
		{Attributes: map[string]any{
			AttrQuestion: "q", AttrAnswer: "a", AttrUsecase: "u", "method": "llm_generated",
		}, Distance: 0.1},
	}
	cache := newCacheUnderTest(store)

	matches := cache.Search(context.Background(), "query", "u", 3, 0.0)
	require.Len(t, matches, 1)
	require.NotContains(t, matches[0].Metadata, AttrQuestion)
	require.NotContains(t, matches[0].Metadata, AttrAnswer)
	require.Equal(t, "u", matches[0].Metadata[AttrUsecase])
	require.Equal(t, "llm_generated", matches[0].Metadata["method"])
}

func TestClearDropsAndRecreates(t *testing.T) {
	store := newFakeStore()
	cache := newCacheUnderTest(store)
	ctx := context.Background()

	require.True(t, cache.Store(ctx, "q", "a", "u", nil))
	store.queryOut = []RawMatch{
		{Attributes: map[string]any{AttrQuestion: "q", AttrAnswer: "a", AttrUsecase: "u"}, Distance: 0.0},
	}
	require.Len(t, cache.Search(ctx, "q", "u", 3, 0.8), 1)

	require.True(t, cache.Clear(ctx))
	require.Equal(t, 1, store.dropped)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalDocuments)
	require.Equal(t, "qa_collection", stats.CollectionName)
	require.Equal(t, "nomic-embed-text", stats.EmbeddingModel)
	require.Empty(t, cache.Search(ctx, "q", "u", 3, 0.8))
}
