package vectorstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

type flakyStore struct {
	qacache.VectorStore
	err   error
	calls int
}

func (f *flakyStore) Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]qacache.RawMatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.VectorStore.Query(ctx, collection, query, filter, topK)
}

func TestFailoverStaysOnHealthyPrimary(t *testing.T) {
	primary := NewMemoryStore(stubEmbedder{})
	fallback := NewMemoryStore(stubEmbedder{})
	store := NewFailoverStore(primary, fallback, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "qa", "a", "doc", nil))
	require.False(t, store.Degraded())

	// The write landed on the primary, not the fallback.
	count, err := primary.Count(ctx, "qa")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	count, err = fallback.Count(ctx, "qa")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestFailoverSwitchesOnceOnStorageError(t *testing.T) {
	primary := &flakyStore{
		VectorStore: NewMemoryStore(stubEmbedder{}),
		err:         apperrors.Wrap(apperrors.CodeCache, "connection refused", nil),
	}
	fallback := NewMemoryStore(stubEmbedder{})
	store := NewFailoverStore(primary, fallback, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, fallback.Upsert(ctx, "qa", "a", "fallback doc", nil))

	matches, err := store.Query(ctx, "qa", "q", nil, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "fallback doc", matches[0].Document)
	require.True(t, store.Degraded())

	// The primary is never consulted again after the switch.
	_, err = store.Query(ctx, "qa", "q", nil, 10)
	require.NoError(t, err)
	require.Equal(t, 1, primary.calls)
}

func TestFailoverPropagatesNonStorageErrors(t *testing.T) {
	primary := &flakyStore{
		VectorStore: NewMemoryStore(stubEmbedder{}),
		err:         errors.New("context canceled"),
	}
	fallback := NewMemoryStore(stubEmbedder{})
	store := NewFailoverStore(primary, fallback, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := store.Query(context.Background(), "qa", "q", nil, 10)
	require.Error(t, err)
	require.False(t, store.Degraded(), "a non-storage error must not flip the backend")
}
