package vectorstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// FailoverStore serves from a primary backend until the first backend
// failure, then switches to the fallback for the remainder of the process.
// Flapping between backends would hand out results from two divergent
// datasets, so the switch is one-way. Only storage errors trigger the
// switch; an embedding failure would fail against the fallback too.
type FailoverStore struct {
	primary  qacache.VectorStore
	fallback qacache.VectorStore
	logger   *slog.Logger

	mu       sync.RWMutex
	degraded bool
}

// NewFailoverStore constructs the wrapper.
func NewFailoverStore(primary, fallback qacache.VectorStore, logger *slog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "vectorstore.failover"),
	}
}

func (s *FailoverStore) active() qacache.VectorStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.degraded {
		return s.fallback
	}
	return s.primary
}

func (s *FailoverStore) degrade(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	s.logger.Error("primary vector store failed, switching to local fallback",
		"operation", op, "error", err)
}

// Degraded reports whether the store has switched to the fallback backend.
func (s *FailoverStore) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// EnsureCollection implements qacache.VectorStore.
func (s *FailoverStore) EnsureCollection(ctx context.Context, name string) error {
	if store := s.active(); store == s.fallback {
		return store.EnsureCollection(ctx, name)
	}
	if err := s.primary.EnsureCollection(ctx, name); err != nil {
		if !apperrors.IsCode(err, apperrors.CodeCache) {
			return err
		}
		s.degrade("ensure_collection", err)
		return s.fallback.EnsureCollection(ctx, name)
	}
	return nil
}

// Upsert implements qacache.VectorStore.
func (s *FailoverStore) Upsert(ctx context.Context, collection, id, document string, attributes map[string]any) error {
	if store := s.active(); store == s.fallback {
		return store.Upsert(ctx, collection, id, document, attributes)
	}
	if err := s.primary.Upsert(ctx, collection, id, document, attributes); err != nil {
		if !apperrors.IsCode(err, apperrors.CodeCache) {
			return err
		}
		s.degrade("upsert", err)
		return s.fallback.Upsert(ctx, collection, id, document, attributes)
	}
	return nil
}

// Query implements qacache.VectorStore.
func (s *FailoverStore) Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]qacache.RawMatch, error) {
	if store := s.active(); store == s.fallback {
		return store.Query(ctx, collection, query, filter, topK)
	}
	matches, err := s.primary.Query(ctx, collection, query, filter, topK)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CodeCache) {
			return nil, err
		}
		s.degrade("query", err)
		return s.fallback.Query(ctx, collection, query, filter, topK)
	}
	return matches, nil
}

// Count implements qacache.VectorStore.
func (s *FailoverStore) Count(ctx context.Context, collection string) (int64, error) {
	if store := s.active(); store == s.fallback {
		return store.Count(ctx, collection)
	}
	count, err := s.primary.Count(ctx, collection)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CodeCache) {
			return 0, err
		}
		s.degrade("count", err)
		return s.fallback.Count(ctx, collection)
	}
	return count, nil
}

// Drop implements qacache.VectorStore.
func (s *FailoverStore) Drop(ctx context.Context, collection string) error {
	if store := s.active(); store == s.fallback {
		return store.Drop(ctx, collection)
	}
	if err := s.primary.Drop(ctx, collection); err != nil {
		if !apperrors.IsCode(err, apperrors.CodeCache) {
			return err
		}
		s.degrade("drop", err)
		return s.fallback.Drop(ctx, collection)
	}
	return nil
}

var _ qacache.VectorStore = (*FailoverStore)(nil)
