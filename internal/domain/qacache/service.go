package qacache

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"
)

// Cache is the domain-level similarity cache over a single collection.
type Cache interface {
	// Store persists a question/answer pair. Persistence is best-effort:
	// any underlying failure yields false, never an error.
	Store(ctx context.Context, question, answer, usecase string, metadata map[string]any) bool
	// Search returns matches with score >= threshold, ordered descending by
	// score. Backend failures degrade to an empty result.
	Search(ctx context.Context, query, usecase string, limit int, threshold float64) []SearchMatch
	Stats(ctx context.Context) (Stats, error)
	// Clear drops and immediately recreates the collection.
	Clear(ctx context.Context) bool
}

type cache struct {
	cfg     Config
	store   VectorStore
	logger  *slog.Logger
	ensured atomic.Bool
}

// NewCache wires a similarity cache over the given vector store.
func NewCache(cfg Config, store VectorStore, logger *slog.Logger) Cache {
	return &cache{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "qacache", "collection", cfg.Collection),
	}
}

func (c *cache) ensureCollection(ctx context.Context) error {
	if c.ensured.Load() {
		return nil
	}
	if err := c.store.EnsureCollection(ctx, c.cfg.Collection); err != nil {
		return err
	}
	c.ensured.Store(true)
	return nil
}

func (c *cache) Store(ctx context.Context, question, answer, usecase string, metadata map[string]any) bool {
	if err := c.ensureCollection(ctx); err != nil {
		c.logger.Error("collection unavailable, dropping cache write", "error", err)
		return false
	}

	attributes := map[string]any{
		AttrQuestion:  question,
		AttrAnswer:    answer,
		AttrUsecase:   usecase,
		AttrTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range metadata {
		if _, reserved := attributes[key]; reserved {
			c.logger.Warn("dropping reserved metadata key", "key", key)
			continue
		}
		attributes[key] = value
	}

	id := EntryID(question, usecase)
	if err := c.store.Upsert(ctx, c.cfg.Collection, id, question, attributes); err != nil {
		c.logger.Error("cache write failed", "id", id, "usecase", usecase, "error", err)
		return false
	}
	c.logger.Info("stored qa pair", "id", id, "usecase", usecase)
	return true
}

func (c *cache) Search(ctx context.Context, query, usecase string, limit int, threshold float64) []SearchMatch {
	if err := c.ensureCollection(ctx); err != nil {
		c.logger.Error("collection unavailable, searching nothing", "error", err)
		return nil
	}

	raw, err := c.store.Query(ctx, c.cfg.Collection, query, map[string]string{AttrUsecase: usecase}, limit)
	if err != nil {
		c.logger.Error("cache search failed", "usecase", usecase, "error", err)
		return nil
	}

	matches := make([]SearchMatch, 0, len(raw))
	for _, m := range raw {
		score := similarityScore(m.Distance)
		if score < threshold {
			continue
		}
		matches = append(matches, SearchMatch{
			Question: attrString(m.Attributes, AttrQuestion),
			Answer:   attrString(m.Attributes, AttrAnswer),
			Score:    score,
			Metadata: metadataOf(m.Attributes),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	c.logger.Info("similarity search", "usecase", usecase, "candidates", len(raw), "matches", len(matches))
	return matches
}

func (c *cache) Stats(ctx context.Context) (Stats, error) {
	if err := c.ensureCollection(ctx); err != nil {
		return Stats{}, err
	}
	count, err := c.store.Count(ctx, c.cfg.Collection)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		CollectionName: c.cfg.Collection,
		TotalDocuments: count,
		EmbeddingModel: c.cfg.EmbeddingModel,
	}, nil
}

func (c *cache) Clear(ctx context.Context) bool {
	if err := c.store.Drop(ctx, c.cfg.Collection); err != nil {
		c.logger.Error("collection drop failed", "error", err)
		return false
	}
	c.ensured.Store(false)
	if err := c.ensureCollection(ctx); err != nil {
		c.logger.Error("collection recreate failed", "error", err)
		return false
	}
	c.logger.Info("collection cleared")
	return true
}

// similarityScore maps a cosine distance to a similarity in [0,1]. The clamp
// is unconditional: distances above 1 score 0, below 0 score 1.
func similarityScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func attrString(attributes map[string]any, key string) string {
	if v, ok := attributes[key].(string); ok {
		return v
	}
	return ""
}

// metadataOf strips the question/answer text out of the attribute bag, the
// remainder travels with the match.
func metadataOf(attributes map[string]any) map[string]any {
	out := make(map[string]any, len(attributes))
	for key, value := range attributes {
		if key == AttrQuestion || key == AttrAnswer {
			continue
		}
		out[key] = value
	}
	return out
}
